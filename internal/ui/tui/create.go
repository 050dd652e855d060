package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/k3zner/internal/provisioning"
)

// CreateFunc runs cluster creation, reporting through observer.
type CreateFunc func(ctx context.Context, observer provisioning.Observer) (*provisioning.State, error)

// RunCreateTUI wraps cluster creation with a Bubble Tea progress view.
// Quitting the view cancels the creation.
func RunCreateTUI(ctx context.Context, create CreateFunc, next provisioning.Observer, clusterName, location string, phases []string) (*provisioning.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewCreateModel(clusterName, location, phases), tea.WithAltScreen(), tea.WithContext(ctx))

	var (
		state     *provisioning.State
		createErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		state, createErr = create(ctx, NewObserver(p.Send, next))
		if createErr != nil {
			p.Send(ErrMsg{Err: createErr})
			return
		}
		p.Send(DoneMsg{Nodes: NodeRows(state.Topology)})
	}()

	finalModel, err := p.Run()
	cancel()
	<-finished
	if createErr != nil {
		return state, createErr
	}
	if err != nil {
		return state, fmt.Errorf("TUI error: %w", err)
	}
	if fm, ok := finalModel.(Model); ok && !fm.Done {
		return state, fmt.Errorf("creation interrupted")
	}
	return state, nil
}

// NodeRows converts a topology into summary rows, masters first.
func NodeRows(t provisioning.Topology) []NodeRow {
	rows := make([]NodeRow, 0, len(t.Masters)+len(t.Workers))
	for _, s := range t.All() {
		rows = append(rows, NodeRow{
			Name:      s.Name,
			Role:      string(s.Role),
			Pool:      s.Pool,
			PublicIP:  s.PublicIP,
			PrivateIP: s.PrivateIP,
		})
	}
	return rows
}
