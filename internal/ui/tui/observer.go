package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/k3zner/internal/provisioning"
)

// Observer turns provisioning events into messages for a running program
// and passes everything on to next.
type Observer struct {
	send func(tea.Msg)
	next provisioning.Observer
}

var _ provisioning.Observer = (*Observer)(nil)

// NewObserver creates an observer delivering messages through send.
func NewObserver(send func(tea.Msg), next provisioning.Observer) *Observer {
	return &Observer{send: send, next: next}
}

func (o *Observer) Printf(format string, v ...any) {
	o.next.Printf(format, v...)
}

func (o *Observer) Event(e provisioning.Event) {
	o.next.Event(e)

	switch e.Type {
	case provisioning.EventPhaseStarted:
		o.send(PhaseMsg{Phase: e.Phase})
	case provisioning.EventPhaseCompleted:
		o.send(PhaseMsg{Phase: e.Phase, Done: true})
	case provisioning.EventPhaseFailed:
		o.send(PhaseMsg{Phase: e.Phase, Err: errors.New(e.Message)})
	case provisioning.EventResourceCreating, provisioning.EventResourceCreated,
		provisioning.EventResourceExists, provisioning.EventResourceDeleted:
		o.send(EventMsg{Text: fmt.Sprintf("%s: %s", e.Resource, e.Message)})
	}
}

func (o *Observer) WithFields(fields map[string]string) provisioning.Observer {
	return &Observer{send: o.send, next: o.next.WithFields(fields)}
}
