package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxEvents bounds the resource log shown below the phases.
const maxEvents = 6

// Phase is a provisioning phase as displayed.
type Phase struct {
	Name   string
	Done   bool
	Active bool
	Err    error
}

// NodeRow is one line of the node summary.
type NodeRow struct {
	Name      string
	Role      string
	Pool      string
	PublicIP  string
	PrivateIP string
}

// Model is the Bubble Tea model for the create progress view.
type Model struct {
	ClusterName string
	Location    string

	Phases []Phase
	Events []string
	Nodes  []NodeRow

	StartTime    time.Time
	SpinnerFrame int

	Width int
	Err   error
	Done  bool
}

// NewCreateModel creates a model tracking the given phases in order.
func NewCreateModel(clusterName, location string, phases []string) Model {
	m := Model{
		ClusterName: clusterName,
		Location:    location,
		StartTime:   time.Now(),
	}
	for _, name := range phases {
		m.Phases = append(m.Phases, Phase{Name: name})
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case PhaseMsg:
		m.updatePhase(msg)

	case EventMsg:
		m.Events = append(m.Events, msg.Text)
		if len(m.Events) > maxEvents {
			m.Events = m.Events[len(m.Events)-maxEvents:]
		}

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Nodes = msg.Nodes
		for i := range m.Phases {
			m.Phases[i].Done = true
			m.Phases[i].Active = false
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updatePhase(msg PhaseMsg) {
	idx := -1
	for i, phase := range m.Phases {
		if phase.Name == msg.Phase {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	for i := 0; i < idx; i++ {
		m.Phases[i].Done = true
		m.Phases[i].Active = false
	}

	switch {
	case msg.Err != nil:
		m.Phases[idx].Err = msg.Err
		m.Phases[idx].Active = false
	case msg.Done:
		m.Phases[idx].Done = true
		m.Phases[idx].Active = false
	default:
		m.Phases[idx].Active = true
		m.Events = nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
