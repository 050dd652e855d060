// Package tui provides a Bubble Tea-based terminal UI for cluster creation.
package tui

// PhaseMsg reports progress of a provisioning phase.
type PhaseMsg struct {
	Phase string
	Done  bool
	Err   error
}

// EventMsg carries a resource outcome shown under the active phase.
type EventMsg struct {
	Text string
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the cluster is up.
type DoneMsg struct {
	Nodes []NodeRow
}
