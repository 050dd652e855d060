package ssh

import (
	"context"
	"sync"
)

var _ Executor = (*FakeExecutor)(nil)

// Call is one command a FakeExecutor received.
type Call struct {
	Host    Host
	Command string
}

// FakeExecutor is an in-memory Executor that records every command.
type FakeExecutor struct {
	mu sync.Mutex

	// Handler answers Exec. Nil returns empty output.
	Handler func(host Host, command string) (string, error)
	// Unreachable makes WaitUntilReachable fail for the named hosts.
	Unreachable map[string]error

	calls  []Call
	probed []string
}

// NewFakeExecutor returns a FakeExecutor answering every command with h.
func NewFakeExecutor(h func(host Host, command string) (string, error)) *FakeExecutor {
	return &FakeExecutor{Handler: h}
}

func (f *FakeExecutor) Exec(ctx context.Context, host Host, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, Call{Host: host, Command: command})
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return "", nil
	}
	return handler(host, command)
}

func (f *FakeExecutor) WaitUntilReachable(ctx context.Context, host Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, host.Name)
	return f.Unreachable[host.Name]
}

// Calls returns the received commands in arrival order.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CommandsFor returns the commands run on one host.
func (f *FakeExecutor) CommandsFor(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Host.Name == name {
			out = append(out, c.Command)
		}
	}
	return out
}

// Probed returns the hosts WaitUntilReachable was called for.
func (f *FakeExecutor) Probed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probed...)
}
