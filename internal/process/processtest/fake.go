// Package processtest provides a scriptable process.Runner for tests.
package processtest

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/texbuild/internal/process"
)

// HandlerFunc produces the result for one invocation.
type HandlerFunc func(cmd process.Command) (process.Result, error)

// FakeRunner records every command it receives and delegates to Handler.
// A nil Handler reports success with empty output.
type FakeRunner struct {
	Handler HandlerFunc

	mu       sync.Mutex
	commands []process.Command
}

// Run implements process.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.Handler == nil {
		return process.Result{}, nil
	}
	return f.Handler(cmd)
}

// Calls returns the number of invocations so far.
func (f *FakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

// Commands returns a copy of the recorded commands.
func (f *FakeRunner) Commands() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]process.Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// Programs returns the program of each recorded command, in order.
func (f *FakeRunner) Programs() []string {
	cmds := f.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Program
	}
	return out
}
