package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/choopsit/toolz/pkg/execx"
)

// Responder produces the result of a scripted command
type Responder func(cmd execx.Command) (execx.Result, error)

type rule struct {
	prefix  string
	respond Responder
}

// FakeRunner implements execx.Runner. Commands are matched by prefix of
// their command line; the most recently added matching rule wins and
// unmatched commands succeed with no output.
type FakeRunner struct {
	mu    sync.Mutex
	rules []rule
	calls []execx.Command
}

// NewFakeRunner creates an empty fake runner
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On scripts a successful command printing stdout
func (f *FakeRunner) On(prefix, stdout string) *FakeRunner {
	return f.OnFunc(prefix, func(execx.Command) (execx.Result, error) {
		return execx.Result{Stdout: stdout}, nil
	})
}

// Fail scripts a command exiting with the given status
func (f *FakeRunner) Fail(prefix string, exit int, stderr string) *FakeRunner {
	return f.OnFunc(prefix, func(cmd execx.Command) (execx.Result, error) {
		res := execx.Result{Stderr: stderr, ExitCode: exit}
		return res, execx.Failed(cmd, res, nil)
	})
}

// OnFunc scripts a command with a custom responder
func (f *FakeRunner) OnFunc(prefix string, fn Responder) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, respond: fn})
	return f
}

// Run records cmd and answers it from the scripted rules
func (f *FakeRunner) Run(_ context.Context, cmd execx.Command) (execx.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	rules := make([]rule, len(f.rules))
	copy(rules, f.rules)
	f.mu.Unlock()

	line := cmd.String()
	for i := len(rules) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, rules[i].prefix) {
			return rules[i].respond(cmd)
		}
	}
	return execx.Result{}, nil
}

// Calls returns the recorded commands in order
func (f *FakeRunner) Calls() []execx.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]execx.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the recorded command lines in order
func (f *FakeRunner) Lines() []string {
	var lines []string
	for _, c := range f.Calls() {
		lines = append(lines, c.String())
	}
	return lines
}

// Count returns how many recorded command lines start with prefix
func (f *FakeRunner) Count(prefix string) int {
	n := 0
	for _, line := range f.Lines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// Ran reports whether any recorded command line starts with prefix
func (f *FakeRunner) Ran(prefix string) bool {
	return f.Count(prefix) > 0
}

// Reset forgets recorded calls but keeps the rules
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
