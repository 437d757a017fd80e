// Package execx runs external commands behind an injectable Runner so every
// shell-out can be recorded and scripted in tests.
package execx

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/rs/zerolog"
)

// Command describes one external program invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string

	// Stdin is fed to the process when set
	Stdin io.Reader

	// Interactive attaches the process to the terminal instead of
	// capturing its output
	Interactive bool
}

// Cmd builds a captured command
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Live builds a command attached to the terminal
func Live(name string, args ...string) Command {
	return Command{Name: name, Args: args, Interactive: true}
}

// Argv returns the full argument vector
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String returns the command line as typed in a shell
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result holds what a finished command produced
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Lines splits stdout into non-empty lines
func (r Result) Lines() []string {
	var lines []string
	for _, line := range strings.Split(r.Stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Runner executes commands
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	logger zerolog.Logger
}

// NewExecRunner creates a runner backed by the real system
func NewExecRunner() *ExecRunner {
	return &ExecRunner{logger: logging.GetLogger("execx")}
}

// Run executes cmd. A non-zero exit is returned as ErrCommandFailed with
// the exit code and stderr attached as details.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	r.logger.Debug().
		Strs("argv", cmd.Argv()).
		Str("dir", cmd.Dir).
		Bool("interactive", cmd.Interactive).
		Msg("Running command")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if cmd.Interactive {
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	err := c.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if err != nil {
		r.logger.Debug().
			Err(err).
			Str("command", cmd.String()).
			Int("exit", res.ExitCode).
			Str("stderr", res.Stderr).
			Msg("Command failed")
		return res, Failed(cmd, res, err)
	}

	r.logger.Trace().
		Str("command", cmd.String()).
		Str("stdout", res.Stdout).
		Msg("Command finished")
	return res, nil
}

// Failed builds the error reported for an unsuccessful command
func Failed(cmd Command, res Result, cause error) error {
	var e *errors.ToolzError
	if cause != nil {
		e = errors.Wrapf(cause, errors.ErrCommandFailed, "command failed: %s", cmd.String())
	} else {
		e = errors.Newf(errors.ErrCommandFailed, "command failed: %s", cmd.String())
	}
	e = e.WithDetail("exit", res.ExitCode)
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		e = e.WithDetail("stderr", stderr)
	}
	return e
}

// Elevate prefixes cmd with sudo unless the caller already runs as root
func Elevate(root bool, cmd Command) Command {
	if root {
		return cmd
	}
	elevated := cmd
	elevated.Name = "sudo"
	elevated.Args = append([]string{cmd.Name}, cmd.Args...)
	return elevated
}

// LookPath reports whether a program is available in PATH
func LookPath(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}

// Describe formats a command failure for users, preferring stderr
func Describe(err error) string {
	details := errors.GetErrorDetails(err)
	if stderr, ok := details["stderr"].(string); ok && stderr != "" {
		return stderr
	}
	return errors.Message(err)
}
