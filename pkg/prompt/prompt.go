// Package prompt asks the operator questions on the terminal. Every question
// is retried a bounded number of times on invalid input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/style"
)

// DefaultMaxRetries bounds how many invalid answers are tolerated
const DefaultMaxRetries = 3

// Asker is what components need to interact with the operator
type Asker interface {
	YesNo(question string, def bool) (bool, error)
	Input(question, def string, validate func(string) error) (string, error)
	Choose(title string, options []string, def int) (int, error)
}

// Prompter implements Asker over a reader and a writer
type Prompter struct {
	in         *bufio.Reader
	out        io.Writer
	printer    *style.Printer
	maxRetries int
	assumeYes  bool
}

// Option configures a Prompter
type Option func(*Prompter)

// WithMaxRetries overrides the retry bound
func WithMaxRetries(n int) Option {
	return func(p *Prompter) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithAssumeYes answers every yes/no question with yes and every other
// question with its default
func WithAssumeYes(yes bool) Option {
	return func(p *Prompter) {
		p.assumeYes = yes
	}
}

// New creates a prompter reading from in and writing to out
func New(in io.Reader, out io.Writer, opts ...Option) *Prompter {
	p := &Prompter{
		in:         bufio.NewReader(in),
		out:        out,
		printer:    style.NewPrinter(out),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTerminal creates a prompter on stdin and stdout
func NewTerminal(opts ...Option) *Prompter {
	return New(os.Stdin, os.Stdout, opts...)
}

// YesNo asks a yes/no question. An empty answer selects def.
func (p *Prompter) YesNo(question string, def bool) (bool, error) {
	indicator := "[y/N]"
	if def {
		indicator = "[Y/n]"
	}

	if p.assumeYes {
		_, _ = fmt.Fprintf(p.out, "%s %s ? y\n", question, indicator)
		return true, nil
	}

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		_, _ = fmt.Fprintf(p.out, "%s %s ? ", question, indicator)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.printer.Error("Invalid answer '%s'", answer)
	}
	return false, p.exhausted(question)
}

// Input asks for free text. An empty answer selects def; validate, when
// set, rejects answers.
func (p *Prompter) Input(question, def string, validate func(string) error) (string, error) {
	label := question
	if def != "" {
		label = fmt.Sprintf("%s [%s]", question, def)
	}

	if p.assumeYes && def != "" {
		_, _ = fmt.Fprintf(p.out, "%s ? %s\n", label, def)
		return def, nil
	}

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		_, _ = fmt.Fprintf(p.out, "%s ? ", label)
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = def
		}
		if answer == "" {
			p.printer.Error("No answer given")
			continue
		}
		if validate != nil {
			if err := validate(answer); err != nil {
				p.printer.Error("%s", describe(err))
				continue
			}
		}
		return answer, nil
	}
	return "", p.exhausted(question)
}

// Choose prints a numbered menu and returns the selected index. def is the
// index chosen on an empty answer, or -1 for no default.
func (p *Prompter) Choose(title string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return -1, errors.New(errors.ErrInvalidInput, "nothing to choose from")
	}

	p.printer.Heading("%s", title)
	for i, opt := range options {
		marker := " "
		if i == def {
			marker = "*"
		}
		_, _ = fmt.Fprintf(p.out, " %s%d) %s\n", marker, i+1, opt)
	}

	if p.assumeYes && def >= 0 && def < len(options) {
		return def, nil
	}

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		_, _ = fmt.Fprint(p.out, "Your choice ? ")
		answer, err := p.readLine()
		if err != nil {
			return -1, err
		}
		if answer == "" && def >= 0 && def < len(options) {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		p.printer.Error("Invalid choice '%s'", answer)
	}
	return -1, p.exhausted(title)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", errors.New(errors.ErrInvalidInput, "no input available")
		}
		return "", errors.Wrap(err, errors.ErrInternal, "failed to read user input")
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) exhausted(question string) error {
	return errors.Newf(errors.ErrInvalidInput, "too many invalid answers to '%s'", question).
		WithDetail("retries", p.maxRetries)
}

func describe(err error) string {
	var te *errors.ToolzError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}
