package style

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Printer writes the inline status lines every command uses:
//
//	OK: done
//	E: something failed
//	W: something to know
//	I: something to read
type Printer struct {
	out    io.Writer
	styles map[string]lipgloss.Style
}

// NewPrinter creates a printer for out. Colors are disabled when out is not
// a terminal or NO_COLOR is set.
func NewPrinter(out io.Writer) *Printer {
	return newPrinter(out, colorProfile(out))
}

// NewPlainPrinter creates a printer that never emits escape sequences
func NewPlainPrinter(out io.Writer) *Printer {
	return newPrinter(out, termenv.Ascii)
}

func newPrinter(out io.Writer, profile termenv.Profile) *Printer {
	r := lipgloss.NewRenderer(out)
	r.SetColorProfile(profile)

	palette, err := DefaultPalette()
	if err != nil {
		palette = &Palette{}
	}
	return &Printer{out: out, styles: palette.build(r)}
}

func colorProfile(out io.Writer) termenv.Profile {
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Render applies the named style to text. Unknown names render plain.
func (p *Printer) Render(name, text string) string {
	s, ok := p.styles[name]
	if !ok {
		return text
	}
	return s.Render(text)
}

// OK prints a success line
func (p *Printer) OK(format string, args ...interface{}) {
	p.status("OK", "OK", format, args...)
}

// Error prints an error line
func (p *Printer) Error(format string, args ...interface{}) {
	p.status("Error", "E", format, args...)
}

// Warn prints a warning line
func (p *Printer) Warn(format string, args ...interface{}) {
	p.status("Warning", "W", format, args...)
}

// Info prints an informational line
func (p *Printer) Info(format string, args ...interface{}) {
	p.status("Info", "I", format, args...)
}

func (p *Printer) status(style, tag, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, "%s: %s\n", p.Render(style, tag), fmt.Sprintf(format, args...))
}

// Heading prints a section title
func (p *Printer) Heading(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(p.out, p.Render("Heading", fmt.Sprintf(format, args...)))
}

// Field prints an aligned "key: value" line
func (p *Printer) Field(key string, width int, value string) {
	_, _ = fmt.Fprintf(p.out, "%s %s\n", p.Render("Key", fmt.Sprintf("%-*s", width, key+":")), value)
}

// Println writes a plain line
func (p *Printer) Println(args ...interface{}) {
	_, _ = fmt.Fprintln(p.out, args...)
}

// Printf writes plain formatted text
func (p *Printer) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Bar renders a usage bar of the given width, colored by fill level
func (p *Printer) Bar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent * float64(width) / 100)

	name := "BarLow"
	switch {
	case percent >= 90:
		name = "BarHigh"
	case percent >= 70:
		name = "BarMid"
	}
	return "[" + p.Render(name, strings.Repeat("#", filled)) + strings.Repeat(".", width-filled) + "]"
}
