package style

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ColorDef represents an adaptive color definition in YAML
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef represents a style definition in YAML
type StyleDef struct {
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Underline  bool   `yaml:"underline,omitempty"`
	Foreground string `yaml:"foreground,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// Palette is the complete styles configuration
type Palette struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

//go:embed styles.yaml
var embeddedStyles []byte

// DefaultPalette parses the embedded palette
func DefaultPalette() (*Palette, error) {
	return ParsePalette(embeddedStyles)
}

// ParsePalette parses a palette from YAML
func ParsePalette(data []byte) (*Palette, error) {
	var p Palette
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse styles: %w", err)
	}
	return &p, nil
}

// build turns the palette into lipgloss styles bound to renderer r
func (p *Palette) build(r *lipgloss.Renderer) map[string]lipgloss.Style {
	colors := make(map[string]lipgloss.AdaptiveColor, len(p.Colors))
	for name, def := range p.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}

	resolve := func(ref string) lipgloss.TerminalColor {
		if c, ok := colors[ref]; ok {
			return c
		}
		return lipgloss.Color(ref)
	}

	styles := make(map[string]lipgloss.Style, len(p.Styles))
	for name, def := range p.Styles {
		s := r.NewStyle().
			Bold(def.Bold).
			Italic(def.Italic).
			Underline(def.Underline)
		if def.Foreground != "" {
			s = s.Foreground(resolve(def.Foreground))
		}
		if def.Background != "" {
			s = s.Background(resolve(def.Background))
		}
		styles[name] = s
	}
	return styles
}
