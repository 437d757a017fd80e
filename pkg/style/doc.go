// Package style renders terminal output: colored status prefixes, headings
// and usage bars. The palette is embedded YAML turned into lipgloss styles.
package style
