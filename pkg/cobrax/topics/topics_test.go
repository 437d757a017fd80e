package topics

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func source() fstest.MapFS {
	return fstest.MapFS{
		"config.md":        {Data: []byte("# Configuration\n")},
		"debian.txt":       {Data: []byte("Debian releases\n")},
		"option-yes.md":    {Data: []byte("Answer yes\n")},
		"notes.html":       {Data: []byte("<p>skipped</p>")},
		"advanced/xfce.md": {Data: []byte("Xfce desktop\n")},
	}
}

func TestScan(t *testing.T) {
	tm := New(source())
	require.NoError(t, tm.Scan())

	assert.Equal(t, []string{"config", "debian", "option-yes", "xfce"}, tm.ListTopics())

	topic, ok := tm.GetTopic("xfce")
	require.True(t, ok)
	assert.Equal(t, "advanced/xfce.md", topic.Path)
	assert.Equal(t, "Xfce desktop\n", topic.Content)
}

func TestScanExtensions(t *testing.T) {
	tm := NewWithOptions(source(), Options{Extensions: []string{".txt"}})
	require.NoError(t, tm.Scan())
	assert.Equal(t, []string{"debian"}, tm.ListTopics())
}

func TestScanNilSource(t *testing.T) {
	tm := New(nil)
	require.NoError(t, tm.Scan())
	assert.Empty(t, tm.ListTopics())

	var out bytes.Buffer
	tm.PrintList(&out)
	assert.Equal(t, "No help topics available.\n", out.String())
}

func TestGetTopic(t *testing.T) {
	tm := New(source())
	require.NoError(t, tm.Scan())

	tests := []struct {
		input string
		want  string
		found bool
	}{
		{"config", "config", true},
		{"--yes", "option-yes", true},
		{"-yes", "option-yes", true},
		{"option-yes", "option-yes", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			topic, ok := tm.GetTopic(tt.input)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, topic.Name)
			}
		})
	}
}

type upperRenderer struct{ formats []string }

func (r *upperRenderer) Render(content, format string) string {
	r.formats = append(r.formats, format)
	return "rendered:" + content
}

func newRoot(t *testing.T, opts Options) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	root := &cobra.Command{Use: "app", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(&cobra.Command{Use: "sub", Short: "A subcommand", Run: func(*cobra.Command, []string) {}})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	_, err := InitializeWithOptions(root, source(), opts)
	require.NoError(t, err)
	return root, &out
}

func TestHelpTopic(t *testing.T) {
	r := &upperRenderer{}
	root, out := newRoot(t, Options{Renderer: r})
	root.SetArgs([]string{"help", "config"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "rendered:# Configuration\n", out.String())
	assert.Equal(t, []string{".md"}, r.formats)
}

func TestHelpTopicsList(t *testing.T) {
	root, out := newRoot(t, Options{})
	root.SetArgs([]string{"help", "topics"})
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "General topics:\n  config\n  debian\n  xfce\n")
	assert.Contains(t, text, "Option topics:\n  --yes\n")
	assert.Contains(t, text, "Use 'app help <topic>'")
}

func TestTopicsCommand(t *testing.T) {
	root, out := newRoot(t, Options{})
	root.SetArgs([]string{"topics"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Available help topics:")
}

func TestHelpCommandFallback(t *testing.T) {
	root, out := newRoot(t, Options{})
	root.SetArgs([]string{"help", "sub"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "A subcommand")
}

func TestHelpFlag(t *testing.T) {
	root, out := newRoot(t, Options{})
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "sub")
}

func TestPlainRenderer(t *testing.T) {
	r := &PlainRenderer{}
	assert.Equal(t, "# Title", r.Render("# Title", ".md"))
}

func TestGlamourRendererKeepsText(t *testing.T) {
	r := NewGlamourRenderer()
	assert.Equal(t, "plain text", r.Render("plain text", ".txt"))
}
