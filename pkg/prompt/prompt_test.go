package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(input string, opts ...Option) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return New(strings.NewReader(input), &out, opts...), &out
}

func TestYesNo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{"empty takes default no", "\n", false, false},
		{"empty takes default yes", "\n", true, true},
		{"y", "y\n", false, true},
		{"YES", "YES\n", false, true},
		{"no", "no\n", true, false},
		{"retry after invalid", "maybe\ny\n", false, true},
		{"last line without newline", "y", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTest(tt.input)
			got, err := p.YesNo("Install it/them", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYesNoIndicator(t *testing.T) {
	p, out := newTest("\n")
	_, err := p.YesNo("Reboot now", true)
	require.NoError(t, err)
	assert.Equal(t, "Reboot now [Y/n] ? ", out.String())
}

func TestYesNoRetriesBounded(t *testing.T) {
	p, out := newTest("a\nb\nc\ny\n", WithMaxRetries(3))
	_, err := p.YesNo("Continue", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.Equal(t, 3, strings.Count(out.String(), "Invalid answer"))
}

func TestYesNoNoInput(t *testing.T) {
	p, _ := newTest("")
	_, err := p.YesNo("Continue", false)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestAssumeYes(t *testing.T) {
	p, out := newTest("", WithAssumeYes(true))

	ok, err := p.YesNo("Install it/them", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "? y")

	name, err := p.Input("Hostname", "box", nil)
	require.NoError(t, err)
	assert.Equal(t, "box", name)

	idx, err := p.Choose("Version", []string{"stable", "testing"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestInput(t *testing.T) {
	notBad := func(s string) error {
		if s == "bad" {
			return errors.New(errors.ErrInvalidInput, "Invalid hostname 'bad'")
		}
		return nil
	}

	t.Run("default", func(t *testing.T) {
		p, _ := newTest("\n")
		got, err := p.Input("Hostname", "box", notBad)
		require.NoError(t, err)
		assert.Equal(t, "box", got)
	})

	t.Run("validation retry", func(t *testing.T) {
		p, out := newTest("bad\n\ngood\n")
		got, err := p.Input("Hostname", "", notBad)
		require.NoError(t, err)
		assert.Equal(t, "good", got)
		assert.Contains(t, out.String(), "E: Invalid hostname 'bad'")
		assert.Contains(t, out.String(), "E: No answer given")
	})

	t.Run("plain error message", func(t *testing.T) {
		p, out := newTest("x\ny\n")
		_, err := p.Input("Name", "", func(s string) error {
			if s == "x" {
				return fmt.Errorf("x is reserved")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "E: x is reserved")
	})
}

func TestChoose(t *testing.T) {
	options := []string{"Debian stable", "Debian testing", "Clonezilla"}

	p, out := newTest("0\n4\n3\n")
	idx, err := p.Choose("Choose an ISO", options, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Contains(t, out.String(), "  1) Debian stable")
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice"))

	p, out = newTest("\n")
	idx, err = p.Choose("Choose an ISO", options, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Contains(t, out.String(), " *1) Debian stable")

	_, err = New(strings.NewReader(""), &bytes.Buffer{}).Choose("Empty", nil, 0)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}
