// Package confpatch edits line-oriented configuration files in place.
// Every operation is idempotent and leaves untargeted lines byte-for-byte
// intact.
package confpatch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Patcher applies edits through a filesystem
type Patcher struct {
	fs     types.FS
	tmpDir string
	logger zerolog.Logger
}

// New creates a patcher. Snapshots taken by rewrites live in tmpDir.
func New(fs types.FS, tmpDir string) *Patcher {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Patcher{
		fs:     fs,
		tmpDir: tmpDir,
		logger: logging.GetLogger("confpatch"),
	}
}

// Touch creates file empty when it does not exist
func (p *Patcher) Touch(file string, perm os.FileMode) error {
	if _, err := p.fs.Stat(file); err == nil {
		return nil
	}
	if err := p.fs.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create directory for %s", file)
	}
	if err := p.fs.WriteFile(file, nil, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", file)
	}
	return nil
}

// Contains reports whether a line of file matches pred. A missing file
// contains nothing.
func (p *Patcher) Contains(file string, pred Predicate) (bool, error) {
	data, err := p.fs.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", file)
	}
	for _, line := range splitLines(data) {
		if pred(strings.TrimSuffix(line, "\n")) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureLine appends line unless a line already matches pred
func (p *Patcher) EnsureLine(file string, pred Predicate, line string) (types.State, error) {
	return p.EnsureBlock(file, pred, []string{line})
}

// EnsureBlock appends lines unless a line already matches pred
func (p *Patcher) EnsureBlock(file string, pred Predicate, lines []string) (types.State, error) {
	data, err := p.read(file)
	if err != nil {
		return types.StateFailed, err
	}
	for _, l := range splitLines(data) {
		if pred(strings.TrimSuffix(l, "\n")) {
			p.logger.Debug().Str("file", file).Msg("Marker present")
			return types.StateInSync, nil
		}
	}
	return p.appendLines(file, data, lines)
}

// EnsureEach appends every line of lines that the file lacks, in one write
func (p *Patcher) EnsureEach(file string, lines []string) (types.State, error) {
	data, err := p.read(file)
	if err != nil {
		return types.StateFailed, err
	}

	existing := splitLines(data)
	var missing []string
	for _, want := range lines {
		pred := Equals(want)
		found := false
		for _, l := range existing {
			if pred(strings.TrimSuffix(l, "\n")) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		return types.StateInSync, nil
	}
	return p.appendLines(file, data, missing)
}

// ReplaceMatching replaces every line matching pred with fn(line)
func (p *Patcher) ReplaceMatching(file string, pred Predicate, fn func(string) string) (types.State, error) {
	return p.FilterMap(file, func(line string) (string, bool) {
		if pred(line) {
			return fn(line), true
		}
		return line, true
	})
}

// FilterMap rewrites file line by line. fn returns the new line and whether
// to keep it at all.
func (p *Patcher) FilterMap(file string, fn func(string) (string, bool)) (types.State, error) {
	data, err := p.read(file)
	if err != nil {
		return types.StateFailed, err
	}

	var out bytes.Buffer
	for _, l := range splitLines(data) {
		body := strings.TrimSuffix(l, "\n")
		newLine, keep := fn(body)
		if !keep {
			continue
		}
		out.WriteString(newLine)
		if strings.HasSuffix(l, "\n") {
			out.WriteByte('\n')
		}
	}

	if bytes.Equal(out.Bytes(), data) {
		return types.StateInSync, nil
	}

	if err := p.stream(file, fn); err != nil {
		return types.StateFailed, err
	}
	p.logger.Info().Str("file", file).Msg("Patched")
	return types.StatePatched, nil
}

// stream snapshots file to the temp dir and writes the transformed
// snapshot into the truncated original, keeping its inode and mode
func (p *Patcher) stream(file string, fn func(string) (string, bool)) error {
	data, err := p.fs.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", file)
	}

	if err := p.fs.MkdirAll(p.tmpDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", p.tmpDir)
	}
	snapshot := filepath.Join(p.tmpDir, fmt.Sprintf("%s.%d.orig", filepath.Base(file), os.Getpid()))
	if err := p.fs.WriteFile(snapshot, data, 0600); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot snapshot %s", file)
	}
	defer func() { _ = p.fs.Remove(snapshot) }()

	src, err := p.fs.OpenFile(snapshot, os.O_RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot open snapshot of %s", file)
	}
	defer func() { _ = src.Close() }()

	dst, err := p.fs.OpenFile(file, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot open %s for writing", file)
	}

	w := bufio.NewWriter(dst)
	r := bufio.NewReader(src)
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			body := strings.TrimSuffix(line, "\n")
			if newLine, keep := fn(body); keep {
				_, _ = w.WriteString(newLine)
				if strings.HasSuffix(line, "\n") {
					_ = w.WriteByte('\n')
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = dst.Close()
			return errors.Wrapf(readErr, errors.ErrFileAccess, "cannot read snapshot of %s", file)
		}
	}

	if err := w.Flush(); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", file)
	}
	if err := dst.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot close %s", file)
	}
	return nil
}

func (p *Patcher) read(file string) ([]byte, error) {
	data, err := p.fs.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrFileNotFound, "%s not found", file).
				WithDetail("file", file)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", file)
	}
	return data, nil
}

func (p *Patcher) appendLines(file string, current []byte, lines []string) (types.State, error) {
	var b strings.Builder
	if len(current) > 0 && current[len(current)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, l := range lines {
		b.WriteString(strings.TrimSuffix(l, "\n"))
		b.WriteByte('\n')
	}

	f, err := p.fs.OpenFile(file, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot open %s for append", file)
	}
	if _, err := io.WriteString(f, b.String()); err != nil {
		_ = f.Close()
		return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot append to %s", file)
	}
	if err := f.Close(); err != nil {
		return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot close %s", file)
	}

	p.logger.Info().Str("file", file).Int("lines", len(lines)).Msg("Appended")
	return types.StatePatched, nil
}

// splitLines splits data keeping each line's terminator
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	var lines []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}
