package sysconf

import (
	"strings"

	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/types"
)

// EnsurePath makes rcfile export dir in variable. An existing export line is
// extended, otherwise a new one is appended.
func (r *Rules) EnsurePath(rcfile, variable, dir string) (types.State, error) {
	prefix := "export " + variable + "="
	pred := confpatch.HasPrefix(prefix)

	found, err := r.patch.Contains(rcfile, pred)
	if err != nil {
		return types.StateFailed, err
	}
	if !found {
		return r.patch.EnsureLine(rcfile, pred, prefix+"$"+variable+":"+dir)
	}

	return r.patch.ReplaceMatching(rcfile, pred, func(line string) string {
		value := strings.TrimPrefix(strings.TrimRight(line, " \t"), prefix)
		for _, entry := range strings.Split(strings.Trim(value, `"'`), ":") {
			if entry == dir {
				return line
			}
		}
		return strings.TrimRight(line, " \t") + ":" + dir
	})
}
