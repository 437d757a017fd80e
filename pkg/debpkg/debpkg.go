// Package debpkg builds a Debian binary package from a source folder laid
// out the dpkg-deb way (a DEBIAN/control file plus the payload tree).
package debpkg

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// ControlFile is the file that makes a folder a package source
const ControlFile = "DEBIAN/control"

// OwnerFunc returns the numeric owner of a path
type OwnerFunc func(path string) (int, int, error)

// Builder runs dpkg-deb on a package source
type Builder struct {
	fs      types.FS
	runner  execx.Runner
	mirror  *mirror.Mirror
	printer *style.Printer
	logger  zerolog.Logger

	Owner OwnerFunc
}

// New creates a builder
func New(fsys types.FS, runner execx.Runner, m *mirror.Mirror, printer *style.Printer) *Builder {
	return &Builder{
		fs:      fsys,
		runner:  runner,
		mirror:  m,
		printer: printer,
		logger:  logging.GetLogger("debpkg"),
		Owner:   Lowner,
	}
}

// Lowner reads the owner of path without following symlinks
func Lowner(path string) (int, int, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, 0, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", path)
	}
	return int(st.Uid), int(st.Gid), nil
}

// Build packs folder into folder.deb. The tree is owned by root while
// dpkg-deb runs, then the folder and the package are given back to the
// folder's original owner.
func (b *Builder) Build(ctx context.Context, folder string) (string, error) {
	folder = strings.TrimSuffix(folder, "/")
	if folder == "" {
		return "", errors.New(errors.ErrInvalidInput, "Bad argument")
	}
	if info, err := b.fs.Stat(filepath.Join(folder, ControlFile)); err != nil || info.IsDir() {
		return "", errors.Newf(errors.ErrInvalidInput, "Invalid debian package source folder '%s'", folder)
	}

	uid, gid, err := b.Owner(folder)
	if err != nil {
		return "", err
	}
	b.logger.Debug().Str("folder", folder).Int("uid", uid).Int("gid", gid).Msg("Building package")

	if err := b.mirror.RChownIDs(folder, 0, 0); err != nil {
		return "", err
	}

	deb := folder + ".deb"
	_, buildErr := b.runner.Run(ctx, execx.Cmd("dpkg-deb", "--build", folder))

	targets := []string{folder}
	if buildErr == nil {
		targets = append(targets, deb)
	}
	for _, target := range targets {
		if err := b.mirror.RChownIDs(target, uid, gid); err != nil {
			b.logger.Warn().Err(err).Str("path", target).Msg("cannot restore owner")
		}
	}
	if buildErr != nil {
		return "", buildErr
	}

	dir, err := filepath.Abs(filepath.Dir(folder))
	if err != nil {
		dir = filepath.Dir(folder)
	}
	b.printer.OK("'%s' generated in '%s'", filepath.Base(deb), dir)
	return deb, nil
}
