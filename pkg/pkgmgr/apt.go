// Package pkgmgr wraps apt and dpkg. Queries always hit the package
// database; nothing is cached between calls.
package pkgmgr

import (
	"context"
	"sort"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/rs/zerolog"
)

// dpkg selection/status pairs
const (
	StatusInstalled = "ii"
	StatusResidual  = "rc"
)

// Apt drives apt and dpkg through a runner
type Apt struct {
	runner execx.Runner
	root   bool
	logger zerolog.Logger
}

// New creates an apt wrapper. The distribution must be one of supported.
func New(runner execx.Runner, profile *system.Profile, supported []string) (*Apt, error) {
	ok := false
	for _, d := range supported {
		if d == profile.DistroID {
			ok = true
			break
		}
	}
	if !ok {
		return nil, errors.Newf(errors.ErrUnsupportedDistro, "Unsupported distribution '%s'", profile.DistroID).
			WithDetail("distro", profile.DistroID)
	}
	return &Apt{
		runner: runner,
		root:   profile.IsRoot(),
		logger: logging.GetLogger("pkgmgr"),
	}, nil
}

// ParseDpkgList extracts package names in the given status from `dpkg -l`
// output. Architecture suffixes such as ":amd64" are stripped.
func ParseDpkgList(output, status string) []string {
	var pkgs []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != status {
			continue
		}
		pkgs = append(pkgs, stripArch(fields[1]))
	}
	return pkgs
}

// ParseObsolete extracts package names from `apt list ?obsolete` output
func ParseObsolete(output string) []string {
	var pkgs []string
	for _, line := range strings.Split(output, "\n") {
		name, rest, found := strings.Cut(line, "/")
		if !found || !strings.HasPrefix(rest, "now") {
			continue
		}
		pkgs = append(pkgs, stripArch(name))
	}
	return pkgs
}

func stripArch(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

func (a *Apt) list(ctx context.Context, status string) ([]string, error) {
	res, err := a.runner.Run(ctx, execx.Cmd("dpkg", "-l"))
	if err != nil {
		return nil, err
	}
	return ParseDpkgList(res.Stdout, status), nil
}

// Installed returns every fully installed package, sorted
func (a *Apt) Installed(ctx context.Context) ([]string, error) {
	pkgs, err := a.list(ctx, StatusInstalled)
	if err != nil {
		return nil, err
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

// IsInstalled reports whether pkg is fully installed
func (a *Apt) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	missing, err := a.Missing(ctx, []string{pkg})
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Missing returns the packages of pkgs that are not installed, in order
func (a *Apt) Missing(ctx context.Context, pkgs []string) ([]string, error) {
	installed, err := a.list(ctx, StatusInstalled)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(installed))
	for _, p := range installed {
		have[p] = true
	}

	var missing []string
	for _, p := range pkgs {
		if !have[p] {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// Residual returns removed packages that left configuration behind
func (a *Apt) Residual(ctx context.Context) ([]string, error) {
	return a.list(ctx, StatusResidual)
}

// Obsolete returns installed packages no repository provides anymore
func (a *Apt) Obsolete(ctx context.Context) ([]string, error) {
	res, err := a.runner.Run(ctx, execx.Cmd("apt", "list", "?obsolete"))
	if err != nil {
		return nil, err
	}
	return ParseObsolete(res.Stdout), nil
}

// Update refreshes the package index
func (a *Apt) Update(ctx context.Context) error {
	return a.run(ctx, "apt", "update")
}

// Install updates the index then installs pkgs
func (a *Apt) Install(ctx context.Context, pkgs []string, yes bool) error {
	if len(pkgs) == 0 {
		return nil
	}
	if err := a.Update(ctx); err != nil {
		return err
	}
	return a.run(ctx, "apt", withYes(append([]string{"install"}, pkgs...), yes)...)
}

// Remove removes pkgs keeping their configuration
func (a *Apt) Remove(ctx context.Context, pkgs []string, yes bool) error {
	if len(pkgs) == 0 {
		return nil
	}
	return a.run(ctx, "apt", withYes(append([]string{"remove"}, pkgs...), yes)...)
}

// Purge removes pkgs with their configuration, then unneeded dependencies
func (a *Apt) Purge(ctx context.Context, pkgs []string, yes bool) error {
	if len(pkgs) == 0 {
		return nil
	}
	if err := a.run(ctx, "apt", withYes(append([]string{"purge"}, pkgs...), yes)...); err != nil {
		return err
	}
	return a.run(ctx, "apt", withYes([]string{"autoremove", "--purge"}, yes)...)
}

// PurgeResidual purges every package in "rc" state
func (a *Apt) PurgeResidual(ctx context.Context, yes bool) error {
	rc, err := a.Residual(ctx)
	if err != nil {
		return err
	}
	if len(rc) == 0 {
		a.logger.Debug().Msg("No residual configuration")
		return nil
	}
	return a.run(ctx, "apt", withYes(append([]string{"purge"}, rc...), yes)...)
}

// PurgeObsolete purges installed packages no repository provides
func (a *Apt) PurgeObsolete(ctx context.Context, yes bool) error {
	obs, err := a.Obsolete(ctx)
	if err != nil {
		return err
	}
	return a.Purge(ctx, obs, yes)
}

// Clean purges residual configuration, unneeded dependencies and the cache
func (a *Apt) Clean(ctx context.Context, yes bool) error {
	if err := a.PurgeResidual(ctx, yes); err != nil {
		return err
	}
	if err := a.run(ctx, "apt", withYes([]string{"autoremove", "--purge"}, yes)...); err != nil {
		return err
	}
	if err := a.run(ctx, "apt", "autoclean"); err != nil {
		return err
	}
	return a.run(ctx, "apt", "clean")
}

// Upgrade updates the index and runs a full upgrade
func (a *Apt) Upgrade(ctx context.Context, yes bool) error {
	if err := a.Update(ctx); err != nil {
		return err
	}
	return a.run(ctx, "apt", withYes([]string{"full-upgrade"}, yes)...)
}

// AddArchitecture enables a foreign architecture such as i386
func (a *Apt) AddArchitecture(ctx context.Context, arch string) error {
	return a.run(ctx, "dpkg", "--add-architecture", arch)
}

func (a *Apt) run(ctx context.Context, name string, args ...string) error {
	cmd := execx.Elevate(a.root, execx.Live(name, args...))
	a.logger.Debug().Strs("argv", cmd.Argv()).Msg("Package manager")
	_, err := a.runner.Run(ctx, cmd)
	return err
}

func withYes(args []string, yes bool) []string {
	if yes {
		return append(args, "-y")
	}
	return args
}
