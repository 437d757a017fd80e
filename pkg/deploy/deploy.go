// Package deploy installs a directory of scripts into a bin directory and
// makes sure the user's shell finds them.
package deploy

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/sysconf"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Result lists what a deployment did
type Result struct {
	Deployed []string
	Failed   []string
	Skipped  []string
	RCFile   string
	RCState  types.State
}

// Deployer copies scripts into cfg.Target
type Deployer struct {
	cfg     config.Deploy
	fs      types.FS
	mirror  *mirror.Mirror
	rules   *sysconf.Rules
	printer *style.Printer
	logger  zerolog.Logger
}

// New creates a deployer
func New(cfg config.Deploy, fsys types.FS, m *mirror.Mirror, rules *sysconf.Rules, printer *style.Printer) *Deployer {
	return &Deployer{
		cfg:     cfg,
		fs:      fsys,
		mirror:  m,
		rules:   rules,
		printer: printer,
		logger:  logging.GetLogger("deploy"),
	}
}

// Scripts lists the deployable files of src by name without extension
func (d *Deployer) Scripts(src string) (map[string]string, error) {
	entries, err := d.fs.ReadDir(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileNotFound, "cannot list %s", src)
	}
	scripts := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		scripts[strings.TrimSuffix(name, filepath.Ext(name))] = filepath.Join(src, name)
	}
	return scripts, nil
}

// Run deploys every script of src except the excluded ones, then exports
// the target directory in the rc file of user
func (d *Deployer) Run(src, user, home string) (Result, error) {
	var res Result
	scripts, err := d.Scripts(src)
	if err != nil {
		return res, err
	}

	excluded := make(map[string]bool, len(d.cfg.Exclude))
	for _, name := range d.cfg.Exclude {
		excluded[name] = true
	}

	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := d.fs.MkdirAll(d.cfg.Target, 0755); err != nil {
		return res, errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", d.cfg.Target)
	}

	for _, name := range names {
		if excluded[name] {
			d.printer.Warn("'%s' not deployed", filepath.Base(scripts[name]))
			res.Skipped = append(res.Skipped, name)
			continue
		}
		dst := filepath.Join(d.cfg.Target, name)
		if d.mirror.Overwrite(scripts[name], dst) && d.fs.Chmod(dst, 0755) == nil {
			d.printer.OK("'%s' deployed in '%s'", name, d.cfg.Target)
			res.Deployed = append(res.Deployed, name)
		} else {
			d.printer.Error("'%s' failed to be deployed", name)
			res.Failed = append(res.Failed, name)
		}
	}

	res.RCFile = d.rcFile(home)
	res.RCState, err = d.rules.EnsurePath(res.RCFile, d.cfg.PathVariable, d.cfg.Target)
	if err != nil {
		return res, err
	}
	if res.RCState.Changed() {
		d.printer.Info("'%s' exported in '%s'", d.cfg.Target, res.RCFile)
		if err := d.mirror.RChown(res.RCFile, user, ""); err != nil {
			d.logger.Warn().Err(err).Str("file", res.RCFile).Msg("cannot give rc file back")
		}
	}

	if len(res.Failed) > 0 {
		return res, errors.Newf(errors.ErrFileWrite, "%d script(s) failed to be deployed", len(res.Failed)).
			WithDetail("scripts", res.Failed)
	}
	return res, nil
}

// rcFile picks the configured rc file, or the fallback when it is absent
func (d *Deployer) rcFile(home string) string {
	primary := config.HomePath(home, d.cfg.RCFile)
	if _, err := d.fs.Stat(primary); err == nil || d.cfg.RCFallback == "" {
		return primary
	}
	fallback := config.HomePath(home, d.cfg.RCFallback)
	if _, err := d.fs.Stat(fallback); os.IsNotExist(err) {
		_ = d.fs.WriteFile(fallback, nil, 0644)
	}
	return fallback
}
