// Package bootstrap turns a fresh Debian install into a configured Xfce
// desktop: it asks every question up front, shows a summary, then installs
// packages, themes and the system and user configuration in one go.
package bootstrap

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/sysconf"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Packages installs and purges Debian packages
type Packages interface {
	Install(ctx context.Context, pkgs []string, yes bool) error
	Purge(ctx context.Context, pkgs []string, yes bool) error
	AddArchitecture(ctx context.Context, arch string) error
}

// Themes installs the desktop themes
type Themes interface {
	Run(ctx context.Context) error
}

// Fetcher downloads a URL to a file
type Fetcher interface {
	Download(ctx context.Context, url, dest string) error
}

// Deps are the collaborators of a Bootstrap
type Deps struct {
	FS       types.FS
	Runner   execx.Runner
	Asker    prompt.Asker
	Printer  *style.Printer
	Profile  *system.Profile
	Packages Packages
	Themes   Themes
	Rules    *sysconf.Rules
	Fetcher  Fetcher
}

// Membership is a user to add to a group
type Membership struct {
	User  string
	Group string
}

// Choices gathers the answers collected before anything is changed
type Choices struct {
	Host        system.HostName
	Rename      bool
	Optional    []config.Optional
	Packages    []string
	I386        bool
	Memberships []Membership
	Personalize []string
}

// Bootstrap runs the Xfce desktop installation
type Bootstrap struct {
	cfg      config.Bootstrap
	releases system.Releases
	fs       types.FS
	runner   execx.Runner
	asker    prompt.Asker
	printer  *style.Printer
	profile  *system.Profile
	pkgs     Packages
	themes   Themes
	rules    *sysconf.Rules
	fetch    Fetcher
	mirror   *mirror.Mirror
	logger   zerolog.Logger
}

// New creates a bootstrap
func New(cfg config.Bootstrap, releases system.Releases, deps Deps) *Bootstrap {
	return &Bootstrap{
		cfg:      cfg,
		releases: releases,
		fs:       deps.FS,
		runner:   deps.Runner,
		asker:    deps.Asker,
		printer:  deps.Printer,
		profile:  deps.Profile,
		pkgs:     deps.Packages,
		themes:   deps.Themes,
		rules:    deps.Rules,
		fetch:    deps.Fetcher,
		mirror:   mirror.New(deps.FS),
		logger:   logging.GetLogger("bootstrap"),
	}
}

// Run checks the system, collects the choices, asks for confirmation and
// applies them. Declining the summary changes nothing.
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := system.RequireDebian(b.profile, b.releases, true); err != nil {
		return err
	}

	choices, err := b.Ask(ctx)
	if err != nil {
		return err
	}
	b.Summary(choices)

	ok, err := b.asker.YesNo("Confirm your choices", false)
	if err != nil {
		return err
	}
	if !ok {
		b.printer.Warn("Nothing done")
		return nil
	}

	if err := b.Apply(ctx, choices); err != nil {
		return err
	}
	b.printer.OK("Xfce desktop installed")

	reboot, err := b.asker.YesNo("Reboot now", true)
	if err != nil {
		return err
	}
	if reboot {
		_, err = b.runner.Run(ctx, execx.Cmd("reboot"))
	}
	return err
}

// Ask collects every choice
func (b *Bootstrap) Ask(ctx context.Context) (Choices, error) {
	var c Choices
	current := b.profile.HostName()

	keep, err := b.asker.YesNo("Keep current hostname: '"+current.String()+"'", true)
	if err != nil {
		return c, err
	}
	c.Host = current
	if !keep {
		name, err := b.asker.Input("New hostname (or FQDN)", "", validHostname)
		if err != nil {
			return c, err
		}
		c.Host = system.SplitFQDN(strings.TrimSuffix(name, "."))
		c.Rename = c.Host != current
	}

	c.Packages = append(c.Packages, b.cfg.Packages...)
	if b.hasNvidia(ctx) {
		c.Packages = append(c.Packages, b.cfg.Nvidia...)
		c.I386 = true
	}

	groups := append([]string(nil), b.cfg.Groups...)
	vm := system.IsVM(ctx, b.runner)
	for _, opt := range b.cfg.Optional {
		if opt.SkipOnVM && vm {
			continue
		}
		yes, err := b.asker.YesNo(opt.Question, false)
		if err != nil {
			return c, err
		}
		if !yes {
			continue
		}
		c.Optional = append(c.Optional, opt)
		c.Packages = append(c.Packages, opt.Packages...)
		c.I386 = c.I386 || opt.I386
		if opt.Group != "" {
			groups = append(groups, opt.Group)
		}
	}

	users, err := system.ListUsers(b.fs)
	if err != nil {
		return c, err
	}
	for _, user := range users {
		for _, group := range groups {
			yes, err := b.asker.YesNo("Add user '"+user+"' to '"+group+"'", true)
			if err != nil {
				return c, err
			}
			if yes {
				c.Memberships = append(c.Memberships, Membership{User: user, Group: group})
			}
		}
		yes, err := b.asker.YesNo("Apply Xfce personalization for "+user, false)
		if err != nil {
			return c, err
		}
		if yes {
			c.Personalize = append(c.Personalize, user)
		}
	}
	return c, nil
}

func validHostname(name string) error {
	if !system.ValidHostname(name) {
		return errors.Newf(errors.ErrInvalidInput, "Invalid hostname '%s'", name)
	}
	return nil
}

func (b *Bootstrap) hasNvidia(ctx context.Context) bool {
	res, err := b.runner.Run(ctx, execx.Cmd("lspci"))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(res.Stdout), "nvidia")
}

// Summary prints the collected choices
func (b *Bootstrap) Summary(c Choices) {
	b.printer.Println()
	if c.Rename {
		b.printer.Field("New hostname/FQDN", 0, c.Host.String())
	}
	if len(c.Optional) > 0 {
		b.printer.Heading("Chosen additional applications:")
		for _, opt := range c.Optional {
			b.printer.Printf("  - %s\n", b.printer.Render("Key", opt.Name))
		}
	}
	if len(c.Memberships) > 0 {
		b.printer.Heading("Users to add to groups:")
		for _, m := range c.Memberships {
			b.printer.Printf("  - '%s' to '%s'\n", m.User, m.Group)
		}
	} else {
		b.printer.Warn("No user added to any group")
	}
	if len(c.Personalize) > 0 {
		b.printer.Heading("Users applying Xfce personalization:")
		for _, user := range c.Personalize {
			b.printer.Printf("  - %s\n", user)
		}
	}
	b.printer.Println()
}

// Apply performs the installation for c
func (b *Bootstrap) Apply(ctx context.Context, c Choices) error {
	if err := b.install(ctx, c); err != nil {
		return err
	}
	if err := b.configure(ctx, c); err != nil {
		return err
	}

	for _, m := range c.Memberships {
		if err := system.AddToGroup(ctx, b.runner, m.User, m.Group); err != nil {
			return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to add '%s' to '%s'", m.User, m.Group)
		}
		b.printer.OK("'%s' added to '%s'", m.User, m.Group)
	}

	for _, user := range c.Personalize {
		home := filepath.Join("/home", user)
		if err := b.Personalize(ctx, home); err != nil {
			return err
		}
		if err := b.mirror.RChown(home, user, ""); err != nil {
			return err
		}
		b.printer.OK("Xfce personalization applied for %s", user)
	}

	return b.mounts(c.Host.Host)
}

func (b *Bootstrap) install(ctx context.Context, c Choices) error {
	if _, err := b.rules.SourcesList(); err != nil {
		return err
	}
	if c.I386 {
		if err := b.pkgs.AddArchitecture(ctx, "i386"); err != nil {
			return err
		}
	}
	if err := b.pkgs.Install(ctx, c.Packages, true); err != nil {
		return err
	}
	if err := b.pkgs.Purge(ctx, b.cfg.Purge, true); err != nil {
		return err
	}
	if err := b.themes.Run(ctx); err != nil {
		b.printer.Warn("%s", errors.Message(err))
	}
	return nil
}

func (b *Bootstrap) configure(ctx context.Context, c Choices) error {
	if c.Rename {
		if _, err := b.rules.ApplyHostname(ctx, c.Host); err != nil {
			return err
		}
		b.printer.OK("Hostname set to '%s'", c.Host)
	}

	steps := []struct {
		name  string
		apply func() (types.State, error)
	}{
		{"swap", func() (types.State, error) { return b.rules.Swap(ctx) }},
		{"ssh", func() (types.State, error) { return b.rules.SSHRootLogin(ctx) }},
		{"lightdm", b.rules.LightDM},
		{"pulseaudio", b.rules.PulseAudio},
		{"redshift", b.rules.Redshift},
	}
	for _, step := range steps {
		state, err := step.apply()
		if errors.IsErrorCode(err, errors.ErrFileNotFound) {
			b.printer.Warn("%s not configured: %s", step.name, errors.Message(err))
			continue
		}
		if err != nil {
			return err
		}
		b.logger.Debug().Str("step", step.name).Str("state", string(state)).Msg("System configured")
	}

	if err := b.Personalize(ctx, RootHome); err != nil {
		return err
	}
	if b.cfg.Editor != "" {
		if _, err := b.runner.Run(ctx, execx.Cmd("update-alternatives", "--set", "editor", b.cfg.Editor)); err != nil {
			b.printer.Warn("Default editor unchanged: %s", execx.Describe(err))
		}
	}
	return b.Personalize(ctx, SkelHome)
}

// mounts adds the fstab entries configured for host
func (b *Bootstrap) mounts(host string) error {
	for _, m := range b.cfg.Mounts[host] {
		if err := b.fs.MkdirAll(m.Mountpoint, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", m.Mountpoint)
		}
		state, err := b.rules.AddMount(m.Label, m.UUID, m.Mountpoint, m.FSType, m.Options)
		if err != nil {
			return err
		}
		if state.Changed() {
			b.printer.OK("'%s' added to fstab", m.Label)
		}
	}
	return nil
}
