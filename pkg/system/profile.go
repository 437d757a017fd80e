package system

import (
	"context"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/types"
)

// Profile describes the machine and the invoking user. It is loaded once
// at startup and passed to every component.
type Profile struct {
	DistroID   string
	VersionID  string
	Codename   string
	PrettyName string

	UID  int
	User string
	Home string

	Hostname string
	FQDN     string
}

// IsRoot reports whether the process runs with uid 0
func (p *Profile) IsRoot() bool {
	return p.UID == 0
}

// HostName returns the machine name split into host and domain
func (p *Profile) HostName() HostName {
	if p.FQDN != "" {
		return SplitFQDN(p.FQDN)
	}
	return HostName{Host: p.Hostname}
}

// LoadProfile gathers the profile from the running system
func LoadProfile(ctx context.Context, fsys types.FS, runner execx.Runner, releases Releases) (*Profile, error) {
	logger := logging.GetLogger("system.profile")
	p := &Profile{UID: os.Getuid()}

	data, err := fsys.ReadFile(OSReleasePath)
	if err != nil {
		logger.Debug().Err(err).Msg("No os-release, distribution unknown")
	} else {
		rel, err := ParseOSRelease(data)
		if err != nil {
			return nil, err
		}
		p.DistroID = rel.ID
		p.VersionID = rel.VersionID
		p.PrettyName = rel.PrettyName
		p.Codename = ResolveCodename(ctx, runner, rel, releases)
	}

	u, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot determine current user")
	}
	p.User = u.Username
	p.Home = u.HomeDir
	if home := os.Getenv("HOME"); home != "" {
		p.Home = home
	}

	p.Hostname, _ = os.Hostname()
	p.FQDN = p.Hostname
	if res, err := runner.Run(ctx, execx.Cmd("hostname", "-f")); err == nil {
		if fqdn := strings.TrimSpace(res.Stdout); fqdn != "" {
			p.FQDN = fqdn
		}
	}

	logger.Debug().
		Str("distro", p.DistroID).
		Str("codename", p.Codename).
		Str("user", p.User).
		Str("uid", strconv.Itoa(p.UID)).
		Str("fqdn", p.FQDN).
		Msg("Loaded system profile")

	return p, nil
}

// RequireDebian fails unless the profile is a supported Debian. When root
// is true the process must also run as root.
func RequireDebian(p *Profile, releases Releases, root bool) error {
	if p.DistroID != "debian" {
		return errors.New(errors.ErrUnsupportedDistro, "OS is not Debian").
			WithDetail("distro", p.DistroID)
	}
	for _, old := range releases.Obsolete {
		if p.Codename == old {
			return errors.Newf(errors.ErrUnsupportedDistro, "'%s' is a too old Debian version", p.Codename)
		}
	}
	if root {
		return RequireRoot(p)
	}
	return nil
}

// RequireRoot fails unless the process runs as root
func RequireRoot(p *Profile) error {
	if !p.IsRoot() {
		return errors.New(errors.ErrPermission, "Need higher privileges")
	}
	return nil
}
