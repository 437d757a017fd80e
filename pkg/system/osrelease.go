package system

import (
	"context"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/joho/godotenv"
)

// OSReleasePath is where the distribution identity is read from
const OSReleasePath = "/etc/os-release"

// OSRelease holds the fields of os-release(5) the tools rely on
type OSRelease struct {
	ID         string
	VersionID  string
	Codename   string
	PrettyName string
}

// Releases names the Debian suites used to tell stable, testing and sid apart
type Releases struct {
	Stable   string   `koanf:"stable"`
	Testing  string   `koanf:"testing"`
	Obsolete []string `koanf:"obsolete"`
}

// ParseOSRelease parses os-release content. Values may be quoted.
func ParseOSRelease(data []byte) (OSRelease, error) {
	env, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return OSRelease{}, errors.Wrap(err, errors.ErrConfigParse, "cannot parse os-release")
	}
	return OSRelease{
		ID:         env["ID"],
		VersionID:  env["VERSION_ID"],
		Codename:   env["VERSION_CODENAME"],
		PrettyName: env["PRETTY_NAME"],
	}, nil
}

// ResolveCodename returns the effective codename. Debian testing and sid
// both report the testing codename, so anything that is not stable is
// probed: sid ships firefox, testing only firefox-esr.
func ResolveCodename(ctx context.Context, runner execx.Runner, rel OSRelease, releases Releases) string {
	if rel.ID != "debian" || releases.Stable == "" || rel.Codename == releases.Stable {
		return rel.Codename
	}

	res, err := runner.Run(ctx, execx.Cmd("apt-cache", "show", "--no-all-versions", "firefox"))
	if err == nil && res.Stdout != "" {
		return "sid"
	}
	if releases.Testing != "" {
		return releases.Testing
	}
	return rel.Codename
}
