package config

import (
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

// Generate renders the effective configuration as TOML
func Generate(k *koanf.Koanf) ([]byte, error) {
	out, err := toml.Marshal(k.Raw())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render configuration")
	}
	return out, nil
}

// GenerateCommented returns the defaults with every value commented out,
// ready to be saved as a user configuration file
func GenerateCommented() string {
	return commentOutConfigValues(DefaultContent())
}

// commentOutConfigValues comments out every line that is not blank, a
// comment or a table header. Continuation lines of multi-line arrays are
// commented too.
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			result = append(result, line)
		case strings.HasPrefix(trimmed, "#"):
			result = append(result, line)
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") && !strings.Contains(trimmed, "="):
			result = append(result, line)
		default:
			result = append(result, "# "+line)
		}
	}

	return strings.Join(result, "\n")
}
