package tsm

import (
	"encoding/json"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/tidwall/jsonc"
)

// Settings is the part of the daemon's settings.json tsm cares about
type Settings struct {
	PeerPort        int    `json:"peer-port"`
	DownloadDir     string `json:"download-dir"`
	RPCPort         int    `json:"rpc-port"`
	RPCEnabled      bool   `json:"rpc-enabled"`
	PortForwarding  bool   `json:"port-forwarding-enabled"`
	PeerPortRandom  bool   `json:"peer-port-random-on-start"`
	IncompleteDir   string `json:"incomplete-dir"`
	IncompleteDirOn bool   `json:"incomplete-dir-enabled"`
}

// ParseSettings decodes settings.json. Comments and trailing commas left
// by hand edits are tolerated.
func ParseSettings(data []byte) (Settings, error) {
	var s Settings
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return s, errors.Wrap(err, errors.ErrConfigParse, "cannot parse transmission settings")
	}
	return s, nil
}

// LoadSettings reads and decodes a settings file
func LoadSettings(fsys types.FS, path string) (Settings, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrap(err, errors.ErrFileNotFound,
			"Can not find transmission-daemon configuration file").WithDetail("path", path)
	}
	return ParseSettings(data)
}
