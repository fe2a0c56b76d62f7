package agent

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ConfigFile is the subset of the agent's TOML configuration the
// control tool understands. It is the fallback source for lock and
// PID file locations when the agent binary cannot be queried.
type ConfigFile struct {
	Main struct {
		StateDir string `toml:"statedir"`
	} `toml:"main"`
	Agent struct {
		DisableLockFile string `toml:"disable_lockfile"`
		PIDFile         string `toml:"pidfile"`
		Schedule        string `toml:"schedule"`
	} `toml:"agent"`
}

// LoadConfigFile parses the agent configuration at path. A missing
// file is reported via os.IsNotExist on the returned error so callers
// can fall through to compiled defaults.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cf ConfigFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing agent config %s: %w", path, err)
	}
	return &cf, nil
}
