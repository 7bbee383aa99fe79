package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const overridesFileName = "vibebridge.toml"

// Overrides are operator-editable knobs loaded from a TOML file next to the
// config dir. Missing file means all defaults.
type Overrides struct {
	Security SecurityOverrides `toml:"security"`
	Commands CommandOverrides  `toml:"commands"`
	Limits   LimitOverrides    `toml:"limits"`
}

type SecurityOverrides struct {
	// SafeCommands replaces the built-in read-only allowlist when non-empty.
	SafeCommands []string `toml:"safe_commands"`
	// TrustedPaths are seeded into the trust store at startup, in addition
	// to the work directory.
	TrustedPaths []string `toml:"trusted_paths"`
}

type CommandOverrides struct {
	// Extra localized aliases merged into the built-in control-command map,
	// keyed by canonical command name (reset, help, paths, trust, lang).
	Aliases map[string][]string `toml:"aliases"`
}

type LimitOverrides struct {
	UsageLimit int `toml:"usage_limit"`
}

func LoadOverrides(dir string) (Overrides, error) {
	var out Overrides
	if dir == "" {
		return out, nil
	}
	b, err := os.ReadFile(filepath.Join(dir, overridesFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	if err := toml.Unmarshal(b, &out); err != nil {
		return Overrides{}, err
	}
	return out, nil
}

func SaveOverrides(dir string, o Overrides) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(o)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, overridesFileName+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, overridesFileName))
}
