package index

import (
	"os"
	"path/filepath"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config is the parsed index.toml configuration.
type Config struct {
	Secure       bool
	Dependencies map[string]ident.IndexRes // alias -> concrete IndexRes
	Backend      string                    // registry name, or "" if none declared
}

type rawConfig struct {
	Secure       bool              `toml:"secure"`
	Dependencies map[string]string `toml:"dependencies"`
	Backend      string            `toml:"backend"`
}

func loadConfig(dir string) (Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, "index.toml"))
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading index.toml in %s", dir)
	}
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrapf(err, "invalid index.toml in %s", dir)
	}

	deps := make(map[string]ident.IndexRes, len(raw.Dependencies))
	for alias, s := range raw.Dependencies {
		d, err := ident.ParseDirectRes(s)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid index.toml dependency alias %q in %s", alias, dir)
		}
		deps[alias] = ident.IndexRes{Res: d}
	}

	return Config{Secure: raw.Secure, Dependencies: deps, Backend: raw.Backend}, nil
}
