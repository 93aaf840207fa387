package config

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/coprcheck/coprcheck/pkg/config"
)

// Load reads the configuration named by the "config" flag. An explicitly given file must exist;
// the default one is optional.
func Load(flags *pflag.FlagSet, path string) (config.Config, error) {
	if !flags.Changed("config") {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return config.Default(), nil
			}
			return config.Config{}, errors.Wrapf(err, "stat %s", path)
		}
	}

	slog.Debug("Load config", "path", path)
	c, err := config.Open(path)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "open config")
	}
	return c, nil
}
