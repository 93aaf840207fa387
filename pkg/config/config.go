package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/copr/api"
	"github.com/coprcheck/coprcheck/pkg/fetch"
	utilos "github.com/coprcheck/coprcheck/pkg/util/os"
)

const (
	DefaultTimeout = 30
	DefaultDBType  = "boltdb"
)

func DefaultPath() string {
	return filepath.Join(utilos.UserConfigDir(), "config.json")
}

func DefaultDBPath() string {
	return filepath.Join(utilos.UserCacheDir(), "coprcheck.db")
}

// Default returns a configuration with every section filled.
func Default() Config {
	var c Config
	c.Fill()
	return c
}

// Open reads the configuration at path and fills the missing values with their defaults.
func Open(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var c Config
	d := json.NewDecoder(f)
	d.DisallowUnknownFields()
	if err := d.Decode(&c); err != nil {
		return Config{}, errors.Wrapf(err, "decode %s", path)
	}
	c.Fill()

	return c, nil
}

func (c *Config) Fill() {
	if c.Copr == nil {
		c.Copr = &Copr{}
	}
	if c.Copr.URL == "" {
		c.Copr.URL = api.DefaultURL
	}
	if c.Copr.Timeout <= 0 {
		c.Copr.Timeout = DefaultTimeout
	}
	if c.Copr.Concurrency <= 0 {
		c.Copr.Concurrency = 1
	}

	if c.Fetch == nil {
		c.Fetch = &Fetch{}
	}
	if len(c.Fetch.Accept) == 0 {
		c.Fetch.Accept = append([]string(nil), fetch.DefaultAccept...)
	}

	if c.DB == nil {
		c.DB = &DB{}
	}
	if c.DB.Type == "" {
		c.DB.Type = DefaultDBType
	}
	if c.DB.Path == "" {
		c.DB.Path = DefaultDBPath()
	}

	if c.Report == nil {
		c.Report = &Report{}
	}
}

func Write(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}

	return nil
}
