package init

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/config"
)

type options struct {
	config string
	force  bool
}

type Option interface {
	apply(*options)
}

type configOption string

func (o configOption) apply(opts *options) {
	opts.config = string(o)
}

func WithConfig(config string) Option {
	return configOption(config)
}

type forceOption bool

func (o forceOption) apply(opts *options) {
	opts.force = bool(o)
}

// WithForce overwrites an existing configuration file.
func WithForce(force bool) Option {
	return forceOption(force)
}

// Init writes the default configuration.
func Init(opts ...Option) error {
	options := &options{
		config: config.DefaultPath(),
		force:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	if _, err := os.Stat(options.config); err == nil && !options.force {
		return errors.Errorf("%s already exists", options.config)
	}

	if err := config.Write(options.config, config.Default()); err != nil {
		return errors.Wrap(err, "write config")
	}

	slog.Info("Initialized config", "path", options.config)

	return nil
}
