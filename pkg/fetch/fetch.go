package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/types"
	"github.com/coprcheck/coprcheck/pkg/util/exec"
)

const Binary = "wget"

var DefaultAccept = []string{"rpm", "log.gz"}

type options struct {
	prefix string
	accept []string
	runner exec.Runner
}

type Option interface {
	apply(*options)
}

type prefixOption string

func (o prefixOption) apply(opts *options) {
	opts.prefix = string(o)
}

// WithPrefix sets the local root of the retrieved tree.
func WithPrefix(prefix string) Option {
	return prefixOption(prefix)
}

type acceptOption []string

func (o acceptOption) apply(opts *options) {
	opts.accept = []string(o)
}

// WithAccept sets the accepted file extensions, without the leading dot.
func WithAccept(accept []string) Option {
	return acceptOption(accept)
}

type runnerOption struct {
	r exec.Runner
}

func (o runnerOption) apply(opts *options) {
	opts.runner = o.r
}

func WithRunner(r exec.Runner) Option {
	return runnerOption{r: r}
}

// Fetch downloads the results directory of b into <prefix>/<distribution>/<last URL segment>.
// Callers check for Binary with exec.RequireBinaries once before fetching a batch.
func Fetch(ctx context.Context, b types.BuildArtifact, opts ...Option) error {
	options := &options{
		prefix: ".",
		accept: DefaultAccept,
		runner: exec.CommandRunner{},
	}
	for _, o := range opts {
		o.apply(options)
	}

	args, err := Args(b, options.prefix, options.accept)
	if err != nil {
		return errors.Wrapf(err, "build %d %s", b.BuildID, b.Chroot)
	}

	slog.Debug("Fetch", "build", b.BuildID, "chroot", b.Chroot.String(), "url", b.URL)
	if err := options.runner.Run(ctx, Binary, args...); err != nil {
		return errors.Wrapf(err, "fetch %s", b.URL)
	}
	return nil
}

// Args builds the wget arguments recreating only the last segment of the remote directory under
// <prefix>/<distribution>, without ascending to the parent directory.
func Args(b types.BuildArtifact, prefix string, accept []string) ([]string, error) {
	u, err := url.Parse(b.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", b.URL)
	}
	if !u.IsAbs() {
		return nil, errors.Errorf("unexpected url. expected: absolute url, actual: %q", b.URL)
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return nil, errors.Errorf("unexpected url. expected: url with a directory path, actual: %q", b.URL)
	}

	args := []string{
		"--quiet",
		"--no-host-directories",
		fmt.Sprintf("--cut-dirs=%d", len(segments)-1),
		fmt.Sprintf("--directory-prefix=%s", filepath.Clean(filepath.Join(prefix, b.Chroot.Distribution()))),
		"--recursive",
		"--no-parent",
		"--level=1",
	}
	for _, ext := range accept {
		args = append(args, fmt.Sprintf("--accept=*.%s", ext))
	}
	return append(args, b.URL), nil
}
