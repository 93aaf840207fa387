package rpmgrill

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/types"
	"github.com/coprcheck/coprcheck/pkg/util/exec"
)

const (
	Binary       = "rpmgrill"
	UnpackBinary = "rpmgrill-unpack-rpms"

	unpackedDir = "unpacked"
	resultFile  = "rpmgrill.json"
)

type result struct {
	Package *struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Release string `json:"release"`
	} `json:"package"`
	Tests []struct {
		Module  string `json:"module"`
		Results []struct {
			Code string `json:"code"`
			Diag string `json:"diag"`
		} `json:"results"`
	} `json:"tests"`
}

// ParseResults reads an rpmgrill.json document. It returns the NVR of the scanned package and the
// checks that reported anything; a check with no results is not a finding. A module listed more than
// once keeps the results of its last non-empty entry.
func ParseResults(r io.Reader) (string, types.Findings, error) {
	var res result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return "", nil, errors.Wrap(err, "decode rpmgrill results")
	}

	if res.Package == nil {
		return "", nil, errors.New("unexpected rpmgrill results. expected: package, actual: none")
	}
	for _, f := range []struct{ key, value string }{
		{key: "name", value: res.Package.Name},
		{key: "version", value: res.Package.Version},
		{key: "release", value: res.Package.Release},
	} {
		if f.value == "" {
			return "", nil, errors.Errorf("unexpected rpmgrill results. expected: package %s, actual: empty", f.key)
		}
	}
	nvr := strings.Join([]string{res.Package.Name, res.Package.Version, res.Package.Release}, "-")

	var findings types.Findings
	for _, t := range res.Tests {
		if len(t.Results) == 0 {
			continue
		}
		if i := slices.IndexFunc(findings, func(c types.CheckFindings) bool { return c.Check == t.Module }); i >= 0 {
			findings[i].Diagnostics = nil
		}
		for _, r := range t.Results {
			findings.Set(t.Module, r.Code, r.Diag)
		}
	}
	return nvr, findings, nil
}

// RPMDirs returns every directory under root, root included, that directly contains an RPM. A
// missing root has none.
func RPMDirs(root string) ([]string, error) {
	var dirs []string
	seen := make(map[string]struct{})
	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			// leftovers of a previous scan
			if path != root && d.Name() == unpackedDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".rpm" {
			return nil
		}

		dir := filepath.Dir(path)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}
	return dirs, nil
}

type options struct {
	runner exec.Runner
	keep   bool
}

type Option interface {
	apply(*options)
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

type keepUnpackedOption bool

func (o keepUnpackedOption) apply(opts *options) {
	opts.keep = bool(o)
}

// WithKeepUnpacked leaves the unpacked trees in place after scanning.
func WithKeepUnpacked(keep bool) Option {
	return keepUnpackedOption(keep)
}

// Scan runs rpmgrill on every package directory of the tree:
//
//	<root>/<distribution>/<build>/*.rpm
//
// Any tool failure aborts the scan and no report is returned. Problems found by rpmgrill are only
// reported in the findings.
func Scan(ctx context.Context, root string, opts ...Option) (*types.Report, error) {
	options := &options{
		runner: exec.CommandRunner{},
		keep:   false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	if err := exec.RequireBinaries(UnpackBinary, Binary); err != nil {
		return nil, errors.WithStack(err)
	}

	dirs, err := RPMDirs(root)
	if err != nil {
		return nil, errors.Wrap(err, "find rpm directories")
	}

	var report types.Report
	for _, dir := range dirs {
		nvr, findings, err := scanDir(ctx, options, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", dir)
		}
		slog.Debug("Scanned", "dir", dir, "package", nvr, "failed checks", len(findings))
		report.Put(nvr, findings)
	}

	return &report, nil
}

func scanDir(ctx context.Context, options *options, dir string) (string, types.Findings, error) {
	if err := options.runner.Run(ctx, UnpackBinary, dir); err != nil {
		return "", nil, errors.Wrap(err, "unpack")
	}

	unpacked := filepath.Join(dir, unpackedDir)
	if !options.keep {
		defer func() {
			if err := os.RemoveAll(unpacked); err != nil {
				slog.Warn("Remove unpacked tree", "dir", unpacked, "err", err)
			}
		}()
	}

	if err := options.runner.Run(ctx, Binary, unpacked); err != nil {
		return "", nil, errors.Wrap(err, "rpmgrill")
	}

	f, err := os.Open(filepath.Join(unpacked, resultFile))
	if err != nil {
		return "", nil, errors.Wrapf(err, "open %s", filepath.Join(unpacked, resultFile))
	}
	defer f.Close()

	nvr, findings, err := ParseResults(f)
	if err != nil {
		return "", nil, errors.Wrapf(err, "parse %s", filepath.Join(unpacked, resultFile))
	}
	return nvr, findings, nil
}
