package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	progressbar "github.com/schollz/progressbar/v3"

	"github.com/coprcheck/coprcheck/pkg/check/rpmgrill"
	"github.com/coprcheck/coprcheck/pkg/copr/api"
	"github.com/coprcheck/coprcheck/pkg/copr/builds"
	dbAdd "github.com/coprcheck/coprcheck/pkg/db/add"
	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	"github.com/coprcheck/coprcheck/pkg/fetch"
	"github.com/coprcheck/coprcheck/pkg/output"
	"github.com/coprcheck/coprcheck/pkg/report"
	"github.com/coprcheck/coprcheck/pkg/types"
	"github.com/coprcheck/coprcheck/pkg/util/exec"
)

type options struct {
	source      builds.Source
	url         string
	timeout     time.Duration
	concurrency int

	target string
	report string
	format report.Format
	accept []string

	noDownload bool
	noChecks   bool
	noStore    bool
	quiet      bool
	keep       bool

	dbtype string
	dbpath string
	debug  bool

	runner exec.Runner
	stdout io.Writer
	stderr io.Writer
}

type Option interface {
	apply(*options)
}

type sourceOption struct {
	s builds.Source
}

func (o sourceOption) apply(opts *options) {
	opts.source = o.s
}

// WithSource replaces the COPR API client. WithURL and WithTimeout are ignored then.
func WithSource(s builds.Source) Option {
	return sourceOption{s: s}
}

type urlOption string

func (o urlOption) apply(opts *options) {
	opts.url = string(o)
}

func WithURL(url string) Option {
	return urlOption(url)
}

type timeoutOption time.Duration

func (o timeoutOption) apply(opts *options) {
	opts.timeout = time.Duration(o)
}

func WithTimeout(timeout time.Duration) Option {
	return timeoutOption(timeout)
}

type concurrencyOption int

func (o concurrencyOption) apply(opts *options) {
	opts.concurrency = int(o)
}

func WithConcurrency(concurrency int) Option {
	return concurrencyOption(concurrency)
}

type targetOption string

func (o targetOption) apply(opts *options) {
	opts.target = string(o)
}

// WithTarget sets the directory the packages are downloaded to. Default: <user>-<project>.
func WithTarget(target string) Option {
	return targetOption(target)
}

type reportOption string

func (o reportOption) apply(opts *options) {
	opts.report = string(o)
}

// WithReport sets the report file. Default: <user>-<project>.yml.
func WithReport(report string) Option {
	return reportOption(report)
}

type formatOption report.Format

func (o formatOption) apply(opts *options) {
	opts.format = report.Format(o)
}

// WithFormat sets the report format. Default: picked from the report file extension.
func WithFormat(format report.Format) Option {
	return formatOption(format)
}

type acceptOption []string

func (o acceptOption) apply(opts *options) {
	opts.accept = []string(o)
}

func WithAccept(accept []string) Option {
	return acceptOption(accept)
}

type noDownloadOption bool

func (o noDownloadOption) apply(opts *options) {
	opts.noDownload = bool(o)
}

// WithNoDownload skips discovery and download and checks the existing contents of the target.
func WithNoDownload(noDownload bool) Option {
	return noDownloadOption(noDownload)
}

type noChecksOption bool

func (o noChecksOption) apply(opts *options) {
	opts.noChecks = bool(o)
}

func WithNoChecks(noChecks bool) Option {
	return noChecksOption(noChecks)
}

type noStoreOption bool

func (o noStoreOption) apply(opts *options) {
	opts.noStore = bool(o)
}

func WithNoStore(noStore bool) Option {
	return noStoreOption(noStore)
}

type quietOption bool

func (o quietOption) apply(opts *options) {
	opts.quiet = bool(o)
}

func WithQuiet(quiet bool) Option {
	return quietOption(quiet)
}

type keepUnpackedOption bool

func (o keepUnpackedOption) apply(opts *options) {
	opts.keep = bool(o)
}

// WithKeepUnpacked leaves the unpacked packages and rpmgrill.json files in the target.
func WithKeepUnpacked(keep bool) Option {
	return keepUnpackedOption(keep)
}

type dbtypeOption string

func (o dbtypeOption) apply(opts *options) {
	opts.dbtype = string(o)
}

func WithDBType(dbtype string) Option {
	return dbtypeOption(dbtype)
}

type dbpathOption string

func (o dbpathOption) apply(opts *options) {
	opts.dbpath = string(o)
}

func WithDBPath(dbpath string) Option {
	return dbpathOption(dbpath)
}

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

type runnerOption struct {
	r exec.Runner
}

func (o runnerOption) apply(opts *options) {
	opts.runner = o.r
}

// WithRunner sets the runner of wget and the rpmgrill tools.
func WithRunner(r exec.Runner) Option {
	return runnerOption{r: r}
}

type stdoutOption struct {
	w io.Writer
}

func (o stdoutOption) apply(opts *options) {
	opts.stdout = o.w
}

// WithStdout sets where the failure summary is printed.
func WithStdout(w io.Writer) Option {
	return stdoutOption{w: w}
}

type stderrOption struct {
	w io.Writer
}

func (o stderrOption) apply(opts *options) {
	opts.stderr = o.w
}

// WithStderr sets where phase status and download progress are printed.
func WithStderr(w io.Writer) Option {
	return stderrOption{w: w}
}

// Run checks the current builds of user/project: discover, download, scan, report and store.
// The report is nil when checks are disabled.
func Run(ctx context.Context, user, project string, opts ...Option) (*types.Report, error) {
	options := &options{
		url:         api.DefaultURL,
		timeout:     30 * time.Second,
		concurrency: 1,
		target:      fmt.Sprintf("%s-%s", user, project),
		report:      fmt.Sprintf("%s-%s.yml", user, project),
		accept:      fetch.DefaultAccept,
		dbtype:      "boltdb",
		runner:      exec.CommandRunner{},
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, o := range opts {
		o.apply(options)
	}
	if options.source == nil {
		options.source = api.New(
			api.WithURL(options.url),
			api.WithHTTPClient(&http.Client{Timeout: options.timeout}),
			api.WithLogger(slog.Default().With("project", fmt.Sprintf("%s/%s", user, project))),
		)
	}
	if options.format == "" {
		options.format = report.FormatFromPath(options.report)
	}
	status := options.stderr
	if options.quiet {
		status = io.Discard
	}

	startedAt := time.Now().UTC()
	slog.Debug("Run", "project", fmt.Sprintf("%s/%s", user, project), "target", options.target, "report", options.report)

	var artifacts []types.BuildArtifact
	if !options.noDownload {
		if err := output.RunningTask(status, "discovery", func() error {
			as, err := builds.Collect(builds.Current(ctx, options.source, user, project, builds.WithConcurrency(options.concurrency)))
			if err != nil {
				return errors.Wrap(err, "discover builds")
			}
			artifacts = as
			return nil
		}); err != nil {
			return nil, err
		}
		slog.Info("Discovered builds", "project", fmt.Sprintf("%s/%s", user, project), "artifacts", len(artifacts))

		if err := download(ctx, options, status, artifacts); err != nil {
			return nil, errors.Wrap(err, "download")
		}
	}

	if options.noChecks {
		return nil, nil
	}

	var r *types.Report
	if err := output.RunningTask(status, rpmgrill.Binary, func() error {
		var err error
		r, err = rpmgrill.Scan(ctx, options.target, rpmgrill.WithRunner(options.runner), rpmgrill.WithKeepUnpacked(options.keep))
		if err != nil {
			return errors.Wrap(err, "scan")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if !options.quiet && r.Failed() {
		output.ReportFailed(options.stdout, *r)
	}

	if err := report.Write(options.report, *r, options.format); err != nil {
		return nil, errors.Wrap(err, "write report")
	}

	if !options.noStore {
		dbopts := []dbAdd.Option{dbAdd.WithDBType(options.dbtype), dbAdd.WithDebug(options.debug)}
		if options.dbpath != "" {
			dbopts = append(dbopts, dbAdd.WithDBPath(options.dbpath))
		}
		if err := dbAdd.Add(dbTypes.Run{
			ID:        uuid.New(),
			Project:   fmt.Sprintf("%s/%s", user, project),
			StartedAt: startedAt,
			Builds:    artifacts,
			Report:    *r,
		}, dbopts...); err != nil {
			return nil, errors.Wrap(err, "store run")
		}
	}

	return r, nil
}

// download fetches every artifact. Failures do not stop the batch; they are returned together.
func download(ctx context.Context, options *options, status io.Writer, artifacts []types.BuildArtifact) error {
	if err := exec.RequireBinaries(fetch.Binary); err != nil {
		return errors.WithStack(err)
	}

	pb := func() *progressbar.ProgressBar {
		if status == io.Discard {
			return progressbar.DefaultSilent(int64(len(artifacts)))
		}
		return progressbar.NewOptions(len(artifacts),
			progressbar.OptionSetWriter(status),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(status) }),
		)
	}()
	defer pb.Finish()

	var merr *multierror.Error
	for _, a := range artifacts {
		if err := fetch.Fetch(ctx, a, fetch.WithPrefix(options.target), fetch.WithAccept(options.accept), fetch.WithRunner(options.runner)); err != nil {
			if ctx.Err() != nil {
				return errors.WithStack(ctx.Err())
			}
			slog.Warn("Failed to fetch build", "build", a.BuildID, "chroot", a.Chroot.String(), "err", err)
			merr = multierror.Append(merr, errors.Wrapf(err, "build %d %s", a.BuildID, a.Chroot))
		}
		_ = pb.Add(1)
	}

	return merr.ErrorOrNil()
}
