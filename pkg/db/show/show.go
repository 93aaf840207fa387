package show

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	db "github.com/coprcheck/coprcheck/pkg/db/common"
	utilos "github.com/coprcheck/coprcheck/pkg/util/os"
)

type options struct {
	dbtype string
	dbpath string
	dbopts db.DBOptions
	format string
	writer io.Writer

	debug bool
}

type Option interface {
	apply(*options)
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

type dboptsOption db.DBOptions

func (o dboptsOption) apply(opts *options) {
	opts.dbopts = db.DBOptions(o)
}

func WithDBOptions(dbopts db.DBOptions) Option {
	return dboptsOption(dbopts)
}

type formatOption string

func (o formatOption) apply(opts *options) {
	opts.format = string(o)
}

// WithFormat selects how a single run is printed: yaml (default) or json.
func WithFormat(format string) Option {
	return formatOption(format)
}

type writerOption struct {
	w io.Writer
}

func (o writerOption) apply(opts *options) {
	opts.writer = o.w
}

func WithWriter(w io.Writer) Option {
	return writerOption{w: w}
}

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

// Show prints the latest run of project. Without a project, every stored run is summarized in a table.
func Show(project string, opts ...Option) error {
	options := &options{
		dbtype: "boltdb",
		dbpath: filepath.Join(utilos.UserCacheDir(), "coprcheck.db"),
		dbopts: db.DBOptions{BoltDB: &bolt.Options{ReadOnly: true}},
		format: "yaml",
		writer: os.Stdout,
		debug:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	dbc, err := (&db.Config{
		Type:    options.dbtype,
		Path:    options.dbpath,
		Debug:   options.debug,
		Options: options.dbopts,
	}).New()
	if err != nil {
		return errors.Wrap(err, "new db connection")
	}
	if err := dbc.Open(); err != nil {
		return errors.Wrap(err, "open db")
	}
	defer dbc.Close()

	slog.Debug("Get Metadata")
	meta, err := dbc.GetMetadata()
	if err != nil {
		return errors.Wrap(err, "get metadata")
	}
	if meta.SchemaVersion != db.SchemaVersion {
		return errors.Errorf("unexpected schema version. expected: %d, actual: %d", db.SchemaVersion, meta.SchemaVersion)
	}

	if project == "" {
		return summarize(options.writer, dbc)
	}

	slog.Debug("Get Run", "project", project)
	r, err := dbc.GetRun(project)
	if err != nil {
		return errors.Wrapf(err, "get run %s", project)
	}

	switch options.format {
	case "yaml":
		e := yaml.NewEncoder(options.writer)
		e.SetIndent(2)
		if err := e.Encode(r); err != nil {
			return errors.Wrapf(err, "encode %s", project)
		}
		if err := e.Close(); err != nil {
			return errors.Wrap(err, "close yaml encoder")
		}
	case "json":
		e := json.NewEncoder(options.writer)
		e.SetIndent("", "  ")
		e.SetEscapeHTML(false)
		if err := e.Encode(r); err != nil {
			return errors.Wrapf(err, "encode %s", project)
		}
	default:
		return errors.Errorf("unexpected format. accepts: %q, actual: %q", []string{"yaml", "json"}, options.format)
	}

	return nil
}

func summarize(w io.Writer, dbc db.DB) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Project", "Run", "Started At", "Builds", "Packages", "Failed"})
	for r, err := range dbc.GetRuns() {
		if err != nil {
			return errors.Wrap(err, "get runs")
		}

		failed := 0
		for _, p := range r.Report.Packages {
			if len(p.Checks) > 0 {
				failed++
			}
		}
		t.AppendRow(table.Row{r.Project, r.ID.String(), r.StartedAt.Format("2006-01-02 15:04:05"), strconv.Itoa(len(r.Builds)), strconv.Itoa(len(r.Report.Packages)), strconv.Itoa(failed)})
	}
	t.Render()
	return nil
}
