package init

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	db "github.com/coprcheck/coprcheck/pkg/db/common"
	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	utilos "github.com/coprcheck/coprcheck/pkg/util/os"
	"github.com/coprcheck/coprcheck/pkg/version"
)

type options struct {
	dbtype string
	dbpath string
	dbopts db.DBOptions

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

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

// Init drops every stored run and writes fresh metadata. It returns how many runs were dropped.
func Init(opts ...Option) (int, error) {
	options := &options{
		dbtype: "boltdb",
		dbpath: filepath.Join(utilos.UserCacheDir(), "coprcheck.db"),
		dbopts: db.DBOptions{BoltDB: bolt.DefaultOptions},
		debug:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	if db.IsLocal(options.dbtype) {
		if err := os.MkdirAll(filepath.Dir(options.dbpath), 0755); err != nil {
			return 0, errors.Wrapf(err, "mkdir %s", filepath.Dir(options.dbpath))
		}
	}

	dbc, err := (&db.Config{
		Type:    options.dbtype,
		Path:    options.dbpath,
		Debug:   options.debug,
		Options: options.dbopts,
	}).New()
	if err != nil {
		return 0, errors.Wrap(err, "new db connection")
	}
	if err := dbc.Open(); err != nil {
		return 0, errors.Wrap(err, "open db")
	}
	defer dbc.Close()

	dropped := 0
	for r, err := range dbc.GetRuns() {
		if err != nil {
			// runs of a missing or older schema are dropped uncounted
			slog.Debug("Count stored runs", "err", err)
			break
		}
		slog.Debug("Drop run", "project", r.Project, "id", r.ID.String(), "started at", r.StartedAt)
		dropped++
	}

	slog.Info("Delete stored runs", "runs", dropped)
	if err := dbc.DeleteAll(); err != nil {
		return 0, errors.Wrap(err, "delete all")
	}

	slog.Info("Initialize DB", "type", options.dbtype, "schema version", db.SchemaVersion)
	if err := dbc.Initialize(); err != nil {
		return 0, errors.Wrap(err, "initialize")
	}

	if err := dbc.PutMetadata(dbTypes.Metadata{
		SchemaVersion: db.SchemaVersion,
		CreatedBy:     version.String(),
		LastModified:  time.Now().UTC(),
	}); err != nil {
		return 0, errors.Wrap(err, "put metadata")
	}

	return dropped, nil
}
