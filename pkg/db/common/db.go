package common

import (
	"iter"

	pebble "github.com/cockroachdb/pebble/v2"
	"github.com/pkg/errors"
	"github.com/redis/rueidis"
	bolt "go.etcd.io/bbolt"
	"gorm.io/gorm"

	"github.com/coprcheck/coprcheck/pkg/db/common/boltdb"
	pebbledb "github.com/coprcheck/coprcheck/pkg/db/common/pebble"
	"github.com/coprcheck/coprcheck/pkg/db/common/rdb"
	"github.com/coprcheck/coprcheck/pkg/db/common/redis"
	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
)

const (
	SchemaVersion = 1
)

type DB interface {
	Open() error
	Close() error

	GetMetadata() (*dbTypes.Metadata, error)
	PutMetadata(dbTypes.Metadata) error

	GetRun(string) (*dbTypes.Run, error)
	GetRuns() iter.Seq2[dbTypes.Run, error]
	PutRun(dbTypes.Run) error

	DeleteAll() error
	Initialize() error
}

type Config struct {
	Type    string
	Path    string
	Debug   bool
	Options DBOptions
}

type DBOptions struct {
	BoltDB *bolt.Options
	Pebble *pebble.Options
	Redis  *rueidis.ClientOption
	RDB    []gorm.Option
}

func (c *Config) New() (DB, error) {
	switch c.Type {
	case "boltdb":
		return &boltdb.Connection{Config: &boltdb.Config{Path: c.Path, Options: c.Options.BoltDB}}, nil
	case "pebble":
		return &pebbledb.Connection{Config: &pebbledb.Config{Path: c.Path, Options: c.Options.Pebble}}, nil
	case "redis":
		conf := c.Options.Redis
		if conf == nil {
			conf = &rueidis.ClientOption{InitAddress: []string{c.Path}}
		}
		return &redis.Connection{Config: conf}, nil
	case "sqlite3", "mysql", "postgres":
		return &rdb.Connection{Config: &rdb.Config{Type: c.Type, Path: c.Path, Debug: c.Debug, Options: c.Options.RDB}}, nil
	default:
		return nil, errors.Errorf("%s is not support dbtype", c.Type)
	}
}

// IsLocal reports whether the dbtype keeps its data under a local path.
func IsLocal(dbtype string) bool {
	switch dbtype {
	case "boltdb", "pebble", "sqlite3":
		return true
	default:
		return false
	}
}
