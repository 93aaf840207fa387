package boltdb

import (
	"iter"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	"github.com/coprcheck/coprcheck/pkg/db/common/util"
)

// boltdb: metadata:db -> dbTypes.Metadata

// boltdb: run:<user>/<project> -> dbTypes.Run (zstd)

type Config struct {
	Path    string
	Options *bolt.Options
}

type Connection struct {
	Config *Config

	conn *bolt.DB
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	db, err := bolt.Open(c.Config.Path, 0600, c.Config.Options)
	if err != nil {
		return errors.WithStack(err)
	}
	c.conn = db
	return nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Connection) GetMetadata() (*dbTypes.Metadata, error) {
	var v dbTypes.Metadata
	if err := c.conn.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("metadata"))
		if b == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "bucket:%q", "metadata")
		}

		bs := b.Get([]byte("db"))
		if bs == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "metadata:%q", "db")
		}
		if err := util.Unmarshal(bs, false, &v); err != nil {
			return errors.Wrap(err, "unmarshal metadata:db")
		}

		return nil
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return &v, nil
}

func (c *Connection) PutMetadata(metadata dbTypes.Metadata) error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("metadata"))
		if err != nil {
			return errors.Wrapf(err, "create bucket:%q if not exists", "metadata")
		}

		bs, err := util.Marshal(metadata, false)
		if err != nil {
			return errors.Wrap(err, "marshal metadata")
		}

		if err := b.Put([]byte("db"), bs); err != nil {
			return errors.Wrap(err, "put metadata:db")
		}

		return nil
	})
}

func (c *Connection) GetRun(project string) (*dbTypes.Run, error) {
	var v dbTypes.Run
	if err := c.conn.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("run"))
		if b == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "bucket:%q", "run")
		}

		bs := b.Get([]byte(project))
		if bs == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "run:%q", project)
		}
		if err := util.Unmarshal(bs, true, &v); err != nil {
			return errors.Wrapf(err, "unmarshal run:%s", project)
		}

		return nil
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return &v, nil
}

func (c *Connection) GetRuns() iter.Seq2[dbTypes.Run, error] {
	return func(yield func(dbTypes.Run, error) bool) {
		var runs []dbTypes.Run
		if err := c.conn.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte("run"))
			if b == nil {
				return nil
			}
			return b.ForEach(func(k, v []byte) error {
				var r dbTypes.Run
				if err := util.Unmarshal(v, true, &r); err != nil {
					return errors.Wrapf(err, "unmarshal run:%s", k)
				}
				runs = append(runs, r)
				return nil
			})
		}); err != nil {
			yield(dbTypes.Run{}, errors.WithStack(err))
			return
		}

		for _, r := range runs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (c *Connection) PutRun(run dbTypes.Run) error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("run"))
		if err != nil {
			return errors.Wrapf(err, "create bucket:%q if not exists", "run")
		}

		bs, err := util.Marshal(run, true)
		if err != nil {
			return errors.Wrap(err, "marshal run")
		}

		if err := b.Put([]byte(run.Project), bs); err != nil {
			return errors.Wrapf(err, "put run:%s", run.Project)
		}

		return nil
	})
}

func (c *Connection) DeleteAll() error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		var ns [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			ns = append(ns, name)
			return nil
		}); err != nil {
			return errors.Wrap(err, "foreach root")
		}

		for _, n := range ns {
			if err := tx.DeleteBucket(n); err != nil {
				return errors.Wrapf(err, "delete bucket:%q", n)
			}
		}

		return nil
	})
}

func (c *Connection) Initialize() error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		for _, n := range []string{"metadata", "run"} {
			if _, err := tx.CreateBucketIfNotExists([]byte(n)); err != nil {
				return errors.Wrapf(err, "create bucket:%q if not exists", n)
			}
		}
		return nil
	})
}
