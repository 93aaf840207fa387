package pebble

import (
	"fmt"
	"iter"

	pebble "github.com/cockroachdb/pebble/v2"
	"github.com/pkg/errors"

	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	"github.com/coprcheck/coprcheck/pkg/db/common/util"
)

// pebble: metadata#db -> dbTypes.Metadata

// pebble: run#<user>/<project> -> dbTypes.Run (zstd)

const KEY_DELEM = "#"

type Config struct {
	Path    string
	Options *pebble.Options
}

type Connection struct {
	Config *Config

	conn *pebble.DB
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	opts := c.Config.Options
	if opts == nil {
		opts = &pebble.Options{}
	}

	db, err := pebble.Open(c.Config.Path, opts)
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
	if err := c.getValue(fmt.Sprintf("metadata%sdb", KEY_DELEM), false, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Connection) PutMetadata(metadata dbTypes.Metadata) error {
	return c.setValue(fmt.Sprintf("metadata%sdb", KEY_DELEM), false, metadata)
}

func (c *Connection) GetRun(project string) (*dbTypes.Run, error) {
	var v dbTypes.Run
	if err := c.getValue(runKey(project), true, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Connection) GetRuns() iter.Seq2[dbTypes.Run, error] {
	return func(yield func(dbTypes.Run, error) bool) {
		it, err := c.conn.NewIter(&pebble.IterOptions{
			LowerBound: []byte(runKey("")),
			UpperBound: prefixUpperBound([]byte(runKey(""))),
		})
		if err != nil {
			yield(dbTypes.Run{}, errors.Wrap(err, "new iterator"))
			return
		}
		defer it.Close()

		for it.First(); it.Valid(); it.Next() {
			bs, err := it.ValueAndErr()
			if err != nil {
				yield(dbTypes.Run{}, errors.Wrapf(err, "value of %s", it.Key()))
				return
			}

			var r dbTypes.Run
			if err := util.Unmarshal(bs, true, &r); err != nil {
				yield(dbTypes.Run{}, errors.Wrapf(err, "unmarshal %s", it.Key()))
				return
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(dbTypes.Run{}, errors.Wrap(err, "iterate runs"))
		}
	}
}

func (c *Connection) PutRun(run dbTypes.Run) error {
	return c.setValue(runKey(run.Project), true, run)
}

func (c *Connection) DeleteAll() error {
	it, err := c.conn.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "new iterator")
	}
	var first, last []byte
	if it.First() {
		first = append([]byte(nil), it.Key()...)
	}
	if it.Last() {
		last = append([]byte(nil), it.Key()...)
	}
	if err := it.Close(); err != nil {
		return errors.Wrap(err, "close iterator")
	}
	if first == nil {
		return nil
	}

	if err := c.conn.DeleteRange(first, append(last, 0x00), pebble.Sync); err != nil {
		return errors.Wrapf(err, "delete range %s - %s", first, last)
	}
	return nil
}

func (c *Connection) Initialize() error {
	return nil
}

func (c *Connection) getValue(key string, compress bool, ref any) error {
	bs, closer, err := c.conn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return errors.Wrapf(dbTypes.ErrNotFound, "get %s", key)
		}
		return errors.Wrapf(err, "get %s", key)
	}
	defer closer.Close()

	if err := util.Unmarshal(bs, compress, ref); err != nil {
		return errors.Wrapf(err, "unmarshal %s", key)
	}
	return nil
}

func (c *Connection) setValue(key string, compress bool, value any) error {
	bs, err := util.Marshal(value, compress)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}

	if err := c.conn.Set([]byte(key), bs, pebble.Sync); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}

	return nil
}

func runKey(project string) string {
	return fmt.Sprintf("run%s%s", KEY_DELEM, project)
}

func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
