package redis

import (
	"context"
	"iter"
	"maps"
	"slices"

	"github.com/pkg/errors"
	"github.com/redis/rueidis"

	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	"github.com/coprcheck/coprcheck/pkg/db/common/util"
)

// redis: HASH KEY: "metadata" FIELD: "db" VALUE: dbTypes.Metadata

// redis: HASH KEY: "run" FIELD: "<user>/<project>" VALUE: dbTypes.Run (zstd)

type Connection struct {
	Config *rueidis.ClientOption

	conn rueidis.Client
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	client, err := rueidis.NewClient(*c.Config)
	if err != nil {
		return errors.WithStack(err)
	}
	c.conn = client
	return nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.Close()
	return nil
}

func (c *Connection) GetMetadata() (*dbTypes.Metadata, error) {
	bs, err := c.conn.Do(context.TODO(), c.conn.B().Hget().Key("metadata").Field("db").Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, errors.Wrapf(dbTypes.ErrNotFound, "HGET %s %s", "metadata", "db")
		}
		return nil, errors.Wrapf(err, "HGET %s %s", "metadata", "db")
	}

	var v dbTypes.Metadata
	if err := util.Unmarshal(bs, false, &v); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", "metadata -> db")
	}

	return &v, nil
}

func (c *Connection) PutMetadata(metadata dbTypes.Metadata) error {
	bs, err := util.Marshal(metadata, false)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}

	if err := c.conn.Do(context.TODO(), c.conn.B().Hset().Key("metadata").FieldValue().FieldValue("db", string(bs)).Build()).Error(); err != nil {
		return errors.Wrapf(err, "HSET %s %s %q", "metadata", "db", string(bs))
	}

	return nil
}

func (c *Connection) GetRun(project string) (*dbTypes.Run, error) {
	bs, err := c.conn.Do(context.TODO(), c.conn.B().Hget().Key("run").Field(project).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, errors.Wrapf(dbTypes.ErrNotFound, "HGET %s %s", "run", project)
		}
		return nil, errors.Wrapf(err, "HGET %s %s", "run", project)
	}

	var v dbTypes.Run
	if err := util.Unmarshal(bs, true, &v); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", "run -> "+project)
	}

	return &v, nil
}

func (c *Connection) GetRuns() iter.Seq2[dbTypes.Run, error] {
	return func(yield func(dbTypes.Run, error) bool) {
		m, err := c.conn.Do(context.TODO(), c.conn.B().Hgetall().Key("run").Build()).AsStrMap()
		if err != nil {
			yield(dbTypes.Run{}, errors.Wrapf(err, "HGETALL %s", "run"))
			return
		}

		for _, project := range slices.Sorted(maps.Keys(m)) {
			var r dbTypes.Run
			if err := util.Unmarshal([]byte(m[project]), true, &r); err != nil {
				yield(dbTypes.Run{}, errors.Wrapf(err, "unmarshal %s", "run -> "+project))
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (c *Connection) PutRun(run dbTypes.Run) error {
	bs, err := util.Marshal(run, true)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}

	if err := c.conn.Do(context.TODO(), c.conn.B().Hset().Key("run").FieldValue().FieldValue(run.Project, rueidis.BinaryString(bs)).Build()).Error(); err != nil {
		return errors.Wrapf(err, "HSET %s %s", "run", run.Project)
	}

	return nil
}

func (c *Connection) DeleteAll() error {
	if err := c.conn.Do(context.TODO(), c.conn.B().Flushdb().Build()).Error(); err != nil {
		return errors.Wrap(err, "FLUSHDB")
	}

	return nil
}

func (c *Connection) Initialize() error {
	return nil
}
