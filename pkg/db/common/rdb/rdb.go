package rdb

import (
	"iter"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	"github.com/coprcheck/coprcheck/pkg/db/common/util"
)

type Config struct {
	Type    string
	Path    string
	Debug   bool
	Options []gorm.Option
}

type Connection struct {
	Config *Config

	conn *gorm.DB
}

type metadata struct {
	ID            uint `gorm:"primaryKey"`
	SchemaVersion uint
	CreatedBy     string
	LastModified  time.Time
}

func (metadata) TableName() string {
	return "metadata"
}

type run struct {
	Project   string `gorm:"primaryKey;size:255"`
	RunID     string `gorm:"size:36"`
	StartedAt time.Time
	Data      []byte
}

func (run) TableName() string {
	return "runs"
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	var dialector gorm.Dialector
	switch c.Config.Type {
	case "sqlite3":
		dialector = sqlite.Open(c.Config.Path)
	case "mysql":
		dialector = mysql.Open(c.Config.Path)
	case "postgres":
		dialector = postgres.Open(c.Config.Path)
	default:
		return errors.Errorf("%s is not support rdb dbtype", c.Config.Type)
	}

	db, err := gorm.Open(dialector, c.Config.Options...)
	if err != nil {
		return errors.WithStack(err)
	}
	if c.Config.Debug {
		db = db.Debug()
	}
	c.conn = db
	return nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	db, err := c.conn.DB()
	if err != nil {
		return errors.Wrap(err, "get *sql.DB")
	}
	return db.Close()
}

func (c *Connection) GetMetadata() (*dbTypes.Metadata, error) {
	var m metadata
	if err := c.conn.Take(&m, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(dbTypes.ErrNotFound, "select metadata")
		}
		return nil, errors.Wrap(err, "select metadata")
	}
	return &dbTypes.Metadata{
		SchemaVersion: m.SchemaVersion,
		CreatedBy:     m.CreatedBy,
		LastModified:  m.LastModified,
	}, nil
}

func (c *Connection) PutMetadata(md dbTypes.Metadata) error {
	if err := c.conn.Save(&metadata{
		ID:            1,
		SchemaVersion: md.SchemaVersion,
		CreatedBy:     md.CreatedBy,
		LastModified:  md.LastModified,
	}).Error; err != nil {
		return errors.Wrap(err, "save metadata")
	}
	return nil
}

func (c *Connection) GetRun(project string) (*dbTypes.Run, error) {
	var r run
	if err := c.conn.Where("project = ?", project).Take(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(dbTypes.ErrNotFound, "select run %s", project)
		}
		return nil, errors.Wrapf(err, "select run %s", project)
	}

	var v dbTypes.Run
	if err := util.Unmarshal(r.Data, true, &v); err != nil {
		return nil, errors.Wrapf(err, "unmarshal run %s", project)
	}
	return &v, nil
}

func (c *Connection) GetRuns() iter.Seq2[dbTypes.Run, error] {
	return func(yield func(dbTypes.Run, error) bool) {
		var rs []run
		if err := c.conn.Order("project").Find(&rs).Error; err != nil {
			yield(dbTypes.Run{}, errors.Wrap(err, "select runs"))
			return
		}

		for _, r := range rs {
			var v dbTypes.Run
			if err := util.Unmarshal(r.Data, true, &v); err != nil {
				yield(dbTypes.Run{}, errors.Wrapf(err, "unmarshal run %s", r.Project))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (c *Connection) PutRun(r dbTypes.Run) error {
	bs, err := util.Marshal(r, true)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}

	if err := c.conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(&run{
		Project:   r.Project,
		RunID:     r.ID.String(),
		StartedAt: r.StartedAt,
		Data:      bs,
	}).Error; err != nil {
		return errors.Wrapf(err, "upsert run %s", r.Project)
	}
	return nil
}

func (c *Connection) DeleteAll() error {
	if err := c.conn.Migrator().DropTable(&metadata{}, &run{}); err != nil {
		return errors.Wrap(err, "drop tables")
	}
	return nil
}

func (c *Connection) Initialize() error {
	if err := c.conn.AutoMigrate(&metadata{}, &run{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
