package common_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/rueidis"

	"github.com/coprcheck/coprcheck/pkg/chroot"
	"github.com/coprcheck/coprcheck/pkg/db/common"
	"github.com/coprcheck/coprcheck/pkg/db/common/boltdb"
	"github.com/coprcheck/coprcheck/pkg/db/common/pebble"
	"github.com/coprcheck/coprcheck/pkg/db/common/rdb"
	"github.com/coprcheck/coprcheck/pkg/db/common/redis"
	dbTypes "github.com/coprcheck/coprcheck/pkg/db/common/types"
	"github.com/coprcheck/coprcheck/pkg/types"
)

func TestConfig_New(t *testing.T) {
	tests := []struct {
		name    string
		config  common.Config
		want    common.DB
		wantErr bool
	}{
		{
			name:   "boltdb",
			config: common.Config{Type: "boltdb", Path: "coprcheck.db"},
			want:   &boltdb.Connection{Config: &boltdb.Config{Path: "coprcheck.db"}},
		},
		{
			name:   "pebble",
			config: common.Config{Type: "pebble", Path: "coprcheck"},
			want:   &pebble.Connection{Config: &pebble.Config{Path: "coprcheck"}},
		},
		{
			name:   "sqlite3",
			config: common.Config{Type: "sqlite3", Path: "coprcheck.sqlite3", Debug: true},
			want:   &rdb.Connection{Config: &rdb.Config{Type: "sqlite3", Path: "coprcheck.sqlite3", Debug: true}},
		},
		{
			name:    "unknown",
			config:  common.Config{Type: "leveldb", Path: "coprcheck"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.config.New()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreUnexported(boltdb.Connection{}, pebble.Connection{}, rdb.Connection{})); diff != "" {
				t.Errorf("Config.New(). (-expected +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_New_Redis(t *testing.T) {
	got, err := (&common.Config{Type: "redis", Path: "127.0.0.1:6379"}).New()
	if err != nil {
		t.Fatalf("Config.New() error = %v", err)
	}
	c, ok := got.(*redis.Connection)
	if !ok {
		t.Fatalf("Config.New() = %T, want %T", got, &redis.Connection{})
	}
	if diff := cmp.Diff([]string{"127.0.0.1:6379"}, c.Config.InitAddress); diff != "" {
		t.Errorf("Config.New() InitAddress. (-expected +got):\n%s", diff)
	}

	opt := &rueidis.ClientOption{InitAddress: []string{"10.0.0.1:6379"}, SelectDB: 2}
	got, err = (&common.Config{Type: "redis", Path: "127.0.0.1:6379", Options: common.DBOptions{Redis: opt}}).New()
	if err != nil {
		t.Fatalf("Config.New() error = %v", err)
	}
	if c := got.(*redis.Connection); c.Config != opt {
		t.Errorf("Config.New() did not use the given redis options")
	}
}

func TestDB(t *testing.T) {
	tests := []struct {
		name   string
		config func(t *testing.T) common.Config
	}{
		{
			name: "boltdb",
			config: func(t *testing.T) common.Config {
				return common.Config{Type: "boltdb", Path: filepath.Join(t.TempDir(), "coprcheck.db")}
			},
		},
		{
			name: "pebble",
			config: func(t *testing.T) common.Config {
				return common.Config{Type: "pebble", Path: filepath.Join(t.TempDir(), "coprcheck")}
			},
		},
		{
			name: "sqlite3",
			config: func(t *testing.T) common.Config {
				return common.Config{Type: "sqlite3", Path: filepath.Join(t.TempDir(), "coprcheck.sqlite3")}
			},
		},
		{
			name: "redis",
			config: func(t *testing.T) common.Config {
				addr := os.Getenv("COPRCHECK_TEST_REDIS")
				if addr == "" {
					t.Skip("COPRCHECK_TEST_REDIS is not set")
				}
				return common.Config{Type: "redis", Path: addr}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.config(t)
			dbc, err := c.New()
			if err != nil {
				t.Fatalf("new db. error = %v", err)
			}
			if err := dbc.Open(); err != nil {
				t.Fatalf("open db. error = %v", err)
			}
			defer dbc.Close()

			if err := dbc.DeleteAll(); err != nil {
				t.Fatalf("delete all. error = %v", err)
			}
			if err := dbc.Initialize(); err != nil {
				t.Fatalf("initialize. error = %v", err)
			}

			testDB(t, dbc)
		})
	}
}

func testDB(t *testing.T, dbc common.DB) {
	t.Helper()

	if _, err := dbc.GetMetadata(); !errors.Is(err, dbTypes.ErrNotFound) {
		t.Errorf("GetMetadata() on an empty db. error = %v, want %v", err, dbTypes.ErrNotFound)
	}
	md := dbTypes.Metadata{
		SchemaVersion: common.SchemaVersion,
		CreatedBy:     "coprcheck test",
		LastModified:  time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := dbc.PutMetadata(md); err != nil {
		t.Fatalf("PutMetadata() error = %v", err)
	}
	gotMD, err := dbc.GetMetadata()
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if diff := cmp.Diff(&md, gotMD, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("GetMetadata(). (-expected +got):\n%s", diff)
	}

	if _, err := dbc.GetRun("user/missing"); !errors.Is(err, dbTypes.ErrNotFound) {
		t.Errorf("GetRun() of a missing project. error = %v, want %v", err, dbTypes.ErrNotFound)
	}

	first := testRun(t, "user/proj", "bad rpath")
	second := testRun(t, "other/proj", "no relro")
	latest := testRun(t, "user/proj", "still bad")
	for _, r := range []dbTypes.Run{first, second, latest} {
		if err := dbc.PutRun(r); err != nil {
			t.Fatalf("PutRun(%s) error = %v", r.Project, err)
		}
	}

	got, err := dbc.GetRun("user/proj")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if diff := cmp.Diff(&latest, got, cmpopts.EquateEmpty(), cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("GetRun(). (-expected +got):\n%s", diff)
	}

	var projects []string
	for r, err := range dbc.GetRuns() {
		if err != nil {
			t.Fatalf("GetRuns() error = %v", err)
		}
		projects = append(projects, r.Project)
	}
	if diff := cmp.Diff([]string{"other/proj", "user/proj"}, projects); diff != "" {
		t.Errorf("GetRuns(). (-expected +got):\n%s", diff)
	}

	if err := dbc.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if err := dbc.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := dbc.GetRun("user/proj"); !errors.Is(err, dbTypes.ErrNotFound) {
		t.Errorf("GetRun() after DeleteAll. error = %v, want %v", err, dbTypes.ErrNotFound)
	}
}

func testRun(t *testing.T, project, diag string) dbTypes.Run {
	t.Helper()

	c, err := chroot.Parse("fedora-30-x86_64")
	if err != nil {
		t.Fatalf("chroot.Parse() error = %v", err)
	}

	var r types.Report
	r.Put("foo-1.0-1.fc30", types.Findings{
		{Check: "rpaths", Diagnostics: []types.Diagnostic{{Code: "E1", Diag: diag}}},
	})
	r.Put("bar-1.0-1.fc30", nil)

	return dbTypes.Run{
		ID:        uuid.New(),
		Project:   project,
		StartedAt: time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC),
		Builds: []types.BuildArtifact{{
			BuildID: 7,
			Chroot:  c,
			URL:     "https://example.com/results/" + project + "/fedora-30-x86_64/00000007-foo/",
		}},
		Report: r,
	}
}
