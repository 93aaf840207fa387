package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	cmdconfig "github.com/coprcheck/coprcheck/pkg/cmd/util/config"
	"github.com/coprcheck/coprcheck/pkg/config"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.json")
	if err := os.WriteFile(existing, []byte(`{"copr": {"concurrency": 3}}`), 0644); err != nil {
		t.Fatalf("write config. error = %v", err)
	}
	missing := filepath.Join(dir, "missing.json")

	tests := []struct {
		name            string
		args            []string
		path            string
		wantConcurrency int
		wantErr         bool
	}{
		{name: "default path exists", path: existing, wantConcurrency: 3},
		{name: "default path missing", path: missing, wantConcurrency: 1},
		{name: "explicit path", args: []string{"--config", existing}, wantConcurrency: 3},
		{name: "explicit path missing", args: []string{"--config", missing}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			path := flags.String("config", tt.path, "")
			if err := flags.Parse(tt.args); err != nil {
				t.Fatalf("parse flags. error = %v", err)
			}

			got, err := cmdconfig.Load(flags, *path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.wantConcurrency, got.Copr.Concurrency); diff != "" {
				t.Errorf("Load() concurrency. (-expected +got):\n%s", diff)
			}
			if diff := cmp.Diff(config.DefaultTimeout, got.Copr.Timeout); diff != "" {
				t.Errorf("Load() timeout. (-expected +got):\n%s", diff)
			}
		})
	}
}
