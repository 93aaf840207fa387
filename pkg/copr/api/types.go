package api

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Monitor is the response of the project monitor endpoint (API v1).
type Monitor struct {
	Output   string    `json:"output"`
	Packages []Package `json:"packages"`
}

type Package struct {
	Name    string        `json:"pkg_name"`
	Results ChrootResults `json:"results"`
}

// ChrootResults keeps the per-chroot build status of a package in document order.
type ChrootResults []ChrootResult

type ChrootResult struct {
	Chroot string
	Result *Result
}

type Result struct {
	BuildID    int    `json:"build_id"`
	Status     string `json:"status"`
	PkgVersion string `json:"pkg_version,omitempty"`
}

func (rs *ChrootResults) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*rs = nil
		return nil
	}

	d := json.NewDecoder(bytes.NewReader(data))
	t, err := d.Token()
	if err != nil {
		return errors.Wrap(err, "read results")
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("unexpected results. expected: %q, actual: %v", "{", t)
	}

	var parsed ChrootResults
	for d.More() {
		t, err := d.Token()
		if err != nil {
			return errors.Wrap(err, "read chroot name")
		}
		name, ok := t.(string)
		if !ok {
			return errors.Errorf("unexpected chroot name. expected: string, actual: %v", t)
		}

		var r *Result
		if err := d.Decode(&r); err != nil {
			return errors.Wrapf(err, "decode result of %s", name)
		}
		parsed = append(parsed, ChrootResult{Chroot: name, Result: r})
	}
	if _, err := d.Token(); err != nil {
		return errors.Wrap(err, "read results end")
	}

	*rs = parsed
	return nil
}

// BuildDetail is the response of the build endpoint (API v2) with embedded build tasks.
type BuildDetail struct {
	Build map[string]any `json:"build"`
	Tasks []*Task        `json:"build_tasks"`
}

type Task struct {
	BuildTask *BuildTask `json:"build_task"`
}

type BuildTask struct {
	ChrootName   string `json:"chroot_name"`
	BuildID      int    `json:"build_id"`
	State        string `json:"state"`
	ResultDirURL string `json:"result_dir_url"`
}
