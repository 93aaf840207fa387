package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coprcheck/coprcheck/pkg/types"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format by file extension; anything but .json is YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Write stores the report at path, creating missing parent directories.
func Write(path string, r types.Report, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := Encode(f, r, format); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Encode writes the report to w. Both formats keep the insertion order of packages, checks and
// codes.
func Encode(w io.Writer, r types.Report, format Format) error {
	switch format {
	case FormatYAML, "":
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(r); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		if err := e.Close(); err != nil {
			return errors.Wrap(err, "close yaml encoder")
		}
		return nil
	case FormatJSON:
		bs, err := json.Marshal(r)
		if err != nil {
			return errors.Wrap(err, "encode json")
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, bs, "", "  "); err != nil {
			return errors.Wrap(err, "indent json")
		}
		buf.WriteByte('\n')
		if _, err := buf.WriteTo(w); err != nil {
			return errors.Wrap(err, "write json")
		}
		return nil
	default:
		return errors.Errorf("unexpected report format. accepts: %q, actual: %q", []Format{FormatYAML, FormatJSON}, format)
	}
}
