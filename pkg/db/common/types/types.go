package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/types"
)

// ErrNotFound is returned when a record is not in the results database.
var ErrNotFound = errors.New("not found")

type Metadata struct {
	SchemaVersion uint      `json:"schema_version,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	LastModified  time.Time `json:"last_modified,omitempty"`
}

// Run is one check of a project. Only the latest run of each project is kept.
type Run struct {
	ID        uuid.UUID             `json:"id" yaml:"id"`
	Project   string                `json:"project" yaml:"project"`
	StartedAt time.Time             `json:"started_at" yaml:"started_at"`
	Builds    []types.BuildArtifact `json:"builds,omitempty" yaml:"builds,omitempty"`
	Report    types.Report          `json:"report" yaml:"report"`
}
