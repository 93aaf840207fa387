package types

import (
	"github.com/coprcheck/coprcheck/pkg/chroot"
)

// BuildArtifact is one succeeded build task of a COPR build: the chroot it was built in and the
// directory holding its results.
type BuildArtifact struct {
	BuildID int           `json:"build_id" yaml:"build_id"`
	Chroot  chroot.Chroot `json:"chroot" yaml:"chroot"`
	URL     string        `json:"url" yaml:"url"`
}

// Findings are the failed checks of one scanned package: check -> code -> diagnostic.
type Findings []CheckFindings

type CheckFindings struct {
	Check       string       `json:"check"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type Diagnostic struct {
	Code string `json:"code"`
	Diag string `json:"diag"`
}

// Set records diag for check/code. A code reported twice keeps its first position and the last diag.
func (f *Findings) Set(check, code, diag string) {
	i := f.index(check)
	if i < 0 {
		*f = append(*f, CheckFindings{Check: check})
		i = len(*f) - 1
	}

	c := &(*f)[i]
	for j := range c.Diagnostics {
		if c.Diagnostics[j].Code == code {
			c.Diagnostics[j].Diag = diag
			return
		}
	}
	c.Diagnostics = append(c.Diagnostics, Diagnostic{Code: code, Diag: diag})
}

func (f Findings) index(check string) int {
	for i, c := range f {
		if c.Check == check {
			return i
		}
	}
	return -1
}
