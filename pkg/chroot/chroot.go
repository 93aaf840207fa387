package chroot

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

var ErrInvalidName = errors.New("invalid chroot name")

var re = regexp.MustCompile(`^(.+)-([^-]+)-([^-]+)$`)

// Chroot identifies a COPR build target, e.g. fedora-32-x86_64 or epel-7-ppc64le.
type Chroot struct {
	Distro  string
	Version string
	Arch    string
}

// Parse splits name into distro, version and arch. The distro part is greedy and may contain hyphens.
func Parse(name string) (Chroot, error) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return Chroot{}, errors.Wrapf(ErrInvalidName, "parse %q. expected: %q", name, "<distro>-<version>-<arch>")
	}
	return Chroot{Distro: m[1], Version: m[2], Arch: m[3]}, nil
}

func (c Chroot) String() string {
	return fmt.Sprintf("%s-%s-%s", c.Distro, c.Version, c.Arch)
}

// Distribution is the chroot without the architecture. Artifacts of all architectures of one
// distribution share a local directory.
func (c Chroot) Distribution() string {
	return fmt.Sprintf("%s-%s", c.Distro, c.Version)
}

func (c Chroot) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Chroot) UnmarshalText(text []byte) error {
	p, err := Parse(string(text))
	if err != nil {
		return errors.WithStack(err)
	}
	*c = p
	return nil
}
