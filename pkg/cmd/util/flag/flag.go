package flag

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type DBType string

const (
	DBTypeBoltDB     DBType = "boltdb"
	DBTypeRedis      DBType = "redis"
	DBTypeSQLite3    DBType = "sqlite3"
	DBTypeMySQL      DBType = "mysql"
	DBTypePostgreSQL DBType = "postgres"
	DBTypePebble     DBType = "pebble"
)

func (t *DBType) String() string {
	return string(*t)
}

func (t *DBType) Set(v string) error {
	switch v {
	case "boltdb", "redis", "sqlite3", "mysql", "postgres", "pebble":
		*t = DBType(v)
		return nil
	default:
		return errors.Errorf("unexpected dbtype. accepts: %q, actual: %q", []DBType{DBTypeBoltDB, DBTypeRedis, DBTypeSQLite3, DBTypeMySQL, DBTypePostgreSQL, DBTypePebble}, v)
	}
}

func (t *DBType) Type() string {
	return "DBType"
}

func DBTypeCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{string(DBTypeBoltDB), string(DBTypeRedis), string(DBTypeSQLite3), string(DBTypeMySQL), string(DBTypePostgreSQL), string(DBTypePebble)}, cobra.ShellCompDirectiveDefault
}

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func (f *Format) String() string {
	return string(*f)
}

func (f *Format) Set(v string) error {
	switch v {
	case "yaml", "json":
		*f = Format(v)
		return nil
	default:
		return errors.Errorf("unexpected format. accepts: %q, actual: %q", []Format{FormatYAML, FormatJSON}, v)
	}
}

func (f *Format) Type() string {
	return "Format"
}

func FormatCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{string(FormatYAML), string(FormatJSON)}, cobra.ShellCompDirectiveDefault
}

// ParseProject splits a COPR project identifier, <user>/<project>. Group projects keep their
// leading "@" in the user part.
func ParseProject(s string) (string, string, error) {
	user, project, ok := strings.Cut(s, "/")
	if !ok || user == "" || project == "" || strings.Contains(project, "/") {
		return "", "", errors.Errorf("invalid project: %s. expected: %q", s, "<user>/<project>")
	}
	return user, project, nil
}

// ProjectArgs is a cobra.PositionalArgs accepting exactly one <user>/<project>.
func ProjectArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if _, _, err := ParseProject(args[0]); err != nil {
		return err
	}
	return nil
}
