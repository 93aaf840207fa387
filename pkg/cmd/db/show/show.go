package show

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/coprcheck/coprcheck/pkg/cmd/util/flag"
	"github.com/coprcheck/coprcheck/pkg/config"
	db "github.com/coprcheck/coprcheck/pkg/db/show"
	utillog "github.com/coprcheck/coprcheck/pkg/util/log"
)

func NewCmd() *cobra.Command {
	options := struct {
		dbtype utilflag.DBType
		dbpath string
		format utilflag.Format
		debug  bool
	}{
		dbtype: utilflag.DBTypeBoltDB,
		dbpath: config.DefaultDBPath(),
		format: utilflag.FormatYAML,
		debug:  false,
	}

	cmd := &cobra.Command{
		Use:   "show [<user>/<project>]",
		Short: "show the latest run of a project, or a summary of every recorded project",
		Example: heredoc.Doc(`
		$ coprcheck db show
		$ coprcheck db show user/project
		$ coprcheck db show --format json user/project
		`),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return nil
			}
			return utilflag.ProjectArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			utillog.Init(options.debug, false)

			var project string
			if len(args) == 1 {
				project = args[0]
			}
			if err := db.Show(project, db.WithDBType(options.dbtype.String()), db.WithDBPath(options.dbpath), db.WithFormat(options.format.String()), db.WithWriter(cmd.OutOrStdout()), db.WithDebug(options.debug)); err != nil {
				return errors.Wrap(err, "db show")
			}
			return nil
		},
	}

	cmd.Flags().VarP(&options.dbtype, "dbtype", "", "results db type (default: boltdb, accepts: [boltdb, pebble, redis, sqlite3, mysql, postgres])")
	_ = cmd.RegisterFlagCompletionFunc("dbtype", utilflag.DBTypeCompletion)
	cmd.Flags().StringVarP(&options.dbpath, "dbpath", "", options.dbpath, "results db path")
	cmd.Flags().VarP(&options.format, "format", "", "output format of a single run (default: yaml, accepts: [yaml, json])")
	_ = cmd.RegisterFlagCompletionFunc("format", utilflag.FormatCompletion)
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
