package init

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/coprcheck/coprcheck/pkg/cmd/util/flag"
	"github.com/coprcheck/coprcheck/pkg/config"
	db "github.com/coprcheck/coprcheck/pkg/db/init"
	utillog "github.com/coprcheck/coprcheck/pkg/util/log"
)

func NewCmd() *cobra.Command {
	options := struct {
		dbtype utilflag.DBType
		dbpath string
		debug  bool
	}{
		dbtype: utilflag.DBTypeBoltDB,
		dbpath: config.DefaultDBPath(),
		debug:  false,
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "initialize results db",
		Example: heredoc.Doc(`
		$ coprcheck db init
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			utillog.Init(options.debug, false)
			n, err := db.Init(db.WithDBType(options.dbtype.String()), db.WithDBPath(options.dbpath), db.WithDebug(options.debug))
			if err != nil {
				return errors.Wrap(err, "db init")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s db, dropped %d stored runs\n", options.dbtype.String(), n)
			return nil
		},
	}

	cmd.Flags().VarP(&options.dbtype, "dbtype", "", "results db type (default: boltdb, accepts: [boltdb, pebble, redis, sqlite3, mysql, postgres])")
	_ = cmd.RegisterFlagCompletionFunc("dbtype", utilflag.DBTypeCompletion)
	cmd.Flags().StringVarP(&options.dbpath, "dbpath", "", options.dbpath, "results db path")
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
