package db

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	dbInitCmd "github.com/coprcheck/coprcheck/pkg/cmd/db/init"
	dbShowCmd "github.com/coprcheck/coprcheck/pkg/cmd/db/show"
)

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db <subcommand>",
		Short: "Results DB Operation",
		Example: heredoc.Doc(`
			$ coprcheck db init
			$ coprcheck db init --dbtype sqlite3 --dbpath /tmp/coprcheck.sqlite3
			$ coprcheck db show
			$ coprcheck db show user/project
		`),
	}

	cmd.AddCommand(
		dbInitCmd.NewCmd(),
		dbShowCmd.NewCmd(),
	)

	return cmd
}
