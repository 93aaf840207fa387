package config

import (
	"github.com/spf13/cobra"

	cmdInit "github.com/coprcheck/coprcheck/pkg/cmd/config/init"
)

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <subcommand>",
		Short: "Config Operation",
	}

	cmd.AddCommand(
		cmdInit.NewCmd(),
	)

	return cmd
}
