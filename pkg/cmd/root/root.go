package root

import (
	"github.com/spf13/cobra"

	buildsCmd "github.com/coprcheck/coprcheck/pkg/cmd/builds"
	checkCmd "github.com/coprcheck/coprcheck/pkg/cmd/check"
	configCmd "github.com/coprcheck/coprcheck/pkg/cmd/config"
	dbCmd "github.com/coprcheck/coprcheck/pkg/cmd/db"
	versionCmd "github.com/coprcheck/coprcheck/pkg/cmd/version"
)

func NewCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "coprcheck <command>",
		Short:         "Automated checks of COPR projects",
		Long:          "Download the current builds of a COPR project and inspect them with rpmgrill",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		checkCmd.NewCmd(),
		buildsCmd.NewCmd(),
		dbCmd.NewCmd(),
		configCmd.NewCmd(),
		versionCmd.NewCmd(),
	)

	return cmd
}
