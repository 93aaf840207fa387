package init

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/coprcheck/coprcheck/pkg/config"
	configInit "github.com/coprcheck/coprcheck/pkg/config/init"
)

func NewCmd() *cobra.Command {
	options := struct {
		config string
		force  bool
	}{
		config: config.DefaultPath(),
		force:  false,
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "write the default coprcheck config",
		Example: heredoc.Doc(`
		$ coprcheck config init
		$ coprcheck config init --config ./config.json --force
		`),
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := configInit.Init(configInit.WithConfig(options.config), configInit.WithForce(options.force)); err != nil {
				return errors.Wrap(err, "config init")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&options.config, "config", "C", options.config, "use config.json path")
	cmd.Flags().BoolVarP(&options.force, "force", "f", options.force, "overwrite an existing config")

	return cmd
}
