package builds

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	cmdconfig "github.com/coprcheck/coprcheck/pkg/cmd/util/config"
	utilflag "github.com/coprcheck/coprcheck/pkg/cmd/util/flag"
	"github.com/coprcheck/coprcheck/pkg/config"
	"github.com/coprcheck/coprcheck/pkg/copr/api"
	"github.com/coprcheck/coprcheck/pkg/copr/builds"
	"github.com/coprcheck/coprcheck/pkg/output"
	utillog "github.com/coprcheck/coprcheck/pkg/util/log"
)

func NewCmd() *cobra.Command {
	options := struct {
		url         string
		concurrency int
		config      string
		json        bool
		debug       bool
	}{
		url:         api.DefaultURL,
		concurrency: 1,
		config:      config.DefaultPath(),
	}

	cmd := &cobra.Command{
		Use:   "builds <user>/<project>",
		Short: "list the succeeded build results of the current builds of a COPR project",
		Example: heredoc.Doc(`
		$ coprcheck builds user/project
		$ coprcheck builds --json @group/project
		`),
		Args: utilflag.ProjectArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			utillog.Init(options.debug, false)

			user, project, err := utilflag.ParseProject(args[0])
			if err != nil {
				return errors.Wrap(err, "parse project")
			}

			c, err := cmdconfig.Load(cmd.Flags(), options.config)
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			if cmd.Flags().Changed("copr-url") {
				c.Copr.URL = options.url
			}
			if cmd.Flags().Changed("concurrency") {
				c.Copr.Concurrency = options.concurrency
			}

			client := api.New(api.WithURL(c.Copr.URL), api.WithHTTPClient(&http.Client{Timeout: time.Duration(c.Copr.Timeout) * time.Second}))
			artifacts, err := builds.Collect(builds.Current(cmd.Context(), client, user, project, builds.WithConcurrency(c.Copr.Concurrency)))
			if err != nil {
				return errors.Wrapf(err, "builds %s/%s", user, project)
			}

			if options.json {
				e := json.NewEncoder(cmd.OutOrStdout())
				e.SetIndent("", "  ")
				e.SetEscapeHTML(false)
				if err := e.Encode(artifacts); err != nil {
					return errors.Wrap(err, "encode builds")
				}
				return nil
			}
			output.BuildsTable(cmd.OutOrStdout(), artifacts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&options.url, "copr-url", "", options.url, "COPR frontend url")
	cmd.Flags().IntVarP(&options.concurrency, "concurrency", "", options.concurrency, "number of build details requested at once (1: sequential)")
	cmd.Flags().StringVarP(&options.config, "config", "C", options.config, "use config.json path")
	cmd.Flags().BoolVarP(&options.json, "json", "", options.json, "print json instead of a table")
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
