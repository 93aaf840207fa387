package check

import (
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	cmdconfig "github.com/coprcheck/coprcheck/pkg/cmd/util/config"
	utilflag "github.com/coprcheck/coprcheck/pkg/cmd/util/flag"
	"github.com/coprcheck/coprcheck/pkg/config"
	"github.com/coprcheck/coprcheck/pkg/copr/api"
	"github.com/coprcheck/coprcheck/pkg/report"
	"github.com/coprcheck/coprcheck/pkg/run"
	utillog "github.com/coprcheck/coprcheck/pkg/util/log"
)

func NewCmd() *cobra.Command {
	options := struct {
		target      string
		report      string
		format      utilflag.Format
		quiet       bool
		noDownload  bool
		noChecks    bool
		noStore     bool
		keep        bool
		url         string
		concurrency int
		config      string
		dbtype      utilflag.DBType
		dbpath      string
		debug       bool
	}{
		url:         api.DefaultURL,
		concurrency: 1,
		config:      config.DefaultPath(),
		dbtype:      utilflag.DBTypeBoltDB,
		dbpath:      config.DefaultDBPath(),
	}

	cmd := &cobra.Command{
		Use:   "check <user>/<project>",
		Short: "download the current builds of a COPR project and check them with rpmgrill",
		Example: heredoc.Doc(`
		$ coprcheck check user/project
		$ coprcheck check --target /tmp/project --report project.json user/project
		$ coprcheck check --no-download --target /tmp/project user/project
		$ coprcheck check --no-checks --concurrency 5 @group/project
		`),
		Args: utilflag.ProjectArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			utillog.Init(options.debug, options.quiet)

			user, project, err := utilflag.ParseProject(args[0])
			if err != nil {
				return errors.Wrap(err, "parse project")
			}

			c, err := cmdconfig.Load(cmd.Flags(), options.config)
			if err != nil {
				return errors.Wrap(err, "load config")
			}

			flags := cmd.Flags()
			if flags.Changed("copr-url") {
				c.Copr.URL = options.url
			}
			if flags.Changed("concurrency") {
				c.Copr.Concurrency = options.concurrency
			}
			if flags.Changed("dbtype") {
				c.DB.Type = options.dbtype.String()
			}
			if flags.Changed("dbpath") {
				c.DB.Path = options.dbpath
			}
			if flags.Changed("format") {
				c.Report.Format = options.format.String()
			}
			if c.Report.Format != "" {
				var f utilflag.Format
				if err := f.Set(c.Report.Format); err != nil {
					return errors.Wrap(err, "report format")
				}
			}
			if c.Copr.Concurrency < 1 {
				return errors.Errorf("unexpected concurrency. expected: >= 1, actual: %d", c.Copr.Concurrency)
			}

			opts := []run.Option{
				run.WithURL(c.Copr.URL),
				run.WithTimeout(time.Duration(c.Copr.Timeout) * time.Second),
				run.WithConcurrency(c.Copr.Concurrency),
				run.WithAccept(c.Fetch.Accept),
				run.WithFormat(report.Format(c.Report.Format)),
				run.WithNoDownload(options.noDownload),
				run.WithNoChecks(options.noChecks),
				run.WithNoStore(options.noStore),
				run.WithKeepUnpacked(options.keep),
				run.WithQuiet(options.quiet),
				run.WithDBType(c.DB.Type),
				run.WithDBPath(c.DB.Path),
				run.WithDebug(options.debug),
				run.WithStdout(cmd.OutOrStdout()),
				run.WithStderr(cmd.ErrOrStderr()),
			}
			if options.target != "" {
				opts = append(opts, run.WithTarget(options.target))
			}
			if options.report != "" {
				opts = append(opts, run.WithReport(options.report))
			}

			if _, err := run.Run(cmd.Context(), user, project, opts...); err != nil {
				return errors.Wrapf(err, "check %s/%s", user, project)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&options.target, "target", "t", options.target, "directory to store the downloaded packages (default: <user>-<project>)")
	cmd.Flags().StringVarP(&options.report, "report", "r", options.report, "report file (default: <user>-<project>.yml)")
	cmd.Flags().VarP(&options.format, "format", "", fmt.Sprintf("report format (default: by report extension, accepts: %q)", []utilflag.Format{utilflag.FormatYAML, utilflag.FormatJSON}))
	_ = cmd.RegisterFlagCompletionFunc("format", utilflag.FormatCompletion)
	cmd.Flags().BoolVarP(&options.quiet, "quiet", "q", options.quiet, "silence progress reporting")
	cmd.Flags().BoolVarP(&options.noDownload, "no-download", "", options.noDownload, "do not download the packages, use the existing contents of the target")
	cmd.Flags().BoolVarP(&options.noChecks, "no-checks", "", options.noChecks, "do not run checks on the target")
	cmd.Flags().BoolVarP(&options.noStore, "no-store", "", options.noStore, "do not record the run in the results db")
	cmd.Flags().BoolVarP(&options.keep, "keep-unpacked", "", options.keep, "keep the unpacked packages and rpmgrill.json files in the target")
	cmd.Flags().StringVarP(&options.url, "copr-url", "", options.url, "COPR frontend url")
	cmd.Flags().IntVarP(&options.concurrency, "concurrency", "", options.concurrency, "number of build details requested at once (1: sequential)")
	cmd.Flags().StringVarP(&options.config, "config", "C", options.config, "use config.json path")
	cmd.Flags().VarP(&options.dbtype, "dbtype", "", "results db type (default: boltdb, accepts: [boltdb, pebble, redis, sqlite3, mysql, postgres])")
	_ = cmd.RegisterFlagCompletionFunc("dbtype", utilflag.DBTypeCompletion)
	cmd.Flags().StringVarP(&options.dbpath, "dbpath", "", options.dbpath, "results db path")
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
