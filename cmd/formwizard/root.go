package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/pkg/config"
)

// cli carries state shared by subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "formwizard",
		Short:         "Schema driven multi-page form wizards",
		Long:          "formwizard serves wizard definitions over HTTP, walks them in the terminal and validates them against their schemas.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = cfg.Logger(cmd.ErrOrStderr())
			slog.SetDefault(c.logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default ./formwizard.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.StringSlice("definitions", nil, "definition files or directories")
	flags.String("schema-root", "", "directory schema sources are read from")
	flags.String("api", "", "record service base URL")
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("definitions", flags.Lookup("definitions"))
	_ = c.v.BindPFlag("schema_root", flags.Lookup("schema-root"))
	_ = c.v.BindPFlag("api.base_url", flags.Lookup("api"))

	root.AddCommand(newServeCmd(c), newRunCmd(c), newValidateCmd(c))
	return root
}

func (c *cli) open(ctx context.Context) (*formwizard.App, error) {
	return formwizard.Open(ctx, c.cfg, c.logger)
}
