// Command messcore runs the mess core: the background scheduler plus a
// metrics listener, and one-shot menu and alert queries for operators.
package main

import (
	"os"

	"github.com/blackpanther093/manage/config"
	"github.com/blackpanther093/manage/core"
	"github.com/blackpanther093/manage/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("messcore failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "messcore",
		Short:         "Menu resolution, caching and scheduled jobs of the mess app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newMenuCmd(opts),
		newAlertsCmd(opts),
		newRunCmd(opts),
	)
	return cmd
}

// build loads the config and wires the app. The caller owns the returned
// logger and app.
func (o *rootOptions) build(reg prometheus.Registerer) (*config.Config, logger.Logger, *core.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	app, err := core.Build(log, cfg, reg)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, app, nil
}
