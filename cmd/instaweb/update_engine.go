package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instaweb/internal/service"
)

var updateEngineCmd = &cobra.Command{
	Use:   "update-engine",
	Short: "Run a yt-dlp self-update and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		engine := newEngine(cmd, cfg, logger)
		maintainer := service.NewEngineMaintainer(engine, cfg.UpdateInterval(), logger)
		if err := maintainer.UpdateOnce(cmd.Context()); err != nil {
			logger.Error("update failed", zap.Error(err))
			return err
		}
		return nil
	},
}
