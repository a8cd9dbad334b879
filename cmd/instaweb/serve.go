package main

import (
	"context"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instaweb/internal/server"
	"instaweb/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web downloader",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		logger.Info("starting instaweb", zap.Stringer("config", cfg))
		defer logger.Info("instaweb stopped")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		engine := newEngine(cmd, cfg, logger)
		maintainer := service.NewEngineMaintainer(engine, cfg.UpdateInterval(), logger)
		if cfg.Engine.ForceUpdate {
			_ = maintainer.UpdateOnce(ctx)
		}

		orch, err := newOrchestrator(cfg, engine, logger)
		if err != nil {
			return err
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			orch.Run(ctx)
		}()

		if cfg.Engine.AutoUpdate {
			wg.Add(1)
			go func() {
				defer wg.Done()
				maintainer.Run(ctx)
			}()
		}

		srv := server.New(cfg, orch, logger)
		err = srv.Run(ctx)
		cancel()
		wg.Wait()
		return err
	},
}
