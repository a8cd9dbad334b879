package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instaweb/internal/adapters/ffmpeg"
	"instaweb/internal/adapters/localstorage"
	"instaweb/internal/adapters/memstore"
	"instaweb/internal/adapters/ytdlp"
	"instaweb/internal/config"
	"instaweb/internal/log"
	"instaweb/internal/service"
)

var (
	addressFlag     string
	downloadDirFlag string
)

var rootCmd = &cobra.Command{
	Use:          "instaweb",
	Short:        "Download Instagram reels and posts through yt-dlp",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(updateEngineCmd)

	rootCmd.PersistentFlags().StringVar(&addressFlag, "addr", "", "Listen address (overrides INSTAWEB_ADDRESS)")
	rootCmd.PersistentFlags().StringVar(&downloadDirFlag, "download-dir", "", "Download root (overrides INSTAWEB_DOWNLOAD_DIR)")
}

// loadConfig reads the environment, applies flag overrides and installs
// the global logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	if addressFlag != "" {
		cfg.Service.Address = addressFlag
	}
	if downloadDirFlag != "" {
		cfg.Service.DownloadDir = downloadDirFlag
	}

	logger := log.InitLog(cfg.Service.LogLevel)
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// newEngine builds the yt-dlp adapter, making sure a binary exists first
// when installation is enabled.
func newEngine(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) *ytdlp.YtDlpDownloader {
	if cfg.Engine.Install && cfg.Engine.BinaryPath == "" {
		if err := ytdlp.Install(cmd.Context(), logger); err != nil {
			logger.Warn("could not install yt-dlp; relying on PATH", zap.Error(err))
		}
	}
	return ytdlp.NewYtDlpDownloader(cfg.Engine.BinaryPath, logger)
}

// newOrchestrator wires the job service from configuration.
func newOrchestrator(cfg *config.Config, engine *ytdlp.YtDlpDownloader, logger *zap.Logger) (*service.Orchestrator, error) {
	storage := localstorage.NewLocalStorage(cfg.Service.DownloadDir)
	if err := storage.Ensure(); err != nil {
		return nil, err
	}

	if cfg.Engine.CookiesFile != "" {
		names, err := ytdlp.CookieNames(cfg.Engine.CookiesFile)
		if err != nil {
			logger.Warn("cookie file is not readable", zap.Error(err))
		} else {
			logger.Info("using cookie file", zap.String("path", cfg.Engine.CookiesFile), zap.Strings("cookies", names))
		}
	}

	return service.NewOrchestrator(
		memstore.New(),
		storage,
		engine,
		ffmpeg.NewLocator(cfg.Engine.FFmpegPath),
		logger,
		service.WithRateLimit(cfg.Limits.Count, cfg.RateWindow()),
		service.WithMaxConcurrent(cfg.Limits.Concurrent),
		service.WithPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize),
		service.WithPollInterval(cfg.Transport.EventsPollInterval),
		service.WithJanitor(cfg.Janitor.Interval, cfg.Janitor.Retention),
		service.WithCookiesFile(cfg.Engine.CookiesFile),
	), nil
}
