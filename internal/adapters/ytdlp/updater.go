package ytdlp

import (
	"context"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Install makes sure a yt-dlp binary is available, downloading one into
// go-ytdlp's cache when neither the cache nor PATH has it.
func Install(ctx context.Context, logger *zap.Logger) error {
	resolved, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{AllowVersionMismatch: true})
	if err != nil {
		return errors.Wrap(err, "failed to install yt-dlp")
	}
	logger.Named("ytdlp").Info("yt-dlp available",
		zap.String("executable", resolved.Executable),
		zap.String("version", resolved.Version),
		zap.Bool("downloaded", resolved.Downloaded),
	)
	return nil
}

// Update implements ports.EngineUpdater by running yt-dlp's self-update.
func (d *YtDlpDownloader) Update(ctx context.Context) error {
	result, err := d.newCommand().Update(ctx)
	if err != nil {
		return errors.Wrap(err, "yt-dlp self-update failed")
	}
	d.logger.Info("yt-dlp self-update completed", zap.String("output", strings.TrimSpace(result.Stdout)))
	return nil
}
