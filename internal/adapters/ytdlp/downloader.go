package ytdlp

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"instaweb/internal/core/domain"
	"instaweb/internal/core/ports"
)

const (
	defaultProgressInterval = 250 * time.Millisecond
	audioCodec              = "mp3"
	audioQuality            = "192"
)

// Format selectors passed to yt-dlp.
const (
	videoSelector = "bestvideo+bestaudio/best"
	audioSelector = "bestaudio/best"
)

// YtDlpDownloader drives the yt-dlp binary through go-ytdlp.
type YtDlpDownloader struct {
	binaryPath       string
	progressInterval time.Duration
	logger           *zap.Logger
}

// NewYtDlpDownloader creates a new downloader. An empty binaryPath lets
// go-ytdlp resolve the executable (its own cache first, then PATH).
func NewYtDlpDownloader(binaryPath string, logger *zap.Logger) *YtDlpDownloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YtDlpDownloader{
		binaryPath:       binaryPath,
		progressInterval: defaultProgressInterval,
		logger:           logger.Named("ytdlp"),
	}
}

func (d *YtDlpDownloader) newCommand() *ytdlp.Command {
	cmd := ytdlp.New()
	if d.binaryPath != "" {
		cmd.SetExecutable(d.binaryPath)
	}
	return cmd
}

// Extract implements ports.Extractor.
func (d *YtDlpDownloader) Extract(ctx context.Context, req ports.ExtractRequest, onProgress ports.ProgressFunc) error {
	cmd := d.newCommand().
		NoPlaylist().
		Output(req.OutputTemplate)

	switch req.Format {
	case domain.FormatAudio:
		cmd.Format(audioSelector).
			ExtractAudio().
			AudioFormat(audioCodec).
			AudioQuality(audioQuality)
	default:
		cmd.Format(videoSelector).
			MergeOutputFormat(domain.FormatVideo.Extension())
	}

	if req.ExtractorArgs != "" {
		cmd.ExtractorArgs(req.ExtractorArgs)
	}
	if req.Proxy != "" {
		cmd.Proxy(req.Proxy)
	}
	if req.CookiesFile != "" {
		cmd.Cookies(req.CookiesFile)
	}
	if req.FFmpegPath != "" {
		cmd.FFmpegLocation(req.FFmpegPath)
	}

	if onProgress != nil {
		cmd.ProgressFunc(d.progressInterval, func(update ytdlp.ProgressUpdate) {
			if p, ok := toProgress(update); ok {
				onProgress(p)
			}
		})
	}

	args := append(headerArgs(req.Headers), req.URL)

	d.logger.Debug("running yt-dlp", zap.String("url", req.URL), zap.String("format", string(req.Format)))
	result, err := cmd.Run(ctx, args...)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = strings.TrimSpace(result.Stderr)
		}
		d.logger.Warn("yt-dlp failed", zap.String("url", req.URL), zap.String("stderr", stderr), zap.Error(err))
		if stderr != "" {
			return errors.Wrapf(err, "yt-dlp failed: %s", stderr)
		}
		return errors.Wrap(err, "yt-dlp failed")
	}
	return nil
}

// headerArgs renders headers as repeated --add-headers flags in a
// stable order.
func headerArgs(headers map[string]string) []string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2+1)
	for _, k := range keys {
		args = append(args, "--add-headers", k+":"+headers[k])
	}
	return args
}

func toProgress(update ytdlp.ProgressUpdate) (domain.Progress, bool) {
	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		var eta time.Duration
		if !update.Started.IsZero() {
			eta = update.ETA()
		}
		return domain.NewDownloadProgress(int64(update.DownloadedBytes), int64(update.TotalBytes), eta), true
	case ytdlp.ProgressStatusFinished:
		return domain.Progress{Stage: domain.StageFinished}, true
	case ytdlp.ProgressStatusError:
		return domain.Progress{Stage: domain.StageError}, true
	default:
		return domain.Progress{}, false
	}
}
