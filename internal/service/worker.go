package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"instaweb/internal/core/domain"
	"instaweb/internal/core/ports"
)

const (
	instagramExtractorArgs = "instagram:api=web"
	outputTemplate         = "%(id)s.%(ext)s"
	maxDetailLen           = 300
)

// browserHeaders make the engine's requests look like a desktop browser.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Referer":                   "https://www.instagram.com/",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

func (o *Orchestrator) runTask(ctx context.Context, t task) {
	o.RunJob(ctx, t.jobID, t.proxy)
}

// engineError marks a failure reported by the extraction engine.
type engineError struct {
	err error
}

func (e *engineError) Error() string { return e.err.Error() }
func (e *engineError) Unwrap() error { return e.err }

// errJobGone means the record disappeared (janitor) before the worker
// could claim it.
var errJobGone = errors.New("job no longer exists")

// RunJob executes one job to a terminal state. It never returns an error:
// every failure, including a panic, ends up on the job record.
func (o *Orchestrator) RunJob(ctx context.Context, jobID, proxy string) {
	logger := o.logger.With(zap.String("job_id", jobID))
	o.metrics.JobStarted()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("download worker panicked", zap.Any("panic", r), zap.Stack("stack"))
			o.fail(jobID, domain.MsgServerError, "")
		}

		final := domain.StatusUnknown
		if j, ok := o.store.Get(jobID); ok {
			final = j.Status
		}
		o.metrics.JobFinished(string(final))
	}()

	err := o.runJob(ctx, logger, jobID, proxy)
	switch {
	case err == nil:
		return
	case errors.Is(err, errJobGone):
		logger.Warn("job vanished before it could run")
		return
	}

	var engErr *engineError
	var msg, detail string
	switch {
	case errors.As(err, &engErr):
		msg = domain.ClassifyEngineError(engErr.err)
		detail = engineDetail(engErr.err)
	case errors.Is(err, domain.ErrOutputNotFound):
		msg = domain.MsgOutputNotFound
	default:
		msg = domain.MsgServerError
	}
	logger.Error("download job failed", zap.String("reason", msg), zap.Error(err))
	o.fail(jobID, msg, detail)
}

func (o *Orchestrator) runJob(ctx context.Context, logger *zap.Logger, jobID, proxy string) error {
	job, ok := o.store.Get(jobID)
	if !ok {
		return errJobGone
	}

	workDir, err := o.storage.InitJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to init job: %w", err)
	}

	if !o.transition(jobID, domain.StatusRunning, func(j *domain.Job) {
		j.WorkDir = workDir
		j.Progress = domain.Progress{Stage: domain.StageStarted}
	}) {
		return errJobGone
	}
	logger.Info("job running", zap.String("url", job.URL), zap.String("work_dir", workDir))

	req := o.extractRequest(logger, job, workDir, proxy)
	if err := o.extractor.Extract(ctx, req, o.progressHook(jobID)); err != nil {
		return &engineError{err: err}
	}

	path, info, err := o.storage.FindOutput(workDir, job.Format.Extension())
	if err != nil {
		return err
	}

	size := info.Size()
	o.transition(jobID, domain.StatusReady, func(j *domain.Job) {
		j.FilePath = path
		j.FileName = filepath.Base(path)
		j.Size = &size
		j.Progress = domain.Progress{Stage: domain.StageFinished}
	})
	logger.Info("job ready", zap.String("file", path), zap.Int64("size", size))
	return nil
}

// extractRequest builds the engine options for one job.
func (o *Orchestrator) extractRequest(logger *zap.Logger, job domain.Job, workDir, proxy string) ports.ExtractRequest {
	ffmpegPath, err := o.transcoder.Locate()
	if err != nil {
		logger.Warn("ffmpeg not found; yt-dlp may fail if ffmpeg is required", zap.Error(err))
		ffmpegPath = ""
	}

	headers := make(map[string]string, len(browserHeaders))
	for k, v := range browserHeaders {
		headers[k] = v
	}

	return ports.ExtractRequest{
		URL:            job.URL,
		Format:         job.Format,
		OutputTemplate: filepath.Join(workDir, outputTemplate),
		Headers:        headers,
		ExtractorArgs:  instagramExtractorArgs,
		Proxy:          proxy,
		CookiesFile:    o.cookiesFile,
		FFmpegPath:     ffmpegPath,
	}
}

// progressHook writes engine progress into the job. A job deleted in the
// meantime, or one no longer running, is left alone.
func (o *Orchestrator) progressHook(jobID string) ports.ProgressFunc {
	return func(p domain.Progress) {
		updated := o.store.Update(jobID, func(j *domain.Job) {
			if j.Status == domain.StatusRunning {
				j.Progress = p
			}
		})
		if updated {
			o.broker.publish(jobID)
		}
	}
}

// transition moves the job to next and applies mutate in the same lock
// acquisition. It refuses non-monotonic moves.
func (o *Orchestrator) transition(jobID string, next domain.Status, mutate func(*domain.Job)) bool {
	moved := false
	o.store.Update(jobID, func(j *domain.Job) {
		if !j.Status.CanTransitionTo(next) {
			return
		}
		j.Status = next
		if mutate != nil {
			mutate(j)
		}
		moved = true
	})
	if moved {
		o.broker.publish(jobID)
	}
	return moved
}

// fail moves the job to error. detail, when set, is the engine's own
// explanation and lands in the progress message.
func (o *Orchestrator) fail(jobID, msg, detail string) {
	o.transition(jobID, domain.StatusError, func(j *domain.Job) {
		j.Error = msg
		j.Progress.Stage = domain.StageError
		j.Progress.Message = detail
	})
}

// engineDetail picks the last "ERROR:" line of the engine output, or the
// first line when there is none.
func engineDetail(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	detail := strings.TrimSpace(lines[0])
	for _, line := range lines {
		if i := strings.Index(line, "ERROR:"); i >= 0 {
			detail = strings.TrimSpace(line[i:])
		}
	}
	if r := []rune(detail); len(r) > maxDetailLen {
		detail = string(r[:maxDetailLen])
	}
	return detail
}
