package service

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"instaweb/internal/core/ports"
)

// EngineMaintainer keeps the extraction engine current by running its
// self-update on a jittered interval.
type EngineMaintainer struct {
	updater  ports.EngineUpdater
	interval time.Duration
	logger   *zap.Logger
}

// NewEngineMaintainer creates an EngineMaintainer.
func NewEngineMaintainer(updater ports.EngineUpdater, interval time.Duration, logger *zap.Logger) *EngineMaintainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngineMaintainer{
		updater:  updater,
		interval: interval,
		logger:   logger.Named("engine"),
	}
}

// UpdateOnce runs one self-update. A failure is logged and returned.
func (m *EngineMaintainer) UpdateOnce(ctx context.Context) error {
	m.logger.Info("updating yt-dlp")
	if err := m.updater.Update(ctx); err != nil {
		m.logger.Warn("yt-dlp update failed", zap.Error(err))
		return err
	}
	m.logger.Info("yt-dlp is up to date")
	return nil
}

// Run updates the engine right away and then every interval until ctx
// is done.
func (m *EngineMaintainer) Run(ctx context.Context) {
	_ = m.UpdateOnce(ctx)

	ticker := jitterbug.New(m.interval, &jitterbug.Norm{Stdev: 30 * time.Second, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		_ = m.UpdateOnce(ctx)
	}
}
