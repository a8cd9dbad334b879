package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"instaweb/internal/core/domain"
	"instaweb/internal/core/ports"
	"instaweb/internal/metrics"
)

const (
	defaultJanitorInterval  = 60 * time.Second
	defaultJanitorRetention = 30 * time.Minute
)

// Janitor periodically removes download-root entries older than the
// retention window together with the job records that point at them.
type Janitor struct {
	store     ports.JobStore
	storage   ports.Storage
	logger    *zap.Logger
	metrics   *metrics.Registry
	limiter   func() int
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewJanitor creates a Janitor with the default cadence and retention.
func NewJanitor(store ports.JobStore, storage ports.Storage, logger *zap.Logger, m *metrics.Registry) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		store:     store,
		storage:   storage,
		logger:    logger.Named("janitor"),
		metrics:   m,
		interval:  defaultJanitorInterval,
		retention: defaultJanitorRetention,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	j.Sweep(j.now())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(j.now())
		}
	}
}

// Sweep removes every expired entry and returns how many were removed.
// Removal failures are logged; the expired jobs are forgotten anyway.
func (j *Janitor) Sweep(now time.Time) int {
	entries, err := j.storage.ListEntries()
	if err != nil {
		j.logger.Debug("failed to list download root", zap.Error(err))
		return 0
	}

	removed := 0
	for _, e := range entries {
		if now.Sub(e.ModTime) <= j.retention {
			continue
		}
		if err := j.storage.Remove(e.Path); err != nil {
			j.logger.Debug("failed to remove expired entry", zap.String("path", e.Path), zap.Error(err))
		} else {
			removed++
		}

		ids := j.store.DeleteWhere(ownedBy(e.Path))
		j.logger.Info("removed expired entry", zap.String("path", e.Path), zap.Strings("jobs", ids))
	}

	if j.limiter != nil {
		if n := j.limiter(); n > 0 {
			j.logger.Debug("forgot idle rate limit clients", zap.Int("count", n))
		}
	}
	if j.metrics != nil && removed > 0 {
		j.metrics.JanitorRemoved(removed)
	}
	return removed
}

// ownedBy matches jobs whose directory or output file lives at path.
func ownedBy(path string) func(domain.Job) bool {
	clean := filepath.Clean(path)
	prefix := clean + string(os.PathSeparator)
	return func(job domain.Job) bool {
		if job.WorkDir != "" && filepath.Clean(job.WorkDir) == clean {
			return true
		}
		return job.FilePath != "" && strings.HasPrefix(filepath.Clean(job.FilePath), prefix)
	}
}
