package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"instaweb/internal/core/domain"
	"instaweb/internal/core/ports"
	"instaweb/internal/metrics"
)

const (
	defaultRateLimitCount = 5
	defaultRateWindow     = time.Hour
	defaultMaxConcurrent  = 3
	defaultPoolSize       = 4
	defaultQueueSize      = 100
	defaultPollInterval   = 500 * time.Millisecond
)

// SubmitRequest is a validated download request.
type SubmitRequest struct {
	URL      string
	Format   domain.Format
	Proxy    string
	ClientID string
}

// Orchestrator owns the job lifecycle: admission, the job table, the
// worker pool, progress fan-out and the janitor. One instance lives for
// the whole process and is handed to every handler.
type Orchestrator struct {
	store      ports.JobStore
	storage    ports.Storage
	extractor  ports.Extractor
	transcoder ports.TranscoderLocator
	logger     *zap.Logger
	metrics    *metrics.Registry

	limiter       *RateLimiter
	maxConcurrent int
	pool          *pool
	broker        *broker
	janitor       *Janitor
	pollInterval  time.Duration
	cookiesFile   string
	now           func() time.Time

	runOnce sync.Once
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRateLimit sets the per-client submission ceiling and window.
func WithRateLimit(count int, window time.Duration) Option {
	return func(o *Orchestrator) {
		o.limiter = NewRateLimiter(count, window)
	}
}

// WithMaxConcurrent caps queued plus running jobs per client.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		o.maxConcurrent = n
	}
}

// WithPool sizes the worker pool and its queue.
func WithPool(size, queueSize int) Option {
	return func(o *Orchestrator) {
		o.pool = newPool(size, queueSize, o.runTask)
	}
}

// WithPollInterval sets how often progress streams re-read a job when no
// change notification arrives.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pollInterval = d
	}
}

// WithJanitor overrides the sweep cadence and retention window.
func WithJanitor(interval, retention time.Duration) Option {
	return func(o *Orchestrator) {
		o.janitor.interval = interval
		o.janitor.retention = retention
	}
}

// WithCookiesFile passes a Netscape cookie file to the engine.
func WithCookiesFile(path string) Option {
	return func(o *Orchestrator) {
		o.cookiesFile = path
	}
}

// WithMetrics replaces the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *Orchestrator) {
		o.metrics = m
		o.janitor.metrics = m
	}
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	store ports.JobStore,
	storage ports.Storage,
	extractor ports.Extractor,
	transcoder ports.TranscoderLocator,
	logger *zap.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()

	o := &Orchestrator{
		store:         store,
		storage:       storage,
		extractor:     extractor,
		transcoder:    transcoder,
		logger:        logger.Named("orchestrator"),
		metrics:       m,
		limiter:       NewRateLimiter(defaultRateLimitCount, defaultRateWindow),
		maxConcurrent: defaultMaxConcurrent,
		broker:        newBroker(),
		pollInterval:  defaultPollInterval,
		now:           time.Now,
	}
	o.pool = newPool(defaultPoolSize, defaultQueueSize, o.runTask)
	o.janitor = NewJanitor(store, storage, logger, m)
	o.janitor.limiter = func() int { return o.limiter.Sweep() }

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Metrics returns the registry the orchestrator reports to.
func (o *Orchestrator) Metrics() *metrics.Registry {
	return o.metrics
}

// Janitor returns the janitor owned by the orchestrator.
func (o *Orchestrator) Janitor() *Janitor {
	return o.janitor
}

// Run starts the worker pool and the janitor and blocks until ctx is
// cancelled and every worker has returned. Jobs run on ctx, never on a
// request context.
func (o *Orchestrator) Run(ctx context.Context) {
	o.runOnce.Do(func() {
		o.logger.Info("starting workers", zap.Int("pool_size", o.pool.size), zap.Int("queue_size", cap(o.pool.tasks)))
		o.pool.start(ctx)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.janitor.Run(ctx)
		}()

		<-ctx.Done()
		o.pool.wait()
		wg.Wait()
		o.logger.Info("workers stopped")
	})
}

// ConcurrencyOK reports whether clientID may start another job.
func (o *Orchestrator) ConcurrencyOK(clientID string) bool {
	return o.store.CountActive(clientID) < o.maxConcurrent
}

// Submit admits req, records a queued job and hands it to the pool.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if !domain.IsInstagramURL(req.URL) {
		o.metrics.JobRejected(metrics.ReasonInvalid)
		return "", domain.NewValidationError("url", "Invalid Instagram URL")
	}
	if req.Format == "" {
		req.Format = domain.FormatVideo
	}

	if !o.ConcurrencyOK(req.ClientID) {
		o.metrics.JobRejected(metrics.ReasonConcurrency)
		return "", domain.ErrTooManyActive
	}
	if !o.limiter.Admit(req.ClientID) {
		o.metrics.JobRejected(metrics.ReasonRateLimited)
		return "", domain.ErrRateLimited
	}

	jobID := newJobID()
	job := domain.NewJob(jobID, req.URL, req.ClientID, req.Format, req.Proxy != "", o.now())
	if err := o.store.CreateLimited(job, o.maxConcurrent); err != nil {
		if errors.Is(err, domain.ErrTooManyActive) {
			o.metrics.JobRejected(metrics.ReasonConcurrency)
		}
		return "", err
	}

	if err := o.pool.enqueue(task{jobID: jobID, proxy: req.Proxy}); err != nil {
		o.store.Delete(jobID)
		o.metrics.JobRejected(metrics.ReasonQueueFull)
		return "", err
	}

	o.metrics.JobSubmitted(string(req.Format))
	o.logger.Info("job queued",
		zap.String("job_id", jobID),
		zap.String("client_id", req.ClientID),
		zap.String("format", string(req.Format)),
		zap.Bool("proxied", req.Proxy != ""),
	)
	return jobID, nil
}

// Job returns a copy of the job.
func (o *Orchestrator) Job(id string) (domain.Job, bool) {
	return o.store.Get(id)
}

// ReadyFile returns the job when its output can be served.
func (o *Orchestrator) ReadyFile(id string) (domain.Job, error) {
	job, ok := o.store.Get(id)
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if job.Status != domain.StatusReady || job.FilePath == "" {
		return job, domain.ErrFileNotReady
	}
	return job, nil
}

// Jobs returns the number of jobs in the table.
func (o *Orchestrator) Jobs() int {
	return o.store.Len()
}

func newJobID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
