package ports

import (
	"context"
	"os"
	"time"

	"instaweb/internal/core/domain"
)

// ProgressFunc receives engine progress for one job.
type ProgressFunc func(domain.Progress)

// ExtractRequest holds everything the engine needs for one download.
type ExtractRequest struct {
	URL            string
	Format         domain.Format
	OutputTemplate string
	Headers        map[string]string
	ExtractorArgs  string
	Proxy          string
	CookiesFile    string
	// FFmpegPath is empty when no transcoder could be resolved.
	FFmpegPath string
}

// Extractor defines the contract for the external extraction engine.
type Extractor interface {
	// Extract resolves and downloads req.URL into the output template,
	// blocking until the engine exits.
	Extract(ctx context.Context, req ExtractRequest, onProgress ProgressFunc) error
}

// EngineUpdater refreshes the extraction engine in place.
type EngineUpdater interface {
	Update(ctx context.Context) error
}

// TranscoderLocator resolves the transcoder binary handed to the engine.
type TranscoderLocator interface {
	// Locate returns the path to use, or an error wrapping
	// domain.ErrTranscoderMissing when nothing usable was found.
	Locate() (string, error)
}

// Entry is a top-level item in the download root.
type Entry struct {
	Path    string
	ModTime time.Time
}

// Storage defines the contract for the per-job working directories.
type Storage interface {
	// InitJob creates the job directory and returns its path.
	InitJob(ctx context.Context, jobID string) (string, error)

	// GetJobPath returns the filesystem path for a given job ID.
	GetJobPath(jobID string) string

	// FindOutput walks dir and returns the first file with extension ext.
	FindOutput(dir, ext string) (string, os.FileInfo, error)

	// ListEntries lists the top-level entries of the download root.
	ListEntries() ([]Entry, error)

	// Remove recursively deletes path.
	Remove(path string) error
}

// JobStore is the concurrency-safe job table.
type JobStore interface {
	Create(job domain.Job) error

	// CreateLimited inserts job unless its client already has maxActive
	// queued or running jobs. maxActive <= 0 disables the check.
	CreateLimited(job domain.Job, maxActive int) error

	// Get returns a copy of the job.
	Get(id string) (domain.Job, bool)

	// Update applies fn under the table lock. It returns false when the
	// job does not exist, in which case fn is not called.
	Update(id string, fn func(*domain.Job)) bool

	Delete(id string)

	CountActive(clientID string) int

	// DeleteWhere removes every job matching fn and returns their IDs.
	DeleteWhere(fn func(domain.Job) bool) []string

	Len() int
}
