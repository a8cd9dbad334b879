package domain

import "time"

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusReady   Status = "ready"
	StatusError   Status = "error"

	// StatusUnknown is never stored; it is what a client sees for a job
	// that does not exist (or was reclaimed by the janitor).
	StatusUnknown Status = "unknown"
)

// IsActive reports whether the job still occupies a concurrency slot.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusRunning
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusRunning:
		return 1
	case StatusReady, StatusError:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next keeps the status
// walk monotonic: queued -> running -> {ready, error}.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() || next.rank() < 0 || s.rank() < 0 {
		return false
	}
	if next == StatusError {
		return true
	}
	return next.rank() == s.rank()+1
}

// Format is the requested output kind.
type Format string

const (
	FormatVideo Format = "video"
	FormatAudio Format = "audio"
)

// ParseFormat maps the request value to a Format. Empty means video, and
// the container/codec names used by older clients are accepted too.
func ParseFormat(v string) (Format, bool) {
	switch v {
	case "", "video", "mp4":
		return FormatVideo, true
	case "audio", "mp3":
		return FormatAudio, true
	default:
		return "", false
	}
}

// Extension is the file extension the engine is expected to produce.
func (f Format) Extension() string {
	if f == FormatAudio {
		return "mp3"
	}
	return "mp4"
}

// Stage tags a progress snapshot.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageStarted     Stage = "started"
	StageDownloading Stage = "downloading"
	StageFinished    Stage = "finished"
	StageError       Stage = "error"
)

// Progress is a point-in-time summary of a running job's transfer.
// Pointer fields are nil when the engine did not report them.
type Progress struct {
	Stage      Stage    `json:"status"`
	Downloaded *int64   `json:"downloaded,omitempty"`
	Total      *int64   `json:"total,omitempty"`
	Percent    *float64 `json:"percent,omitempty"`
	ETA        *int64   `json:"eta,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// NewDownloadProgress builds a downloading snapshot. Percent is only set
// when both byte counts are known.
func NewDownloadProgress(downloaded, total int64, eta time.Duration) Progress {
	p := Progress{Stage: StageDownloading, Downloaded: &downloaded}
	if total > 0 {
		p.Total = &total
		pct := float64(downloaded) / float64(total) * 100
		p.Percent = &pct
	}
	if eta > 0 {
		secs := int64(eta.Seconds())
		p.ETA = &secs
	}
	return p
}

// Job represents a single user-requested download.
type Job struct {
	ID        string
	Status    Status
	Progress  Progress
	Format    Format
	URL       string
	ClientID  string
	Proxied   bool
	CreatedAt time.Time

	WorkDir  string
	FilePath string
	FileName string
	Size     *int64
	Error    string
}

// NewJob returns a queued job.
func NewJob(id, url, clientID string, format Format, proxied bool, now time.Time) Job {
	return Job{
		ID:        id,
		Status:    StatusQueued,
		Progress:  Progress{Stage: StageQueued},
		Format:    format,
		URL:       url,
		ClientID:  clientID,
		Proxied:   proxied,
		CreatedAt: now,
	}
}

// View is the projection of a job streamed to clients.
type View struct {
	Status   Status    `json:"status"`
	Progress *Progress `json:"progress"`
	Error    *string   `json:"error"`
	FileName *string   `json:"filename"`
	Size     *int64    `json:"size"`
}

// UnknownView is what clients receive for a job that does not exist.
type UnknownView struct {
	Status Status `json:"status"`
}

// ViewOf projects j. The error field is only populated in the error state.
func ViewOf(j Job) View {
	progress := j.Progress
	v := View{
		Status:   j.Status,
		Progress: &progress,
		Size:     j.Size,
	}
	if j.Status == StatusError {
		msg := j.Error
		v.Error = &msg
	}
	if j.FileName != "" {
		name := j.FileName
		v.FileName = &name
	}
	return v
}
