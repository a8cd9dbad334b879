package domain

import (
	"errors"
	"fmt"
	"strings"
)

// User-facing messages stored on failed jobs.
const (
	MsgAuthRequired   = "Instagram requires login for this content. Unable to download without authentication."
	MsgTranscoderGone = "ffmpeg not found or not executable. Please install ffmpeg."
	MsgDownloadFailed = "Failed to download media. The URL may be private or invalid."
	MsgOutputNotFound = "Download finished but output file not found."
	MsgServerError    = "Server error while processing the download."
)

var (
	ErrUnauthorized      = errors.New("invalid or missing API key")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrTooManyActive     = errors.New("too many active jobs")
	ErrQueueFull         = errors.New("download queue is full")
	ErrJobNotFound       = errors.New("job not found")
	ErrFileNotReady      = errors.New("file not ready")
	ErrJobExists         = errors.New("job already exists")
	ErrTranscoderMissing = errors.New("transcoder not found")
	ErrOutputNotFound    = errors.New("output not found")
)

// ValidationError is returned for requests rejected before a job exists.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// authKeywords are matched case-insensitively against engine error text.
var authKeywords = []string{
	"login",
	"403",
	"forbidden",
	"private",
	"authentication",
	"login_required",
	"not authorized",
	"please sign in",
}

// IsAuthError reports whether the engine error text points at content
// that needs a logged-in session.
func IsAuthError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, k := range authKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// IsMissingBinary reports whether err means the transcoder could not be
// found or executed.
func IsMissingBinary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTranscoderMissing) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "ffmpeg not found") ||
		strings.Contains(lower, "ffprobe and ffmpeg not found") ||
		strings.Contains(lower, "ffmpeg is not installed")
}

// ClassifyEngineError maps an engine failure to the message stored on the job.
func ClassifyEngineError(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthError(err.Error()):
		return MsgAuthRequired
	case IsMissingBinary(err):
		return MsgTranscoderGone
	default:
		return MsgDownloadFailed
	}
}
