package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"instaweb/internal/core/domain"
)

// DefaultPath is the fallback used when FFMPEG_PATH is not set.
func DefaultPath() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "/usr/bin/ffmpeg"
}

// Locator resolves the ffmpeg binary: the system PATH first, then a
// configured fallback path.
type Locator struct {
	fallback string
	lookPath func(string) (string, error)
}

// NewLocator creates a Locator. An empty fallback uses DefaultPath.
func NewLocator(fallback string) *Locator {
	if fallback == "" {
		fallback = DefaultPath()
	}
	return &Locator{fallback: fallback, lookPath: exec.LookPath}
}

// Locate implements ports.TranscoderLocator.
func (l *Locator) Locate() (string, error) {
	if path, err := l.lookPath("ffmpeg"); err == nil {
		return path, nil
	}
	if fi, err := os.Stat(l.fallback); err == nil && !fi.IsDir() {
		return l.fallback, nil
	}
	return "", fmt.Errorf("%w: not on PATH and not at %s", domain.ErrTranscoderMissing, l.fallback)
}
