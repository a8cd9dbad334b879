package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		expected bool
	}{
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusError, true},
		{StatusQueued, StatusReady, false},
		{StatusRunning, StatusReady, true},
		{StatusRunning, StatusError, true},
		{StatusRunning, StatusQueued, false},
		{StatusReady, StatusError, false},
		{StatusError, StatusReady, false},
		{StatusReady, StatusRunning, false},
		{StatusQueued, StatusUnknown, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in       string
		expected Format
		ok       bool
	}{
		{"", FormatVideo, true},
		{"mp4", FormatVideo, true},
		{"video", FormatVideo, true},
		{"audio", FormatAudio, true},
		{"mp3", FormatAudio, true},
		{"flac", "", false},
	}
	for _, tt := range tests {
		f, ok := ParseFormat(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.expected, f, tt.in)
	}
	assert.Equal(t, "mp4", FormatVideo.Extension())
	assert.Equal(t, "mp3", FormatAudio.Extension())
}

func TestNewDownloadProgress(t *testing.T) {
	p := NewDownloadProgress(50, 200, 3*time.Second)
	require.NotNil(t, p.Percent)
	assert.InDelta(t, 25.0, *p.Percent, 0.001)
	assert.Equal(t, int64(3), *p.ETA)

	unknown := NewDownloadProgress(50, 0, 0)
	assert.Nil(t, unknown.Percent)
	assert.Nil(t, unknown.Total)
	assert.Nil(t, unknown.ETA)
	assert.Equal(t, int64(50), *unknown.Downloaded)
}

func TestViewOf(t *testing.T) {
	j := NewJob("id", "u", "c", FormatVideo, false, time.Now())
	j.Error = "stale"

	raw, err := json.Marshal(ViewOf(j))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"queued","progress":{"status":"queued"},"error":null,"filename":null,"size":null}`, string(raw))

	j.Status = StatusError
	raw, err = json.Marshal(ViewOf(j))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"error":"stale"`)
}

func TestClassifyEngineError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"forbidden", errors.New("ERROR: [Instagram] abc: HTTP Error 403 Forbidden"), MsgAuthRequired},
		{"login required", errors.New("login_required: Please log in"), MsgAuthRequired},
		{"sign in", errors.New("Please Sign In to continue"), MsgAuthRequired},
		{"engine binary missing", fmt.Errorf("run: %w", exec.ErrNotFound), MsgDownloadFailed},
		{"engine path missing", fmt.Errorf("run: %w", fs.ErrNotExist), MsgDownloadFailed},
		{"auth before transcoder", errors.New("ERROR: ffmpeg not found; also login required"), MsgAuthRequired},
		{"transcoder sentinel", fmt.Errorf("locate: %w", ErrTranscoderMissing), MsgTranscoderGone},
		{"ffprobe text", errors.New("ERROR: Postprocessing: ffprobe and ffmpeg not found"), MsgTranscoderGone},
		{"generic", errors.New("Unsupported URL"), MsgDownloadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyEngineError(tt.err))
		})
	}
	assert.Empty(t, ClassifyEngineError(nil))
}

func TestValidationError(t *testing.T) {
	assert.Equal(t, "url: not an Instagram post", NewValidationError("url", "not an Instagram post").Error())
	assert.Equal(t, "bad body", NewValidationError("", "bad body").Error())
}
