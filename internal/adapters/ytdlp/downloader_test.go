package ytdlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instaweb/internal/core/domain"
)

func TestHeaderArgs(t *testing.T) {
	args := headerArgs(map[string]string{
		"User-Agent": "Mozilla/5.0",
		"DNT":        "1",
	})
	assert.Equal(t, []string{
		"--add-headers", "DNT:1",
		"--add-headers", "User-Agent:Mozilla/5.0",
	}, args)
	assert.Empty(t, headerArgs(nil))
}

func TestToProgress(t *testing.T) {
	p, ok := toProgress(ytdlp.ProgressUpdate{
		Status:          ytdlp.ProgressStatusDownloading,
		DownloadedBytes: 25,
		TotalBytes:      100,
	})
	require.True(t, ok)
	assert.Equal(t, domain.StageDownloading, p.Stage)
	require.NotNil(t, p.Percent)
	assert.InDelta(t, 25.0, *p.Percent, 0.001)

	p, ok = toProgress(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, DownloadedBytes: 10})
	require.True(t, ok)
	assert.Nil(t, p.Percent)

	p, ok = toProgress(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusFinished})
	require.True(t, ok)
	assert.Equal(t, domain.StageFinished, p.Stage)

	_, ok = toProgress(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusStarting})
	assert.False(t, ok)
}

func TestCookieNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		".instagram.com\tTRUE\t/\tTRUE\t0\tsessionid\tabc\n" +
		".instagram.com\tTRUE\t/\tTRUE\t0\tcsrftoken\tdef\n" +
		".instagram.com TRUE / TRUE 0 sessionid again\n" +
		"malformed line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	names, err := CookieNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"csrftoken", "sessionid"}, names)

	_, err = CookieNames(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
