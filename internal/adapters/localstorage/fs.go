package localstorage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"instaweb/internal/core/domain"
	"instaweb/internal/core/ports"
)

// errStopWalk ends a directory walk early once a match is found.
var errStopWalk = errors.New("stop walk")

// LocalStorage implements ports.Storage for the local filesystem. Every
// job gets its own directory directly under BaseDir.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// Ensure creates the download root.
func (s *LocalStorage) Ensure() error {
	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create download root %s", s.BaseDir)
	}
	return nil
}

// InitJob creates the job directory.
func (s *LocalStorage) InitJob(ctx context.Context, jobID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.GetJobPath(jobID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create job directory %s", path)
	}
	return path, nil
}

// GetJobPath returns the path for a job directory.
func (s *LocalStorage) GetJobPath(jobID string) string {
	return filepath.Join(s.BaseDir, jobID)
}

// FindOutput returns the first file under dir whose extension is ext.
func (s *LocalStorage) FindOutput(dir, ext string) (string, os.FileInfo, error) {
	suffix := "." + strings.ToLower(ext)
	var found string
	var info os.FileInfo

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			switch {
			case !errors.Is(err, fs.ErrNotExist):
				return err
			case path == dir:
				return domain.ErrOutputNotFound
			default:
				// vanished mid-walk
				return nil
			}
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), suffix) {
			return nil
		}
		fi, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		found, info = path, fi
		return errStopWalk
	})
	switch {
	case errors.Is(err, domain.ErrOutputNotFound):
		return "", nil, domain.ErrOutputNotFound
	case err != nil && !errors.Is(err, errStopWalk):
		return "", nil, errors.Wrapf(err, "failed to scan %s", dir)
	}
	if found == "" {
		return "", nil, domain.ErrOutputNotFound
	}
	return found, info, nil
}

// ListEntries lists the top-level entries of the download root.
func (s *LocalStorage) ListEntries() ([]ports.Entry, error) {
	dirEntries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.BaseDir)
	}

	entries := make([]ports.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		fi, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		entries = append(entries, ports.Entry{
			Path:    filepath.Join(s.BaseDir, de.Name()),
			ModTime: fi.ModTime(),
		})
	}
	return entries, nil
}

// Remove recursively deletes path.
func (s *LocalStorage) Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "failed to remove %s", path)
	}
	return nil
}
