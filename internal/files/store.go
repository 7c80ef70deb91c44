package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
)

// Config holds file store configuration
type Config struct {
	Logger      *slog.Logger
	DownloadDir string
	StagingDir  string
}

// Store keeps customer uploads on local disk and stages them for printing
type Store struct {
	logger      *slog.Logger
	downloadDir string
	stagingDir  string
	now         func() time.Time
}

// New creates a file store rooted at the configured directories
func New(cfg *Config) *Store {
	s := &Store{
		logger:      cfg.Logger,
		downloadDir: cfg.DownloadDir,
		stagingDir:  cfg.StagingDir,
		now:         time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// EnsureDirs creates the download and staging roots
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.downloadDir, s.stagingDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// SaveUpload writes an uploaded document to <download_dir>/<customer>/<timestamp>_<name>
func (s *Store) SaveUpload(customerID, fileName string, content []byte) (string, error) {
	if err := validSegment(customerID); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean(fileName))
	if err := validSegment(name); err != nil {
		return "", err
	}

	dir := filepath.Join(s.downloadDir, customerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	path, f, err := createUnique(dir, name, s.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	s.logger.Debug("Saved upload",
		slog.String("customer_id", customerID),
		slog.String("path", path),
		slog.Int("size", len(content)),
	)
	return path, nil
}

// createUnique opens <dir>/<stamp>_<name>, bumping stamp while the name is taken
func createUnique(dir, name string, stamp int64) (string, *os.File, error) {
	const maxAttempts = 100
	for i := 0; i < maxAttempts; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d_%s", stamp+int64(i), name))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return path, f, nil
	}
	return "", nil, fmt.Errorf("no free name for %s in %s", name, dir)
}

// CopyForPrintQueue copies src into dstDir under newName and returns the new path
func (s *Store) CopyForPrintQueue(src, dstDir, newName string) (string, error) {
	name := filepath.Base(filepath.Clean(newName))
	if err := validSegment(name); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	dst := filepath.Join(dstDir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}

	return dst, nil
}

// RemoveFiles deletes the given uploads or staged copies. Missing files are
// ignored, and a parent directory left empty is removed with them.
func (s *Store) RemoveFiles(paths ...string) error {
	var errs []error
	dirs := make(map[string]struct{})
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		dirs[filepath.Dir(path)] = struct{}{}
	}

	for dir := range dirs {
		// only succeeds once nothing else lives there
		_ = os.Remove(dir)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to remove files: %w", err)
	}
	s.logger.Debug("Removed files", slog.Int("count", len(paths)))
	return nil
}

// DeleteCustomerStorage removes the customer's upload and staging directories
func (s *Store) DeleteCustomerStorage(customerID string) error {
	if err := validSegment(customerID); err != nil {
		return err
	}

	var errs []error
	for _, root := range []string{s.downloadDir, s.stagingDir} {
		if root == "" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, customerID)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to delete storage for %s: %w", customerID, err)
	}

	s.logger.Info("Deleted customer storage", slog.String("customer_id", customerID))
	return nil
}

// validSegment rejects values that would escape their directory
func validSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: unsafe path segment %q", domain.ErrInvalidInput, s)
	}
	return nil
}
