package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomide-ak/invoice-bridge/constants"
)

// Store persists pipeline artifacts and returns opaque locators. The
// orchestrator holds a Store capability instead of branching on a
// process-wide storage mode.
type Store interface {
	// Write saves content under name in the given category and returns a
	// locator that Read accepts.
	Write(content []byte, name string, category constants.FileCategory) (string, error)
	// Read loads the content a previous Write stored.
	Read(locator string) ([]byte, error)
}

// LocalStore keeps artifacts on the local filesystem, one directory per
// category. Locators are absolute file paths.
type LocalStore struct {
	dirs   map[constants.FileCategory]string
	logger *slog.Logger
}

// NewLocalStore creates the category directories if needed.
func NewLocalStore(uploadDir, convertedDir string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dirs := map[constants.FileCategory]string{
		constants.CategoryUploads:   uploadDir,
		constants.CategoryConverted: convertedDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &LocalStore{dirs: dirs, logger: logger}, nil
}

func (s *LocalStore) Write(content []byte, name string, category constants.FileCategory) (string, error) {
	dir, ok := s.dirs[category]
	if !ok {
		return "", fmt.Errorf("unknown storage category %q", category)
	}
	// Strip any path the caller smuggled into the name.
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.logger.Info("storage.write.ok", "category", string(category), "name", name, "bytes", len(content))
	return abs, nil
}

func (s *LocalStore) Read(locator string) ([]byte, error) {
	content, err := os.ReadFile(locator)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}
	return content, nil
}
