// internal/store/filestore/store.go
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/filelock"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
)

const (
	recordExt    = ".json"
	lockFileName = ".assessments.lock"
)

// Store keeps one JSON document per assessment under a data directory. Writers hold a
// directory-wide flock so several processes can share the directory.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger logger.Logger
}

func New(dir string, log logger.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: log.WithFields(map[string]interface{}{"store": "file", "dir": dir}),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Create(ctx context.Context, record *models.Assessment) (string, error) {
	path, err := s.path(record.ID)
	if err != nil {
		return "", err
	}
	err = s.withLock(ctx, func() error {
		if _, err := os.Stat(path); err == nil {
			return apperrors.NewConflictError(record.ID)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewStorageError("create", err)
		}
		return s.write(path, record)
	})
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *Store) Get(_ context.Context, id string) (*models.Assessment, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, apperrors.NewNotFoundError(id)
	}
	return s.read(path, id)
}

func (s *Store) Update(ctx context.Context, record *models.Assessment) error {
	path, err := s.path(record.ID)
	if err != nil {
		return apperrors.NewNotFoundError(record.ID)
	}
	return s.withLock(ctx, func() error {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewNotFoundError(record.ID)
		}
		return s.write(path, record)
	})
}

func (s *Store) CompareAndSwap(ctx context.Context, record *models.Assessment, expected models.Status) error {
	path, err := s.path(record.ID)
	if err != nil {
		return apperrors.NewNotFoundError(record.ID)
	}
	return s.withLock(ctx, func() error {
		current, err := s.read(path, record.ID)
		if err != nil {
			return err
		}
		if current.Status != expected {
			return apperrors.NewInvalidTransitionError(record.ID, string(current.Status))
		}
		return s.write(path, record)
	})
}

// List scans the data directory. Unreadable documents are logged and skipped.
func (s *Store) List(_ context.Context) ([]*models.Assessment, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}

	records := make([]*models.Assessment, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		id := strings.TrimSuffix(name, recordExt)
		record, err := s.read(filepath.Join(s.dir, name), id)
		if err != nil {
			s.logger.Warn("Skipping unreadable assessment file", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := filelock.WithLock(ctx, filepath.Join(s.dir, lockFileName), fn)
	if err != nil {
		if _, ok := apperrors.AsStandard(err); ok {
			return err
		}
		return apperrors.NewStorageError("lock", err)
	}
	return nil
}

func (s *Store) read(path, id string) (*models.Assessment, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("read", err)
	}
	var record models.Assessment
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("%s: %w", filepath.Base(path), err))
	}
	return &record, nil
}

func (s *Store) write(path string, record *models.Assessment) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode", err)
	}
	if err := filelock.AtomicWrite(path, data); err != nil {
		return apperrors.NewStorageError("write", err)
	}
	return nil
}

// path maps an id to its document. Ids that could escape the directory are rejected.
func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid assessment id %q", id), nil, []string{"id"})
	}
	return filepath.Join(s.dir, id+recordExt), nil
}
