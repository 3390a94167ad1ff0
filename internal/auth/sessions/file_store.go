package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore implements SessionStore with a single JSON document on disk.
// State survives process restarts. A file that cannot be read or parsed is
// treated as an absent session so a corrupt slot degrades to logged-out
// instead of wedging the state machine.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a new file-backed store at the given path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Read deserializes the stored session, or returns (nil, nil) when the file
// is missing or malformed
func (s *FileStore) Read(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn("Stored session is malformed, treating as absent",
			zap.String("path", s.path),
			zap.Error(err))
		return nil, nil
	}
	if session.User == nil {
		s.logger.Warn("Stored session has no user, treating as absent",
			zap.String("path", s.path))
		return nil, nil
	}

	return &session, nil
}

// Write serializes the session and replaces the file atomically
func (s *FileStore) Write(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	// write to a temp file and rename so a crash never leaves a torn record
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Clear removes the session file; missing files are not an error
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
