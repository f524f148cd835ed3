package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/perfguard/backend/internal/infrastructure/logging"
	"github.com/perfguard/backend/internal/shared/types"
)

// Store persists durable agent state.
type Store interface {
	Load() (types.PersistedData, error)
	Save(data types.PersistedData) error
}

// FileStore persists state as a single JSON document, written atomically
// via a temp file and rename.
type FileStore struct {
	path   string
	backup bool
	log    *logging.Logger
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		log:  logging.NewNop(),
	}
}

// WithLogger sets the logger.
func (s *FileStore) WithLogger(log *logging.Logger) *FileStore {
	s.log = log.Component("store")
	return s
}

// WithBackup enables a compressed backup of the previous file before
// each save.
func (s *FileStore) WithBackup(enabled bool) *FileStore {
	s.backup = enabled
	return s
}

// Path returns the data file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads persisted state. A missing file is not an error; it yields
// empty state with the session id counter at 1.
func (s *FileStore) Load() (types.PersistedData, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Info("no data file yet, starting fresh")
		return types.PersistedData{NextSessionID: 1}, nil
	}
	if err != nil {
		return types.PersistedData{}, fmt.Errorf("failed to read data file: %w", err)
	}

	var data types.PersistedData
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return types.PersistedData{}, fmt.Errorf("failed to decode data file: %w", err)
	}
	if data.NextSessionID < 1 {
		data.NextSessionID = 1
	}
	return data, nil
}

// Save writes persisted state atomically.
func (s *FileStore) Save(data types.PersistedData) error {
	raw, err := sonic.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	if s.backup {
		if err := writeBackup(s.path); err != nil {
			// A failed backup never blocks the save.
			s.log.Warn("backup failed: " + err.Error())
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
