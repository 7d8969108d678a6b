package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/zccoffin/Spekter/internal/ports"
)

const (
	storeFileMode   = 0o600
	storeDirMode    = 0o700
	tempFilePattern = ".store-*.toml.tmp"
)

// Store is a flat identity-keyed string store persisted as a TOML file. The
// whole file is read once at open and atomically rewritten on every Put, so
// concurrent writers on disjoint keys never corrupt each other.
type Store struct {
	path    string
	mu      *sync.RWMutex
	entries map[string]string
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.KeyValue = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	s := &Store{path: absPath, mu: lockForPath(absPath)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	return value, ok
}

func (s *Store) Put(key, value string) error {
	if key == "" {
		return errors.New("store key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return s.write()
}

// Len reports how many identities currently have a persisted value.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = map[string]string{}
			return nil
		}
		return fmt.Errorf("read store file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return err
	}

	s.entries = file.Entries
	if s.entries == nil {
		s.entries = map[string]string{}
	}
	return nil
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), storeDirMode); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := toml.Marshal(fileSchema{Version: currentSchemaVersion, Entries: s.entries})
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}

	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp store file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	cleanup = false
	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
