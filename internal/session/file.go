package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type fileState struct {
	Auth           *Auth    `json:"auth,omitempty"`
	RecentSearches []string `json:"recent_searches"`
}

// FileStore keeps the session in a JSON file readable only by its owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is the session file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "skillmatch", "session.json"), nil
}

func (f *FileStore) read() (*fileState, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	var state fileState
	if len(data) == 0 {
		return &state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return &state, nil
}

func (f *FileStore) write(state *fileState) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) update(fn func(*fileState)) (*fileState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.read()
	if err != nil {
		return nil, err
	}
	fn(state)
	if err := f.write(state); err != nil {
		return nil, err
	}
	return state, nil
}

func (f *FileStore) LoadAuth(context.Context) (*Auth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.read()
	if err != nil {
		return nil, err
	}
	return state.Auth, nil
}

func (f *FileStore) SaveAuth(_ context.Context, auth *Auth) error {
	_, err := f.update(func(s *fileState) { s.Auth = auth })
	return err
}

func (f *FileStore) ClearAuth(context.Context) error {
	_, err := f.update(func(s *fileState) { s.Auth = nil })
	return err
}

func (f *FileStore) RecentSearches(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.read()
	if err != nil {
		return nil, err
	}
	if state.RecentSearches == nil {
		return []string{}, nil
	}
	return state.RecentSearches, nil
}

func (f *FileStore) PushSearch(_ context.Context, term string, limit int) ([]string, error) {
	state, err := f.update(func(s *fileState) {
		s.RecentSearches = pushRecent(s.RecentSearches, term, limit)
	})
	if err != nil {
		return nil, err
	}
	return state.RecentSearches, nil
}
