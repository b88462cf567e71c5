package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type filePayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// File stores the pair as a single JSON document with 0600 permissions.
// Intended for CLI processes that outlive no one but need to survive their
// own restarts.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a file-backed store rooted at path. The parent directory
// is created on first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load implements Store. A missing file yields a zero Pair.
func (f *File) Load(_ context.Context) (Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Pair{}, nil
		}
		return Pair{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// A corrupt credential file is equivalent to no credentials.
		return Pair{}, nil
	}
	return Pair{Access: payload.AccessToken, Refresh: payload.RefreshToken}, nil
}

// Save implements Store. The file is replaced atomically via rename.
func (f *File) Save(_ context.Context, pair Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := json.Marshal(filePayload{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear implements Store. Removing an absent file is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
