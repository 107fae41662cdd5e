package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/apply-autopilot/internal/browser"
)

// Key identifies a persisted session. Two users of one platform never share
// an entry.
type Key struct {
	Platform   string
	Identifier string
}

// String renders the key as session:<platform>:<identifier>.
func (k Key) String() string {
	return "session:" + k.Platform + ":" + strings.ToLower(k.Identifier)
}

// Store persists session cookies between runs.
type Store interface {
	// Load returns nil, nil when nothing is stored for key.
	Load(ctx context.Context, key Key) ([]browser.Cookie, error)
	Save(ctx context.Context, key Key, cookies []browser.Cookie) error
	Delete(ctx context.Context, key Key) error
}

// Blobs is raw keyed storage underneath a CookieStore.
type Blobs interface {
	// Get returns nil, nil for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type storedSession struct {
	Platform string           `json:"platform"`
	SavedAt  time.Time        `json:"saved_at"`
	Cookies  []browser.Cookie `json:"cookies"`
}

// CookieStore implements Store over any Blobs backend. Expired cookies are
// dropped on load.
type CookieStore struct {
	blobs Blobs
	now   func() time.Time
}

// NewCookieStore creates a Store backed by blobs.
func NewCookieStore(blobs Blobs) *CookieStore {
	return &CookieStore{blobs: blobs, now: time.Now}
}

func (s *CookieStore) Load(ctx context.Context, key Key) ([]browser.Cookie, error) {
	data, err := s.blobs.Get(ctx, key.String())
	if err != nil {
		return nil, &StoreError{Message: "failed to read " + key.Platform + " session", Cause: err}
	}
	if data == nil {
		return nil, nil
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, &StoreError{Message: "stored session is corrupt", Cause: err}
	}

	now := float64(s.now().Unix())
	live := stored.Cookies[:0]
	for _, c := range stored.Cookies {
		if c.Expires > 0 && c.Expires < now {
			continue
		}
		live = append(live, c)
	}
	return live, nil
}

func (s *CookieStore) Save(ctx context.Context, key Key, cookies []browser.Cookie) error {
	data, err := json.Marshal(storedSession{Platform: key.Platform, SavedAt: s.now().UTC(), Cookies: cookies})
	if err != nil {
		return &StoreError{Message: "failed to encode session", Cause: err}
	}
	if err := s.blobs.Put(ctx, key.String(), data); err != nil {
		return &StoreError{Message: "failed to write " + key.Platform + " session", Cause: err}
	}
	return nil
}

func (s *CookieStore) Delete(ctx context.Context, key Key) error {
	if err := s.blobs.Delete(ctx, key.String()); err != nil {
		return &StoreError{Message: "failed to delete " + key.Platform + " session", Cause: err}
	}
	return nil
}

// FileStore keeps one JSON file per key under a directory. File names hash
// the key so identifiers never appear on disk.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	platform := "session"
	if parts := strings.SplitN(key, ":", 3); len(parts) == 3 {
		platform = parts[1]
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, platform+"_"+hex.EncodeToString(sum[:8])+".json")
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (f *FileStore) Put(_ context.Context, key string, data []byte) error {
	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
