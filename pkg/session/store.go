package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
)

// Store persists the session set. Implementations must round-trip: a Save
// followed by Load reproduces the same session set.
type Store interface {
	// Load reads the full session set, keyed by normalized host. A missing
	// store is an empty set, not an error.
	Load() (map[string]*Session, error)
	// Save writes the full session set.
	Save(sessions map[string]*Session) error
}

// FileStore keeps sessions in a JSON document under the user config
// directory, mode 0600.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path; empty means the
// default location under the XDG config home.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = filepath.Join(xdg.ConfigHome, "hostctl", "sessions.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// storeDoc is the on-disk shape. Sessions are serialized as a sorted list
// so the file is diff-stable.
type storeDoc struct {
	Version  int        `json:"version"`
	Sessions []*Session `json:"sessions"`
}

// Load implements Store.
func (f *FileStore) Load() (map[string]*Session, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]*Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session store: %w", err)
	}

	var doc storeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse session store: %w", err)
	}

	out := make(map[string]*Session, len(doc.Sessions))
	for _, s := range doc.Sessions {
		s.Host = NormalizeHost(s.Host)
		out[s.Host] = s
	}
	return out, nil
}

// Save implements Store. The write is atomic: a temp file is renamed over
// the store so a crash never leaves a truncated session set.
func (f *FileStore) Save(sessions map[string]*Session) error {
	doc := storeDoc{Version: 1, Sessions: make([]*Session, 0, len(sessions))}
	for _, s := range sessions {
		doc.Sessions = append(doc.Sessions, s)
	}
	sort.Slice(doc.Sessions, func(i, j int) bool {
		return doc.Sessions[i].Host < doc.Sessions[j].Host
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session store: %w", err)
	}
	return nil
}
