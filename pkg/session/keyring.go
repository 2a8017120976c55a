package session

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the session set in the OS keyring instead of a file,
// for machines where tokens must not touch disk.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a keyring-backed store. service defaults to
// "hostctl", user to "sessions".
func NewKeyringStore(service, user string) *KeyringStore {
	if service == "" {
		service = "hostctl"
	}
	if user == "" {
		user = "sessions"
	}
	return &KeyringStore{service: service, user: user}
}

// Load implements Store.
func (k *KeyringStore) Load() (map[string]*Session, error) {
	data, err := keyring.Get(k.service, k.user)
	if err == keyring.ErrNotFound {
		return map[string]*Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	var doc storeDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("parse keyring session store: %w", err)
	}
	out := make(map[string]*Session, len(doc.Sessions))
	for _, s := range doc.Sessions {
		s.Host = NormalizeHost(s.Host)
		out[s.Host] = s
	}
	return out, nil
}

// Save implements Store.
func (k *KeyringStore) Save(sessions map[string]*Session) error {
	doc := storeDoc{Version: 1, Sessions: make([]*Session, 0, len(sessions))}
	for _, s := range sessions {
		doc.Sessions = append(doc.Sessions, s)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal session store: %w", err)
	}
	if err := keyring.Set(k.service, k.user, string(data)); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}
