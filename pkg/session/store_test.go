package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	obtained := time.Now().Truncate(time.Second)
	in := map[string]*Session{
		"alpha.example": {
			Host:       "alpha.example",
			Username:   "admin",
			Token:      "tok-a",
			Default:    true,
			State:      StateAuthenticated,
			ObtainedAt: obtained,
		},
		"beta.example": {
			Host:       "beta.example",
			Username:   "ops",
			Token:      "tok-b",
			State:      StateExpired,
			ObtainedAt: obtained,
		},
	}

	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("Load() returned %d sessions, want %d", len(out), len(in))
	}
	for host, want := range in {
		got := out[host]
		if got == nil {
			t.Fatalf("session %s missing after round trip", host)
		}
		if got.Username != want.Username || got.Token != want.Token ||
			got.Default != want.Default || got.State != want.State {
			t.Errorf("session %s = %+v, want %+v", host, got, want)
		}
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Load() of missing file = %v, want empty", sessions)
	}
}

func TestFileStoreNormalizesHostKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := store.Save(map[string]*Session{
		"Alpha.Example": {Host: "Alpha.Example", Token: "t", State: StateAuthenticated},
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out["alpha.example"] == nil {
		t.Errorf("host key not normalized on load: %v", out)
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Save(map[string]*Session{
		"a.example": {Host: "a.example", Token: "t", State: StateAuthenticated},
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("store file mode = %o, want 600", perm)
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Example.COM", "example.com"},
		{"  host.test ", "host.test"},
		{"already.lower", "already.lower"},
	}
	for _, tt := range tests {
		if got := NormalizeHost(tt.in); got != tt.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Idempotence.
		if got := NormalizeHost(NormalizeHost(tt.in)); got != tt.want {
			t.Errorf("NormalizeHost not idempotent for %q", tt.in)
		}
	}
}
