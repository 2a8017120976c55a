package actionsmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Source describes where the actions map comes from. Remote is preferred
// when reachable so the command surface matches the server's installed
// version; Fallback is the copy bundled with the client.
type Source struct {
	// RemoteURL is the schema endpoint, e.g. "https://host/api/actionsmap".
	// Empty disables the remote fetch.
	RemoteURL string
	// Headers are attached to the remote request (auth token and the like).
	Headers map[string]string
	// Fallback is the bundled document used when the remote is unreachable.
	Fallback []byte
	// CacheKey names the on-disk cache entry, normally the host. Empty
	// disables caching.
	CacheKey string
}

// Loader fetches, caches, and parses schema documents. A document carrying
// a top-level "openapi" version field is converted via FromOpenAPI; anything
// else is parsed as a native actions map.
type Loader struct {
	// HTTPClient for remote fetches.
	HTTPClient *http.Client
	// CacheDir holds cached remote documents; defaults to the user cache
	// directory.
	CacheDir string
	// Warn receives non-fatal loader warnings (stale fallback in use,
	// cache trouble). Nil discards them.
	Warn func(format string, args ...interface{})
}

// NewLoader creates a Loader with defaults matching the CLI: a 30s HTTP
// client and the XDG cache directory.
func NewLoader() *Loader {
	return &Loader{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		CacheDir:   filepath.Join(xdg.CacheHome, "hostctl", "schema"),
	}
}

func (l *Loader) warnf(format string, args ...interface{}) {
	if l.Warn != nil {
		l.Warn(format, args...)
	}
}

// Load resolves the actions map for a source: remote endpoint first, then
// the bundled fallback with a staleness warning. The returned tree is fully
// validated; any failure means no tree at all.
func (l *Loader) Load(ctx context.Context, src Source) (*ActionTree, error) {
	if src.RemoteURL != "" {
		tree, err := l.LoadRemote(ctx, src)
		if err == nil {
			return tree, nil
		}
		if _, ok := err.(*SchemaError); ok && src.Fallback == nil {
			// A malformed remote document is a hard error: falling back
			// would silently present commands the server may not have.
			return nil, err
		}
		if src.Fallback == nil {
			return nil, err
		}
		l.warnf("could not fetch actions map from server (%v); using the bundled copy, commands may be stale", err)
	}

	if src.Fallback == nil {
		return nil, &SchemaError{Reason: "no schema source configured"}
	}
	return l.parse(ctx, src.Fallback)
}

// LoadRemote fetches and parses the remote document, consulting the on-disk
// cache with an ETag conditional request when possible.
func (l *Loader) LoadRemote(ctx context.Context, src Source) (*ActionTree, error) {
	cached, etag := l.readCache(src.CacheKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.RemoteURL, nil)
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("invalid schema URL: %v", err)}
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml")
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}
	if etag != "" && cached != nil {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch actions map: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		return l.parse(ctx, cached)
	case resp.StatusCode != http.StatusOK:
		return nil, &SchemaError{Reason: fmt.Sprintf("schema endpoint returned HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read actions map: %w", err)
	}

	tree, err := l.parse(ctx, data)
	if err != nil {
		return nil, err
	}
	l.writeCache(src.CacheKey, data, resp.Header.Get("ETag"))
	return tree, nil
}

// LoadFile parses a local schema file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*ActionTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actions map: %w", err)
	}
	return l.parse(ctx, data)
}

// parse dispatches on the document shape.
func (l *Loader) parse(ctx context.Context, data []byte) (*ActionTree, error) {
	if isOpenAPI(data) {
		return FromOpenAPI(ctx, data)
	}
	return Parse(data)
}

// isOpenAPI sniffs for the mandatory top-level OpenAPI version field.
func isOpenAPI(data []byte) bool {
	var probe struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.OpenAPI != ""
}

func (l *Loader) cachePaths(key string) (doc, etag string) {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, key)
	return filepath.Join(l.CacheDir, safe+".yml"), filepath.Join(l.CacheDir, safe+".etag")
}

func (l *Loader) readCache(key string) (data []byte, etag string) {
	if key == "" || l.CacheDir == "" {
		return nil, ""
	}
	docPath, etagPath := l.cachePaths(key)
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, ""
	}
	if raw, err := os.ReadFile(etagPath); err == nil {
		etag = strings.TrimSpace(string(raw))
	}
	return data, etag
}

func (l *Loader) writeCache(key string, data []byte, etag string) {
	if key == "" || l.CacheDir == "" {
		return
	}
	if err := os.MkdirAll(l.CacheDir, 0o700); err != nil {
		l.warnf("schema cache unavailable: %v", err)
		return
	}
	docPath, etagPath := l.cachePaths(key)
	if err := os.WriteFile(docPath, data, 0o600); err != nil {
		l.warnf("schema cache write failed: %v", err)
		return
	}
	if etag != "" {
		_ = os.WriteFile(etagPath, []byte(etag), 0o600)
	} else {
		_ = os.Remove(etagPath)
	}
}
