// Package redact masks credential material before it reaches logs,
// diagnostics, or terminal echo.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Placeholder replaces redacted values in any rendered output.
const Placeholder = "********"

// Value masks a secret completely. The result carries no information about
// the original beyond non-emptiness.
func Value(s string) string {
	if s == "" {
		return ""
	}
	return Placeholder
}

// Fingerprint returns a short stable digest of a secret, for telling two
// tokens apart in verbose diagnostics without revealing either.
func Fingerprint(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}

// String replaces every occurrence of the given secrets in s with the
// placeholder. Empty secrets are ignored.
func String(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Placeholder)
	}
	return s
}
