package redact

import (
	"strings"
	"testing"
)

func TestValue(t *testing.T) {
	if got := Value("hunter2"); got != Placeholder {
		t.Errorf("Value() = %q, want placeholder", got)
	}
	if got := Value(""); got != "" {
		t.Errorf("Value(\"\") = %q, want empty", got)
	}
}

func TestString(t *testing.T) {
	msg := String("login failed for admin with password hunter2 and token tok-1",
		"hunter2", "tok-1", "")
	if strings.Contains(msg, "hunter2") || strings.Contains(msg, "tok-1") {
		t.Errorf("secrets survive masking: %q", msg)
	}
	if !strings.Contains(msg, Placeholder) {
		t.Errorf("placeholder missing: %q", msg)
	}
}

func TestFingerprint(t *testing.T) {
	a, b := Fingerprint("token-a"), Fingerprint("token-b")
	if a == b {
		t.Error("distinct secrets share a fingerprint")
	}
	if a != Fingerprint("token-a") {
		t.Error("fingerprint is not stable")
	}
	if strings.Contains(a, "token-a") {
		t.Errorf("fingerprint leaks the secret: %q", a)
	}
	if Fingerprint("") != "" {
		t.Error("empty secret should yield no fingerprint")
	}
}
