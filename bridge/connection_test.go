package bridge

import (
	"os"
	"testing"
)

// P8 - connection-file lifecycle.
func TestConnectionFileLifecycle(t *testing.T) {
	b, err := New(Options{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	path := b.ConnectionFilePath()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected connection file to exist after construction: %v", err)
	}

	b.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected connection file to be gone after Close, stat error: %v", err)
	}
}

func TestNewHexSecretIsUniqueAndRightShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v, err := newHexSecret()
		if err != nil {
			t.Fatalf("newHexSecret: %v", err)
		}
		if len(v) != 32 {
			t.Fatalf("expected 32 hex chars, got %d (%q)", len(v), v)
		}
		if seen[v] {
			t.Fatalf("duplicate secret generated: %q", v)
		}
		seen[v] = true
	}
}
