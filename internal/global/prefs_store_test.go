package global

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrefsStore_LoadOrInit_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	store := NewPrefsStore(dir)

	prefs, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if prefs.LocalPort != 4630 {
		t.Fatalf("expected default local port 4630, got %d", prefs.LocalPort)
	}
	if prefs.DefaultFilter != "all" {
		t.Fatalf("expected default filter all, got %q", prefs.DefaultFilter)
	}

	path := filepath.Join(dir, "prefs.toml")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected prefs.toml to exist: %v", err)
	}
	text := string(b)
	if !strings.Contains(text, "local_port = 4630") {
		t.Fatalf("expected local_port in toml, got: %s", text)
	}
	if !strings.Contains(text, "default_filter = 'all'") && !strings.Contains(text, "default_filter = \"all\"") {
		t.Fatalf("expected default_filter in toml, got: %s", text)
	}
	if !strings.Contains(text, "[chat]") {
		t.Fatalf("expected chat table in toml, got: %s", text)
	}
}

func TestPrefsStore_SaveNormalizesFilter(t *testing.T) {
	store := NewPrefsStore(t.TempDir())
	if err := store.Save(Prefs{DefaultFilter: " COMPLETED ", LocalPort: -1}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	prefs, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if prefs.DefaultFilter != "completed" {
		t.Fatalf("expected completed, got %q", prefs.DefaultFilter)
	}
	if prefs.LocalPort != 4630 {
		t.Fatalf("expected normalized port, got %d", prefs.LocalPort)
	}
}

func TestPrefsStore_RoundTrip(t *testing.T) {
	store := NewPrefsStore(t.TempDir())
	in := Prefs{BackendURL: "http://backend:9000", LocalPort: 5200, DefaultFilter: "active", Chat: ChatPrefs{KeepTranscripts: true}}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %#v != %#v", out, in)
	}
}
