package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const prefsTOMLFileName = "prefs.toml"

type ChatPrefs struct {
	KeepTranscripts bool `json:"keep_transcripts" toml:"keep_transcripts"`
}

// Prefs is per-user client configuration persisted under the data dir.
// Environment variables win over these values; the file only carries what the
// user has chosen interactively.
type Prefs struct {
	BackendURL    string    `json:"backend_url,omitempty" toml:"backend_url,omitempty"`
	LocalPort     int       `json:"local_port" toml:"local_port"`
	DefaultFilter string    `json:"default_filter" toml:"default_filter"`
	Chat          ChatPrefs `json:"chat" toml:"chat"`
}

type PrefsStore struct {
	dir string
}

func NewPrefsStore(dir string) *PrefsStore {
	return &PrefsStore{dir: dir}
}

func (s *PrefsStore) LoadOrInit() (Prefs, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Prefs{}, err
	}

	path := filepath.Join(s.dir, prefsTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var prefs Prefs
		if err := toml.Unmarshal(b, &prefs); err != nil {
			return Prefs{}, err
		}
		return normalizePrefs(prefs), nil
	} else if !os.IsNotExist(err) {
		return Prefs{}, err
	}

	prefs := normalizePrefs(Prefs{})
	if err := writeTOMLAtomically(path, prefs); err != nil {
		return Prefs{}, err
	}
	return prefs, nil
}

func (s *PrefsStore) Save(prefs Prefs) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, prefsTOMLFileName), normalizePrefs(prefs))
}

func normalizePrefs(prefs Prefs) Prefs {
	prefs.BackendURL = strings.TrimSpace(prefs.BackendURL)
	if prefs.LocalPort <= 0 {
		prefs.LocalPort = 4630
	}
	switch strings.ToLower(strings.TrimSpace(prefs.DefaultFilter)) {
	case "active":
		prefs.DefaultFilter = "active"
	case "completed":
		prefs.DefaultFilter = "completed"
	default:
		prefs.DefaultFilter = "all"
	}
	return prefs
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
