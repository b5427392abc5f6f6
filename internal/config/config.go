package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	BackendBaseURL string
	LogLevel       string
	LocalHost      string
	LocalPort      int
	DataDir        string
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	base := os.Getenv("TASKDECK_BACKEND_URL")
	if base == "" {
		base = "http://127.0.0.1:8000"
	}

	level := os.Getenv("TASKDECK_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	localHost := os.Getenv("TASKDECK_LOCAL_HOST")
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	localPort := 4630
	if p := os.Getenv("TASKDECK_LOCAL_PORT"); p != "" {
		if n := atoiOrDefault(p, 4630); n > 0 {
			localPort = n
		}
	}

	dataDir := os.Getenv("TASKDECK_DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir()
	}

	return Config{
		BackendBaseURL: base,
		LogLevel:       level,
		LocalHost:      localHost,
		LocalPort:      localPort,
		DataDir:        dataDir,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Clean(".taskdeck")
	}
	return filepath.Join(home, ".taskdeck")
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
