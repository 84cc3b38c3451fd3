package session

import (
	"fmt"
	"path/filepath"

	"github.com/runnerr0/dwell/internal/config"
)

// Open builds the slot selected by cfg.Backend. Relative bolt paths are
// resolved against dataDir.
func Open(cfg config.SlotConfig, dataDir string) (Slot, error) {
	switch cfg.Backend {
	case "", "bolt":
		path := cfg.BoltFile
		if path == "" {
			path = "session.db"
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		return NewBoltSlot(path)
	case "redis":
		return NewRedisSlot(cfg.RedisAddr, cfg.RedisKey)
	case "memory":
		return NewMemorySlot(), nil
	default:
		return nil, fmt.Errorf("unknown slot backend %q", cfg.Backend)
	}
}
