package store

import (
	"errors"
	"fmt"

	config "github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/init"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
)

var logg = logger.New()

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("store: closed")

// --- Interfaces ---

// Store persists the small amount of client state that must survive a
// restart (session token, theme). Missing keys are not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close()
}

// New opens the backend selected by cfg.StoreDriver.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "", "file":
		return NewFile(cfg.StorePath)
	case "sqlite":
		return NewSQLite(cfg.StorePath)
	case "redis":
		return NewRedis(cfg.RedisURL)
	case "memory":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
