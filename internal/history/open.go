package history

import (
	"fmt"
	"strings"

	"github.com/symptom-dx-server/internal/domain"
)

// Open returns the store selected by cfg, or nil when history is disabled.
func Open(cfg domain.HistoryConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return nil, nil
	case "sqlite":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("history dsn is required for sqlite")
		}
		return NewSQLiteStore(cfg.DSN)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("history dsn is required for postgres")
		}
		return NewPostgresStoreFromURL(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown history driver: %s", cfg.Driver)
	}
}
