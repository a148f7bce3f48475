package archive

import (
	"fmt"

	"gorm.io/gorm"
)

// Driver identifiers supported by the archive.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies carries external handles required by certain drivers.
type Dependencies struct {
	DB *gorm.DB
}

// New creates an archive store for the configured driver. An empty
// driver selects memory.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.DB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.DB, cfg)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported archive driver: %s", driver)
	}
}
