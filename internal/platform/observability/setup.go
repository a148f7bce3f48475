package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config captures observability toggles. Future fields (OTel endpoint, etc.) can be added here.
type Config struct {
	Enabled bool
}

// ShutdownFunc allows callers to tear down any observability exporters.
type ShutdownFunc func(context.Context) error

var (
	loggerMu             sync.RWMutex
	instrumentationLog   *slog.Logger
	instrumentationState Config
)

func currentLogger() (*slog.Logger, Config) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return instrumentationLog, instrumentationState
}

// Setup wires span and metric emission onto the given logger. When disabled,
// StartSpan and RecordMetric become no-ops but remain safe to call.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	loggerMu.Lock()
	if cfg.Enabled {
		instrumentationLog = logger
	} else {
		instrumentationLog = nil
	}
	instrumentationState = cfg
	loggerMu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[BOOT] observability enabled")
		} else {
			logger.InfoContext(ctx, "[BOOT] observability disabled")
		}
	}
	return func(context.Context) error { return nil }, nil
}
