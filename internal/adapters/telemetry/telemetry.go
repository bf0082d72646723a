// Package telemetry records outbound dependency calls through the structured
// logger so remote-call health is visible in log aggregation.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

// Logger implements ports.Telemetry on top of slog.
type Logger struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// TrackDependency logs one dependency call. Failed calls log at warn level.
func (l *Logger) TrackDependency(dep ports.Dependency) {
	level := slog.LevelInfo
	if !dep.Success {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(context.Background(), level, "dependency call",
		slog.String("name", dep.Name),
		slog.String("target", dep.Target),
		slog.String("data", dep.Data),
		slog.Int("result_code", dep.ResultCode),
		slog.Duration("duration", dep.Duration),
		slog.Bool("success", dep.Success),
	)
}
