// Package logging builds the zap logger shared by the pipeline stages.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Pipeline stage names carried in the "agent" field.
const (
	Ingestion     = "ingestion"
	Tensor        = "tensor"
	Analytics     = "analytics"
	Query         = "query"
	Narration     = "narration"
	ErrorHandling = "error-handling"
)

// New returns a production JSON logger on stderr. Only warnings and errors
// are emitted unless debug is set.
func New(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.Sampling = nil
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Agent tags a log entry with the pipeline stage that produced it.
func Agent(name string) zap.Field { return zap.String("agent", name) }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
