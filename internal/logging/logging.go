// Package logging builds the process logger and logs finished operations.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	reqid "github.com/hanpama/gqlengine/internal/reqid"
)

// New returns a JSON logger at level, or a console logger with stack traces
// when development is set.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Subscribe logs every finished GraphQL operation of the global bus.
// Operations with errors are logged at warn level, the rest at debug.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	return eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		fields := []zap.Field{
			zap.String("operation", e.OperationName),
			zap.String("type", e.OperationType),
			zap.Duration("duration", e.Duration),
			zap.Int("errors", len(e.Errors)),
		}
		if rid, ok := reqid.FromContext(ctx); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		if len(e.Errors) == 0 {
			logger.Debug("graphql operation", fields...)
			return
		}
		fields = append(fields, zap.Error(e.Errors[0]))
		logger.Warn("graphql operation failed", fields...)
	})
}
