package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates the service's structured logger.
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}
	return config.Build()
}

// WithLot returns a logger scoped to a lot.
func WithLot(logger *zap.Logger, lotID int64) *zap.Logger {
	return logger.With(zap.Int64("lot_id", lotID))
}
