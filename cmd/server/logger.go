package main

import (
	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/config"
	"github.com/smartpark/occupancy-service/internal/logging"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
