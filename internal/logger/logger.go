// Package logger provides structured logging with zap.
package logger

import "go.uber.org/zap"

// New creates a zap.Logger appropriate for the given environment.
func New(env string) *zap.Logger {
	var logger *zap.Logger
	switch env {
	case "production":
		logger, _ = zap.NewProduction()
	default:
		logger, _ = zap.NewDevelopment()
	}
	return logger
}
