// Package logging wraps zap so every worker logs through the same
// structured sugared logger, constructor-injected rather than reached for
// as a package-level global.
package logging

import "go.uber.org/zap"

// New builds a production zap SugaredLogger. Workers are given this (or a
// *zap.SugaredLogger.Named(worker)) at construction time.
func New() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
