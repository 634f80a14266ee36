package util

import (
	"go.uber.org/zap"
)

// InitLogger installs the process logger. "release" gets the production
// encoder, anything else the development one.
func InitLogger(mode string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if mode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// LogError logs an error with context
func LogError(message string, err error, fields ...zap.Field) {
	if err != nil {
		zap.L().Error(message, append(fields, zap.Error(err))...)
	}
}

// LogInfo logs an informational message
func LogInfo(message string, fields ...zap.Field) {
	zap.L().Info(message, fields...)
}

// LogWarning logs a warning message
func LogWarning(message string, fields ...zap.Field) {
	zap.L().Warn(message, fields...)
}
