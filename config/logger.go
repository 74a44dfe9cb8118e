package config

import (
	"go.uber.org/zap"
)

// Logger is replaced by InitLogger on startup.
var Logger = zap.NewNop()

func InitLogger(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	Logger = logger
	return logger, nil
}
