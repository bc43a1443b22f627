package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger(production bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if production {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
