package common

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger applies level and format settings to the global Logger.
// level is one of debug, info, warn, error; format is "json" or "text".
func ConfigureLogger(level, format string) {
	switch level {
	case "debug":
		Logger.SetLevel(logrus.DebugLevel)
	case "warn":
		Logger.SetLevel(logrus.WarnLevel)
	case "error":
		Logger.SetLevel(logrus.ErrorLevel)
	default:
		Logger.SetLevel(logrus.InfoLevel)
	}
	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}
}

// ServiceLogger returns an entry pre-tagged with the service name. All
// long-running loops (crawler, worker, server) log through one of these so
// entries can be attributed when roles share a binary.
func ServiceLogger(service string) *logrus.Entry {
	return Logger.WithField("service", service)
}

// OperationLogger returns an entry tagged with a service and operation name.
func OperationLogger(service, operation string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"service":   service,
		"operation": operation,
	})
}

// LogOperation runs fn, logging start, completion and duration under the
// given operation name. The error from fn is returned unchanged.
func LogOperation(entry *logrus.Entry, operation string, fn func() error) error {
	start := time.Now()
	entry.WithField("operation", operation).Debug("operation started")

	err := fn()

	scoped := entry.WithFields(logrus.Fields{
		"operation":   operation,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		scoped.WithError(err).Error("operation failed")
		return err
	}
	scoped.Info("operation completed")
	return nil
}
