// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"     // Error formatting
	"strings" // Level parsing

	"github.com/sirupsen/logrus" // Logging library
)

// Setup applies the formatter and level. Production gets JSON output.
func Setup(level string, json bool) error {
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}

// ParseLevel accepts debug, info, warn and error (case-insensitive, empty means info)
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
