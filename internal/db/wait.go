package db

import (
	"context" // Cancellation
	"time"    // Retry interval

	"github.com/sirupsen/logrus" // Structured logging
)

// PingFunc reports whether the database currently accepts connections
type PingFunc func(ctx context.Context) error

// WaitForDB blocks until ping succeeds, retrying every interval.
// It returns ctx.Err() if the context ends first.
func WaitForDB(ctx context.Context, ping PingFunc, interval time.Duration, log logrus.FieldLogger) error {
	if interval <= 0 {
		interval = time.Second
	}
	log.Info("Waiting for database...")
	for attempt := 1; ; attempt++ {
		err := ping(ctx)
		if err == nil {
			log.WithField("attempts", attempt).Info("Database available")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithFields(logrus.Fields{
			"attempt": attempt,     // Attempt number
			"error":   err.Error(), // Last connection error
		}).Warnf("Database unavailable, waiting %s to retry...", interval)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
