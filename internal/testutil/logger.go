package testutil

import (
	"io"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
)

// NullLogger returns a logger that discards all output, for use in tests.
func NullLogger() *logging.Logger {
	return logging.NewWithOutput(logging.LevelError, io.Discard)
}
