package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// CloseLogged closes c and logs a failure under op. It suits response
// bodies, whose close error changes nothing for the caller.
func CloseLogged(logger *slog.Logger, c io.Closer, op string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "close failed", err, slog.String("operation", op))
	}
}

// CloseInto closes c from a defer and stores a failure in *errp when the
// function had not already failed. Written files use it so a failed flush
// is not reported as success.
func CloseInto(errp *error, logger *slog.Logger, c io.Closer, op string) {
	if c == nil {
		return
	}
	err := c.Close()
	if err == nil {
		return
	}
	LogError(logger, "close failed", err, slog.String("operation", op))
	if *errp == nil {
		*errp = fmt.Errorf("%s: %w", op, err)
	}
}
