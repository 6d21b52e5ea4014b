package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/user"
)

// errInternal is what tool callers see for infrastructure failures.
var errInternal = errors.New("Something went wrong. Please try again.")

// toolError turns a service error into the message shown to the tool caller.
// Infrastructure failures are logged and hidden.
func toolError(ctx context.Context, logger *slog.Logger, tool string, err error) error {
	if msg, ok := attendance.DisplayMessage(err); ok {
		return errors.New(msg)
	}
	if errors.Is(err, user.ErrInvalidInput) {
		return err
	}
	logger.ErrorContext(ctx, "tool failed", "tool", tool, "user_id", callerID(ctx), "error", err)
	return errInternal
}
