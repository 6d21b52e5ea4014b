package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rcos/rcos-io/internal/repository"
	"github.com/rcos/rcos-io/internal/transport"
)

// UserResolver resolves the caller's user ID from a bearer token.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// callerID extracts the authenticated user ID from context.
func callerID(ctx context.Context) string {
	userID, _ := transport.UserFromContext(ctx)
	return userID
}

// authMiddleware implements bearer token authentication as MCP middleware.
// Unknown tokens are rejected as unauthorized; lookup failures are logged
// and surface as errInternal.
func authMiddleware(resolver UserResolver, logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Protocol handshakes carry no user action.
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			token := transport.BearerToken(extra.Header.Get("Authorization"))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			userID, err := resolver.ResolveUser(ctx, token)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				logger.ErrorContext(ctx, "resolve api key", "method", method, "error", err)
				return nil, errInternal
			}
			if err != nil || userID == "" {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			return next(transport.WithUser(ctx, userID), method, req)
		}
	}
}
