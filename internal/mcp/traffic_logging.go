package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// trafficLoggingMiddleware logs one debug line per MCP request and response.
// Tool calls are summarized by tool name and meeting; arguments are not
// logged since they carry attendance codes.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", safeSessionID(req),
				"user_id", callerID(ctx),
			}
			if call := toolCall(req); call != nil {
				attrs = append(attrs, "tool", call.name)
				if call.meetingID != "" {
					attrs = append(attrs, "meeting_id", call.meetingID)
				}
			}
			logger.DebugContext(ctx, "mcp request", attrs...)

			start := time.Now()
			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs = append(attrs, "duration", time.Since(start))
			switch {
			case err != nil:
				attrs = append(attrs, "error", err)
			case isToolError(result):
				attrs = append(attrs, "tool_error", true)
			}
			logger.DebugContext(ctx, "mcp response", attrs...)
			return result, err
		}
	}
}

type toolCallSummary struct {
	name      string
	meetingID string
}

// toolCall extracts the tool name and meeting_id argument of a tools/call
// request. It returns nil for every other request.
func toolCall(req sdkmcp.Request) *toolCallSummary {
	params, ok := safeParams(req).(*sdkmcp.CallToolParamsRaw)
	if !ok || params == nil {
		return nil
	}
	summary := &toolCallSummary{name: params.Name}
	var args struct {
		MeetingID string `json:"meeting_id"`
	}
	if len(params.Arguments) > 0 && json.Unmarshal(params.Arguments, &args) == nil {
		summary.meetingID = args.MeetingID
	}
	return summary
}

func isToolError(result sdkmcp.Result) bool {
	res, ok := result.(*sdkmcp.CallToolResult)
	return ok && res != nil && res.IsError
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	// A request built outside a live session has a nil *ServerSession.
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}
