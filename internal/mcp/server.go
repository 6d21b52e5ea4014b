package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

// RoomService defines room operations needed by MCP.
type RoomService interface {
	Open(ctx context.Context, req attendance.OpenRequest) (*attendance.Room, error)
	Close(ctx context.Context, req attendance.CloseRequest) (string, error)
	Status(ctx context.Context, callerID, meetingID string) (*attendance.RoomStatus, error)
}

// AttendanceService defines attendance operations needed by MCP.
type AttendanceService interface {
	Submit(ctx context.Context, req attendance.SubmitRequest) (*attendance.SubmitResult, error)
	Overview(ctx context.Context, callerID, meetingID string) (*attendance.MeetingAttendance, error)
}

// UserService defines user lookups needed by MCP.
type UserService interface {
	Search(ctx context.Context, query string, limit int) ([]user.User, error)
}

// MeetingService defines meeting lookups needed by MCP.
type MeetingService interface {
	Get(ctx context.Context, id string) (*meeting.Meeting, error)
}

// HostPolicy decides who may manage a meeting's attendance.
type HostPolicy interface {
	CanHost(ctx context.Context, callerID string, m *meeting.Meeting) error
}

// Services contains all domain services needed by MCP.
type Services struct {
	Rooms      RoomService
	Attendance AttendanceService
	Users      UserService
	Meetings   MeetingService
	Policy     HostPolicy
}

// Config contains server configuration.
type Config struct {
	Services Services
	Resolver UserResolver
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "rcos-io",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(authMiddleware(cfg.Resolver, cfg.Logger))
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services, cfg.Logger)

	return server
}

// NewHTTPHandler serves the MCP server over streamable HTTP. Responses are
// plain JSON rather than event streams.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
			JSONResponse:   true,
		},
	)
}
