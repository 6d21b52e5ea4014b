package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

// RoomService opens, closes and reports on attendance rooms.
type RoomService interface {
	Open(ctx context.Context, req attendance.OpenRequest) (*attendance.Room, error)
	Close(ctx context.Context, req attendance.CloseRequest) (string, error)
	Status(ctx context.Context, callerID, meetingID string) (*attendance.RoomStatus, error)
}

// AttendanceService records and reports attendance.
type AttendanceService interface {
	Submit(ctx context.Context, req attendance.SubmitRequest) (*attendance.SubmitResult, error)
	SubmitCode(ctx context.Context, callerID, code string) (*attendance.SubmitResult, error)
	Overview(ctx context.Context, callerID, meetingID string) (*attendance.MeetingAttendance, error)
}

// MeetingService reads meetings.
type MeetingService interface {
	Get(ctx context.Context, id string) (*meeting.Meeting, error)
	List(ctx context.Context, opts meeting.ListOptions) ([]meeting.Meeting, error)
}

// UserService searches users.
type UserService interface {
	Search(ctx context.Context, query string, limit int) ([]user.User, error)
}

// ActivityService lists activity entries.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// HostPolicy decides who may manage a meeting.
type HostPolicy interface {
	CanHost(ctx context.Context, callerID string, m *meeting.Meeting) error
}

// Services contains the domain services behind the HTTP API.
type Services struct {
	Rooms      RoomService
	Attendance AttendanceService
	Meetings   MeetingService
	Users      UserService
	Activity   ActivityService
	Policy     HostPolicy
}

// Server wires HTTP handlers.
type Server struct {
	services Services
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware. mcpHandler is
// mounted at /mcp when non-nil and authenticates on its own.
func NewServer(services Services, authMiddleware func(http.Handler) http.Handler, mcpHandler http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{services: services, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if mcpHandler != nil {
		r.Handle("/mcp", mcpHandler)
		r.Handle("/mcp/*", mcpHandler)
	}

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.Get("/meetings", srv.handleListMeetings)
		r.Route("/meetings/{meetingID}", func(r chi.Router) {
			r.Get("/", srv.handleGetMeeting)
			r.Get("/room", srv.handleRoomStatus)
			r.Post("/room", srv.handleOpenRoom)
			r.Post("/room/close", srv.handleCloseRoom)
			r.Get("/attendance", srv.handleOverview)
			r.Post("/attendance", srv.handleSubmit)
			r.Get("/activity", srv.handleActivity)
		})
		r.Post("/attend", srv.handleAttend)
		r.Get("/users/search", srv.handleSearchUsers)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
