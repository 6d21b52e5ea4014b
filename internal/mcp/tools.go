package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/user"
)

func registerTools(server *sdkmcp.Server, services Services, logger *slog.Logger) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_attendance",
		Description: "Open an attendance room for a meeting and get its check-in code. Replaces any live room.",
	}, openAttendanceHandler(services.Rooms, logger))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_attendance",
		Description: "Close a meeting's live attendance room. Requires the live code.",
	}, closeAttendanceHandler(services.Rooms, logger))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "attendance_status",
		Description: "Report whether a meeting is open for check-in. The code is only shown to hosts.",
	}, attendanceStatusHandler(services.Rooms, logger))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "record_attendance",
		Description: "Manually record that a user attended a meeting with a live room.",
	}, recordAttendanceHandler(services.Attendance, logger))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "meeting_attendance",
		Description: "List who attended a meeting and who was expected but is missing.",
	}, meetingAttendanceHandler(services.Attendance, logger))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_users",
		Description: "Find users by name, email or RCS ID before recording attendance for a meeting you host.",
	}, searchUsersHandler(services, logger))
}

func openAttendanceHandler(rooms RoomService, logger *slog.Logger) sdkmcp.ToolHandlerFor[OpenAttendanceParams, OpenAttendanceResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in OpenAttendanceParams) (*sdkmcp.CallToolResult, OpenAttendanceResponse, error) {
		room, err := rooms.Open(ctx, attendance.OpenRequest{
			MeetingID: in.MeetingID,
			OpenerID:  callerID(ctx),
			TTL:       attendance.TTLMinutes(in.TTLMinutes),
		})
		if err != nil {
			return nil, OpenAttendanceResponse{}, toolError(ctx, logger, "open_attendance", err)
		}
		return nil, OpenAttendanceResponse{
			MeetingID: room.MeetingID,
			Code:      room.Code,
			ExpiresAt: room.ExpiresAt,
		}, nil
	}
}

func closeAttendanceHandler(rooms RoomService, logger *slog.Logger) sdkmcp.ToolHandlerFor[CloseAttendanceParams, CloseAttendanceResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CloseAttendanceParams) (*sdkmcp.CallToolResult, CloseAttendanceResponse, error) {
		redirect, err := rooms.Close(ctx, attendance.CloseRequest{
			MeetingID: in.MeetingID,
			Code:      in.Code,
			CloserID:  callerID(ctx),
		})
		if err != nil {
			return nil, CloseAttendanceResponse{}, toolError(ctx, logger, "close_attendance", err)
		}
		return nil, CloseAttendanceResponse{Redirect: redirect}, nil
	}
}

func attendanceStatusHandler(rooms RoomService, logger *slog.Logger) sdkmcp.ToolHandlerFor[AttendanceStatusParams, AttendanceStatusResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in AttendanceStatusParams) (*sdkmcp.CallToolResult, AttendanceStatusResponse, error) {
		status, err := rooms.Status(ctx, callerID(ctx), in.MeetingID)
		if err != nil {
			return nil, AttendanceStatusResponse{}, toolError(ctx, logger, "attendance_status", err)
		}
		return nil, *status, nil
	}
}

func recordAttendanceHandler(svc AttendanceService, logger *slog.Logger) sdkmcp.ToolHandlerFor[RecordAttendanceParams, RecordAttendanceResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecordAttendanceParams) (*sdkmcp.CallToolResult, RecordAttendanceResponse, error) {
		result, err := svc.Submit(ctx, attendance.SubmitRequest{
			MeetingID: in.MeetingID,
			Code:      in.Code,
			CallerID:  callerID(ctx),
			Subject:   in.Subject,
			Manual:    true,
		})
		if err != nil {
			return nil, RecordAttendanceResponse{}, toolError(ctx, logger, "record_attendance", err)
		}
		return nil, *result, nil
	}
}

func meetingAttendanceHandler(svc AttendanceService, logger *slog.Logger) sdkmcp.ToolHandlerFor[MeetingAttendanceParams, MeetingAttendanceResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in MeetingAttendanceParams) (*sdkmcp.CallToolResult, MeetingAttendanceResponse, error) {
		overview, err := svc.Overview(ctx, callerID(ctx), in.MeetingID)
		if err != nil {
			return nil, MeetingAttendanceResponse{}, toolError(ctx, logger, "meeting_attendance", err)
		}
		return nil, *overview, nil
	}
}

// searchUsersHandler only serves callers who can host the named meeting, so
// the directory is not open to every member.
func searchUsersHandler(services Services, logger *slog.Logger) sdkmcp.ToolHandlerFor[SearchUsersParams, SearchUsersResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SearchUsersParams) (*sdkmcp.CallToolResult, SearchUsersResponse, error) {
		m, err := services.Meetings.Get(ctx, in.MeetingID)
		if err != nil {
			return nil, SearchUsersResponse{}, toolError(ctx, logger, "search_users", err)
		}
		if err := services.Policy.CanHost(ctx, callerID(ctx), m); err != nil {
			return nil, SearchUsersResponse{}, toolError(ctx, logger, "search_users", err)
		}

		found, err := services.Users.Search(ctx, in.Query, min(max(in.Limit, 0), 50))
		if err != nil {
			return nil, SearchUsersResponse{}, toolError(ctx, logger, "search_users", err)
		}
		if found == nil {
			found = []user.User{}
		}
		return nil, SearchUsersResponse{Users: found}, nil
	}
}
