package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

const maxListLimit = 200

type openRoomRequest struct {
	TTLMinutes int `json:"ttl_minutes,omitempty"`
}

type openRoomResponse struct {
	MeetingID string    `json:"meeting_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type closeRoomRequest struct {
	Code string `json:"code"`
}

type closeRoomResponse struct {
	Redirect string `json:"redirect"`
}

type submitRequest struct {
	Code    string `json:"code"`
	Subject string `json:"subject,omitempty"`
	Manual  bool   `json:"manual,omitempty"`
}

type attendRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := meeting.ListOptions{
		SemesterID:    q.Get("semester_id"),
		OnlyPublished: q.Get("published") == "true",
	}
	var err error
	if opts.StartsAfter, err = parseTime(q.Get("after")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.StartsBefore, err = parseTime(q.Get("before")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Limit, err = parseInt(q.Get("limit")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Offset, err = parseInt(q.Get("offset")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	meetings, err := s.services.Meetings.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if meetings == nil {
		meetings = []meeting.Meeting{}
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := s.services.Meetings.Get(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	callerID, _ := UserFromContext(r.Context())
	status, err := s.services.Rooms.Status(r.Context(), callerID, chi.URLParam(r, "meetingID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleOpenRoom(w http.ResponseWriter, r *http.Request) {
	var req openRoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.TTLMinutes < 0 {
		s.writeError(w, r, errBadRequestf("ttl_minutes must not be negative"))
		return
	}

	callerID, _ := UserFromContext(r.Context())
	room, err := s.services.Rooms.Open(r.Context(), attendance.OpenRequest{
		MeetingID: chi.URLParam(r, "meetingID"),
		OpenerID:  callerID,
		TTL:       attendance.TTLMinutes(req.TTLMinutes),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, openRoomResponse{
		MeetingID: room.MeetingID,
		Code:      room.Code,
		ExpiresAt: room.ExpiresAt,
	})
}

func (s *Server) handleCloseRoom(w http.ResponseWriter, r *http.Request) {
	var req closeRoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	callerID, _ := UserFromContext(r.Context())
	redirect, err := s.services.Rooms.Close(r.Context(), attendance.CloseRequest{
		MeetingID: chi.URLParam(r, "meetingID"),
		Code:      req.Code,
		CloserID:  callerID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closeRoomResponse{Redirect: redirect})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	callerID, _ := UserFromContext(r.Context())
	result, err := s.services.Attendance.Submit(r.Context(), attendance.SubmitRequest{
		MeetingID: chi.URLParam(r, "meetingID"),
		Code:      req.Code,
		CallerID:  callerID,
		Subject:   req.Subject,
		Manual:    req.Manual,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSubmitResult(w, result)
}

func (s *Server) handleAttend(w http.ResponseWriter, r *http.Request) {
	var req attendRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	callerID, _ := UserFromContext(r.Context())
	result, err := s.services.Attendance.SubmitCode(r.Context(), callerID, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSubmitResult(w, result)
}

func writeSubmitResult(w http.ResponseWriter, result *attendance.SubmitResult) {
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	callerID, _ := UserFromContext(r.Context())
	overview, err := s.services.Attendance.Overview(r.Context(), callerID, chi.URLParam(r, "meetingID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	m, ok := s.hostedMeeting(w, r, chi.URLParam(r, "meetingID"))
	if !ok {
		return
	}
	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.services.Activity.GetRecentActivity(r.Context(), activity.ListActivityOptions{
		MeetingID: m.ID,
		Limit:     min(limit, maxListLimit),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleSearchUsers backs the manual-add lookup. The caller must be able to
// host the meeting named by meeting_id.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, ok := s.hostedMeeting(w, r, q.Get("meeting_id")); !ok {
		return
	}
	limit, err := parseInt(q.Get("limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users, err := s.services.Users.Search(r.Context(), q.Get("q"), min(limit, maxListLimit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// hostedMeeting loads the meeting and checks the caller may manage it,
// writing the error response when not.
func (s *Server) hostedMeeting(w http.ResponseWriter, r *http.Request, meetingID string) (*meeting.Meeting, bool) {
	m, err := s.services.Meetings.Get(r.Context(), meetingID)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	callerID, _ := UserFromContext(r.Context())
	if err := s.services.Policy.CanHost(r.Context(), callerID, m); err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return m, true
}

func parseTime(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errBadRequestf("times must be RFC 3339")
	}
	return &t, nil
}

func parseInt(value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errBadRequestf("expected a non-negative integer")
	}
	return n, nil
}
