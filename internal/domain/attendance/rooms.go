package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/repository"
)

// Rooms manages the lifecycle of attendance rooms: absent -> live on Open,
// live -> absent on Close or when the store expires the key.
type Rooms struct {
	meetings Meetings
	store    RoomStore
	policy   HostPolicy
	activity ActivityRepository
	opts     Options
	logger   *slog.Logger
}

// NewRooms creates a room manager. activityRepo may be nil.
func NewRooms(
	meetings Meetings,
	store RoomStore,
	policy HostPolicy,
	activityRepo ActivityRepository,
	opts Options,
	logger *slog.Logger,
) *Rooms {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rooms{
		meetings: meetings,
		store:    store,
		policy:   policy,
		activity: activityRepo,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// OpenRequest describes a request to open attendance for a meeting.
type OpenRequest struct {
	MeetingID string
	OpenerID  string
	// TTL of zero lets the meeting schedule or the default decide.
	TTL time.Duration
}

// CloseRequest describes a request to close a meeting's live room.
type CloseRequest struct {
	MeetingID string
	Code      string
	CloserID  string
}

// Open mints a fresh code and makes it the meeting's only live room. A room
// that is already live is replaced and its code stops working immediately;
// concurrent opens resolve as last writer wins.
func (s *Rooms) Open(ctx context.Context, req OpenRequest) (*Room, error) {
	m, err := s.meetings.Get(ctx, req.MeetingID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanHost(ctx, req.OpenerID, m); err != nil {
		return nil, err
	}

	code, err := s.opts.NewCode()
	if err != nil {
		return nil, fmt.Errorf("generating code: %w", err)
	}

	now := s.opts.Now().UTC()
	ttl := s.roomTTL(m, req.TTL, now)
	room := Room{
		MeetingID:        m.ID,
		Code:             code,
		OpenedBy:         req.OpenerID,
		OpenedAt:         now,
		ExpiresAt:        now.Add(ttl),
		VerificationRate: s.opts.VerificationRate,
	}

	if err := s.store.Put(ctx, room, ttl); err != nil {
		return nil, fmt.Errorf("storing room: %w", err)
	}

	s.logger.Info("attendance room opened",
		"meeting_id", m.ID, "opened_by", req.OpenerID, "expires_at", room.ExpiresAt)
	s.record(ctx, &activity.ActivityEntry{
		MeetingID:    m.ID,
		ActorID:      req.OpenerID,
		ActivityType: activity.TypeRoomOpened,
		Summary:      fmt.Sprintf("opened attendance for %s until %s", m.Title(), room.ExpiresAt.Format(time.Kitchen)),
		CreatedAt:    now,
	})

	return &room, nil
}

// Close deletes the meeting's live room before its TTL elapses and returns
// the path of the meeting page to continue to. The closer must be able to
// host the meeting or be the room's opener, and must present the live code.
func (s *Rooms) Close(ctx context.Context, req CloseRequest) (string, error) {
	m, err := s.meetings.Get(ctx, req.MeetingID)
	if err != nil {
		return "", err
	}

	room, err := s.store.Get(ctx, m.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrRoomNotFound
		}
		return "", fmt.Errorf("loading room: %w", err)
	}

	if room.OpenedBy != req.CloserID {
		if err := s.policy.CanHost(ctx, req.CloserID, m); err != nil {
			return "", err
		}
	}

	if err := s.store.Delete(ctx, m.ID, NormalizeCode(req.Code)); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return "", ErrRoomNotFound
		case errors.Is(err, repository.ErrConflict):
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("deleting room: %w", err)
	}

	s.logger.Info("attendance room closed", "meeting_id", m.ID, "closed_by", req.CloserID)
	s.record(ctx, &activity.ActivityEntry{
		MeetingID:    m.ID,
		ActorID:      req.CloserID,
		ActivityType: activity.TypeRoomClosed,
		Summary:      fmt.Sprintf("closed attendance for %s", m.Title()),
		CreatedAt:    s.opts.Now().UTC(),
	})

	return MeetingPath(m.ID), nil
}

// Live returns the meeting's room if one is live.
func (s *Rooms) Live(ctx context.Context, meetingID string) (*Room, bool, error) {
	room, err := s.store.Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading room: %w", err)
	}
	return room, true, nil
}

// Status reports whether the meeting is open for check-in. The live code is
// only revealed to the room's opener and to callers who can host.
func (s *Rooms) Status(ctx context.Context, callerID, meetingID string) (*RoomStatus, error) {
	m, err := s.meetings.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	status := &RoomStatus{MeetingID: m.ID}

	room, ok, err := s.Live(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return status, nil
	}
	status.Open = true
	expires := room.ExpiresAt
	status.ExpiresAt = &expires

	if room.OpenedBy == callerID {
		status.Code = room.Code
		return status, nil
	}
	switch err := s.policy.CanHost(ctx, callerID, m); {
	case err == nil:
		status.Code = room.Code
	case !errors.Is(err, ErrPermissionDenied):
		return nil, err
	}
	return status, nil
}

// MeetingPath is where a closed room sends its host.
func MeetingPath(meetingID string) string {
	return "/meetings/" + meetingID
}

// maxTTLMinutes caps client-supplied minutes before conversion so the
// Duration cannot overflow. Open still bounds the result to MaxTTL.
const maxTTLMinutes = 366 * 24 * 60

// TTLMinutes converts a client-supplied minute count to a Duration.
// Non-positive values mean "use the default" and map to zero.
func TTLMinutes(minutes int) time.Duration {
	if minutes <= 0 {
		return 0
	}
	return time.Duration(min(minutes, maxTTLMinutes)) * time.Minute
}

// roomTTL picks the requested TTL, else the rest of an in-progress meeting,
// else the default, bounded to [minRoomTTL, MaxTTL].
func (s *Rooms) roomTTL(m *meeting.Meeting, requested time.Duration, now time.Time) time.Duration {
	ttl := requested
	if ttl <= 0 {
		ttl = s.opts.DefaultTTL
		if m.InProgress(now) {
			ttl = m.EndsAt.Sub(now)
		}
	}
	if ttl > s.opts.MaxTTL {
		ttl = s.opts.MaxTTL
	}
	if ttl < minRoomTTL {
		ttl = minRoomTTL
	}
	return ttl
}

func (s *Rooms) record(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Log(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity", "type", entry.ActivityType, "meeting_id", entry.MeetingID, "error", err)
	}
}
