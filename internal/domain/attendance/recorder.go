package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Recorder validates attendance submissions against live rooms and writes
// durable records.
type Recorder struct {
	meetings    Meetings
	users       Users
	store       RoomStore
	attendances AttendanceRepository
	policy      HostPolicy
	activity    ActivityRepository
	opts        Options
	logger      *slog.Logger
}

// NewRecorder creates an attendance recorder. activityRepo may be nil.
func NewRecorder(
	meetings Meetings,
	users Users,
	store RoomStore,
	attendances AttendanceRepository,
	policy HostPolicy,
	activityRepo ActivityRepository,
	opts Options,
	logger *slog.Logger,
) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		meetings:    meetings,
		users:       users,
		store:       store,
		attendances: attendances,
		policy:      policy,
		activity:    activityRepo,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// SubmitRequest describes one attendance mark.
type SubmitRequest struct {
	MeetingID string
	Code      string
	CallerID  string
	// Subject is a user id, email or RCS id. Self check-ins may leave it
	// empty.
	Subject string
	// Manual marks a host recording attendance on someone else's behalf.
	Manual bool
}

// Submit records that the subject attended the meeting. Resubmitting for a
// (meeting, user) pair that already has a record succeeds without writing.
func (r *Recorder) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	room, err := r.store.Get(ctx, req.MeetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomClosed
		}
		return nil, fmt.Errorf("loading room: %w", err)
	}

	code := NormalizeCode(req.Code)
	if code == "" || code != room.Code {
		return nil, ErrInvalidCode
	}

	identifier := strings.TrimSpace(req.Subject)
	if identifier == "" && !req.Manual {
		identifier = req.CallerID
	}
	subject, err := r.users.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if req.Manual {
		m, err := r.meetings.Get(ctx, req.MeetingID)
		if err != nil {
			return nil, err
		}
		if err := r.policy.CanHost(ctx, req.CallerID, m); err != nil {
			return nil, err
		}
	} else if subject.ID != req.CallerID {
		return nil, ErrPermissionDenied
	}

	if !req.Manual && room.VerificationRate > 0 {
		held, err := r.holdForVerification(ctx, *room, subject.ID)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, ErrVerificationRequired
		}
	}

	rec := &Record{
		MeetingID:       room.MeetingID,
		UserID:          subject.ID,
		IsManuallyAdded: req.Manual,
		CreatedAt:       r.opts.Now().UTC(),
	}
	created, err := r.attendances.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("recording attendance: %w", err)
	}

	if req.Manual {
		if _, err := r.store.ClearPending(ctx, room.MeetingID, subject.ID); err != nil {
			r.logger.Warn("failed to clear pending verification", "meeting_id", room.MeetingID, "user_id", subject.ID, "error", err)
		}
	}

	if created {
		r.logger.Info("attendance recorded",
			"meeting_id", rec.MeetingID, "user_id", rec.UserID, "manual", rec.IsManuallyAdded)
		r.record(ctx, &activity.ActivityEntry{
			MeetingID:    rec.MeetingID,
			ActorID:      req.CallerID,
			SubjectID:    &subject.ID,
			ActivityType: activity.TypeAttendanceRecorded,
			Summary:      recordedSummary(subject, req.Manual),
			CreatedAt:    rec.CreatedAt,
		})
	}

	return &SubmitResult{
		Record:    *rec,
		User:      *subject,
		Duplicate: !created,
		Message:   submitMessage(subject, req.Manual, created),
	}, nil
}

// SubmitCode checks the caller in using only a room code; the meeting is
// the one the code was minted for.
func (r *Recorder) SubmitCode(ctx context.Context, callerID, code string) (*SubmitResult, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, ErrInvalidCode
	}
	meetingID, err := r.store.LookupCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("looking up code: %w", err)
	}
	return r.Submit(ctx, SubmitRequest{
		MeetingID: meetingID,
		Code:      code,
		CallerID:  callerID,
	})
}

// Overview lists a meeting's attendees and the expected users who have not
// attended. Only hosts of the meeting may see it.
func (r *Recorder) Overview(ctx context.Context, callerID, meetingID string) (*MeetingAttendance, error) {
	m, err := r.meetings.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if err := r.policy.CanHost(ctx, callerID, m); err != nil {
		return nil, err
	}

	var (
		attendees []Attendee
		expected  []user.User
		room      *Room
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := r.attendances.List(gctx, m.ID)
		if err != nil {
			return fmt.Errorf("listing attendances: %w", err)
		}
		attendees = list
		return nil
	})
	g.Go(func() error {
		users, err := r.meetings.ExpectedAttendees(gctx, m)
		if err != nil {
			return err
		}
		expected = users
		return nil
	})
	g.Go(func() error {
		live, err := r.store.Get(gctx, m.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("loading room: %w", err)
		}
		room = live
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	attended := make(map[string]struct{}, len(attendees))
	for _, a := range attendees {
		attended[a.UserID] = struct{}{}
	}
	absent := make([]user.User, 0, len(expected))
	for _, u := range expected {
		if _, ok := attended[u.ID]; !ok {
			absent = append(absent, u)
		}
	}
	if attendees == nil {
		attendees = []Attendee{}
	}

	awaiting := []user.User{}
	if room != nil {
		awaiting, err = r.awaitingVerification(ctx, m.ID)
		if err != nil {
			return nil, err
		}
	}

	return &MeetingAttendance{
		Meeting:              *m,
		Room:                 room,
		Attendees:            attendees,
		Absent:               absent,
		AwaitingVerification: awaiting,
	}, nil
}

func (r *Recorder) awaitingVerification(ctx context.Context, meetingID string) ([]user.User, error) {
	ids, err := r.store.Pending(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("listing pending verifications: %w", err)
	}
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.users.Resolve(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			r.logger.Warn("pending verification for unknown user", "meeting_id", meetingID, "user_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

// holdForVerification decides whether a self check-in must wait for a host.
// The decision sticks for the life of the room.
func (r *Recorder) holdForVerification(ctx context.Context, room Room, userID string) (bool, error) {
	pending, err := r.store.IsPending(ctx, room.MeetingID, userID)
	if err != nil {
		return false, fmt.Errorf("checking pending verification: %w", err)
	}
	if pending {
		return true, nil
	}

	_, err = r.attendances.Get(ctx, room.MeetingID, userID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("loading attendance: %w", err)
	}

	if r.opts.Sample() >= room.VerificationRate {
		return false, nil
	}

	if err := r.store.MarkPending(ctx, room, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrRoomClosed
		}
		return false, fmt.Errorf("marking pending verification: %w", err)
	}
	r.record(ctx, &activity.ActivityEntry{
		MeetingID:    room.MeetingID,
		ActorID:      userID,
		SubjectID:    &userID,
		ActivityType: activity.TypeVerificationRequired,
		Summary:      "selected for manual verification",
		CreatedAt:    r.opts.Now().UTC(),
	})
	return true, nil
}

func (r *Recorder) record(ctx context.Context, entry *activity.ActivityEntry) {
	if r.activity == nil {
		return
	}
	if err := r.activity.Log(ctx, entry); err != nil {
		r.logger.Warn("failed to log activity", "type", entry.ActivityType, "meeting_id", entry.MeetingID, "error", err)
	}
}

func recordedSummary(subject *user.User, manual bool) string {
	if manual {
		return fmt.Sprintf("manually added %s", subject.Name())
	}
	return fmt.Sprintf("%s checked in", subject.Name())
}

func submitMessage(subject *user.User, manual, created bool) string {
	switch {
	case manual && created:
		return fmt.Sprintf("Recorded attendance for %s.", subject.Name())
	case manual:
		return fmt.Sprintf("%s is already marked present.", subject.Name())
	case created:
		return fmt.Sprintf("Thanks %s, your attendance has been recorded!", subject.Name())
	default:
		return "Your attendance was already recorded."
	}
}
