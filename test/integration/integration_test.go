package integration_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rcos/rcos-io/internal/domain/access"
	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/seed"
	"github.com/rcos/rcos-io/internal/sessionstore"
	"github.com/rcos/rcos-io/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// testEnv runs the attendance services against a file-backed database and
// a Redis room store, seeded from the development fixture.
type testEnv struct {
	db    *sqlite.DB
	redis *miniredis.Miniredis

	rooms       *attendance.Rooms
	recorder    *attendance.Recorder
	activitySvc *activity.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "rcos.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	client, err := sessionstore.Connect(ctx, sessionstore.RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	store := sessionstore.NewRedis(client, sessionstore.DefaultKeyPrefix)

	userRepo := sqlite.NewUserRepository(db)
	meetingRepo := sqlite.NewMeetingRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	users := user.NewService(userRepo, nil)
	meetings := meeting.NewService(meetingRepo, userRepo, nil)

	fixture, err := seed.Load("../../internal/seed/testdata/dev.yaml")
	require.NoError(t, err)
	loader := seed.NewLoader(users, meetings, meetingRepo, userRepo, sqlite.NewAPIKeyRepository(db), nil)
	_, err = loader.Apply(ctx, fixture)
	require.NoError(t, err)

	policy := access.NewPolicy(userRepo, meetingRepo)
	return &testEnv{
		db:          db,
		redis:       mr,
		rooms:       attendance.NewRooms(meetings, store, policy, activityRepo, attendance.Options{}, nil),
		recorder:    attendance.NewRecorder(meetings, users, store, sqlite.NewAttendanceRepository(db), policy, activityRepo, attendance.Options{}, nil),
		activitySvc: activity.NewService(activityRepo, nil),
	}
}

func TestIntegration_LargeGroupCheckIn(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.rooms.Open(ctx, attendance.OpenRequest{MeetingID: "large-group", OpenerID: "mentor"})
	require.ErrorIs(t, err, attendance.ErrPermissionDenied)

	room, err := env.rooms.Open(ctx, attendance.OpenRequest{MeetingID: "large-group", OpenerID: "coord"})
	require.NoError(t, err)
	// The room lasts for the rest of the meeting.
	require.WithinDuration(t, time.Now().Add(105*time.Minute), room.ExpiresAt, time.Minute)
	require.True(t, env.redis.Exists(sessionstore.DefaultKeyPrefix+"attendance:room:large-group"))

	res, err := env.recorder.Submit(ctx, attendance.SubmitRequest{
		MeetingID: "large-group", Code: room.Code, CallerID: "alice",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", res.Record.UserID)

	res, err = env.recorder.SubmitCode(ctx, "bob", room.Code)
	require.NoError(t, err)
	require.Equal(t, "large-group", res.Record.MeetingID)

	overview, err := env.recorder.Overview(ctx, "coord", "large-group")
	require.NoError(t, err)
	require.Len(t, overview.Attendees, 2)
	absent := make([]string, 0, len(overview.Absent))
	for _, u := range overview.Absent {
		absent = append(absent, u.ID)
	}
	require.ElementsMatch(t, []string{"coord", "mentor"}, absent)

	// Once Redis expires the room, codes stop working.
	env.redis.FastForward(2 * time.Hour)
	_, err = env.recorder.SubmitCode(ctx, "mentor", room.Code)
	require.ErrorIs(t, err, attendance.ErrInvalidCode)
	_, err = env.recorder.Submit(ctx, attendance.SubmitRequest{
		MeetingID: "large-group", Code: room.Code, CallerID: "mentor",
	})
	require.ErrorIs(t, err, attendance.ErrRoomClosed)

	entries, err := env.activitySvc.GetRecentActivity(ctx, activity.ListActivityOptions{MeetingID: "large-group"})
	require.NoError(t, err)
	types := make([]activity.ActivityType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.ActivityType)
	}
	require.ElementsMatch(t, []activity.ActivityType{
		activity.TypeRoomOpened,
		activity.TypeAttendanceRecorded,
		activity.TypeAttendanceRecorded,
	}, types)
}

func TestIntegration_SmallGroupMentor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	room, err := env.rooms.Open(ctx, attendance.OpenRequest{MeetingID: "g1-weekly", OpenerID: "mentor"})
	require.NoError(t, err)

	// Mentors may record their members by RCS ID.
	res, err := env.recorder.Submit(ctx, attendance.SubmitRequest{
		MeetingID: "g1-weekly", Code: room.Code, CallerID: "mentor", Subject: "SMITHA", Manual: true,
	})
	require.NoError(t, err)
	require.Equal(t, "alice", res.User.ID)
	require.True(t, res.Record.IsManuallyAdded)

	status, err := env.rooms.Status(ctx, "bob", "g1-weekly")
	require.NoError(t, err)
	require.True(t, status.Open)
	require.Empty(t, status.Code)

	redirect, err := env.rooms.Close(ctx, attendance.CloseRequest{MeetingID: "g1-weekly", Code: room.Code, CloserID: "mentor"})
	require.NoError(t, err)
	require.Equal(t, "/meetings/g1-weekly", redirect)
	require.False(t, env.redis.Exists(sessionstore.DefaultKeyPrefix+"attendance:room:g1-weekly"))

	overview, err := env.recorder.Overview(ctx, "mentor", "g1-weekly")
	require.NoError(t, err)
	require.Nil(t, overview.Room)
	require.Len(t, overview.Attendees, 1)
	require.Len(t, overview.Absent, 1)
	require.Equal(t, "bob", overview.Absent[0].ID)
}
