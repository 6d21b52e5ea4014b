package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/seed"
	"github.com/rcos/rcos-io/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func newLoader(t *testing.T) (*seed.Loader, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	meetings := sqlite.NewMeetingRepository(db)
	loader := seed.NewLoader(
		user.NewService(users, nil),
		meeting.NewService(meetings, users, nil),
		meetings,
		users,
		sqlite.NewAPIKeyRepository(db),
		nil,
	)
	return loader, db
}

func TestLoadAndApply(t *testing.T) {
	ctx := context.Background()
	fixture, err := seed.Load("testdata/dev.yaml")
	require.NoError(t, err)
	require.Len(t, fixture.Users, 4)

	loader, db := newLoader(t)
	sum, err := loader.Apply(ctx, fixture)
	require.NoError(t, err)
	require.Equal(t, seed.Summary{
		Semesters: 1, Users: 4, APIKeys: 3, Enrollments: 4, SmallGroups: 1, Meetings: 3,
	}, sum)

	userID, err := sqlite.NewAPIKeyRepository(db).ResolveUser(ctx, "alice-dev-key")
	require.NoError(t, err)
	require.Equal(t, "alice", userID)

	meetings := sqlite.NewMeetingRepository(db)
	lg, err := meetings.Get(ctx, "large-group")
	require.NoError(t, err)
	require.True(t, lg.InProgress(time.Now()))
	require.Equal(t, 2*time.Hour, lg.EndsAt.Sub(lg.StartsAt))

	draft, err := meetings.Get(ctx, "draft-workshop")
	require.NoError(t, err)
	require.False(t, draft.IsPublished)
	require.Equal(t, 90*time.Minute, draft.EndsAt.Sub(draft.StartsAt))

	members, err := meetings.ListSmallGroupMembers(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, members, 2)

	mentor, err := meetings.IsSmallGroupMentor(ctx, "g1", "mentor")
	require.NoError(t, err)
	require.True(t, mentor)
}

func TestParse(t *testing.T) {
	f, err := seed.Parse(nil)
	require.NoError(t, err)
	require.Empty(t, f.Users)

	_, err = seed.Parse([]byte("users:\n  - id: a\n    favourite_colour: blue\n"))
	require.Error(t, err)
}

func TestApply_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fixture string
		want    string
	}{
		{
			name:    "meeting without start",
			fixture: "semesters:\n  - id: s\n    name: S\n    starts_on: 2026-01-01T00:00:00Z\n    ends_on: 2026-05-01T00:00:00Z\nmeetings:\n  - id: m\n    semester: s\n    type: other\n",
			want:    "starts_at or starts_in is required",
		},
		{
			name:    "bad duration",
			fixture: "meetings:\n  - id: m\n    semester: s\n    type: other\n    starts_in: 1h\n    duration: soon\n",
			want:    "invalid duration",
		},
		{
			name:    "unknown semester",
			fixture: "meetings:\n  - id: m\n    semester: nope\n    type: other\n    starts_in: 1h\n",
			want:    `meeting "m"`,
		},
		{
			name:    "user without email",
			fixture: "users:\n  - id: u\n",
			want:    "invalid user input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := seed.Parse([]byte(tt.fixture))
			require.NoError(t, err)
			loader, _ := newLoader(t)
			_, err = loader.Apply(ctx, f)
			require.ErrorContains(t, err, tt.want)
		})
	}
}
