package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepository_UpsertIsIdempotent(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertSemester(t, db, "s1")
	insertMeeting(t, db, "m1", "s1", nil)
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")

	repo := NewAttendanceRepository(db)
	first := &attendance.Record{MeetingID: "m1", UserID: "u1", CreatedAt: testNow}
	created, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	second := &attendance.Record{MeetingID: "m1", UserID: "u1", IsManuallyAdded: true, CreatedAt: testNow.Add(time.Minute)}
	created, err = repo.Upsert(ctx, second)
	require.NoError(t, err)
	require.False(t, created)
	require.False(t, second.IsManuallyAdded, "existing record is returned unchanged")
	require.True(t, testNow.Equal(second.CreatedAt))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM meeting_attendances`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestAttendanceRepository_ConcurrentUpsert(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertSemester(t, db, "s1")
	insertMeeting(t, db, "m1", "s1", nil)
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")

	repo := NewAttendanceRepository(db)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := repo.Upsert(ctx, &attendance.Record{MeetingID: "m1", UserID: "u1", CreatedAt: testNow})
			if err != nil {
				errs <- err
				return
			}
			results <- created
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	inserted := 0
	for created := range results {
		if created {
			inserted++
		}
	}
	require.Equal(t, 1, inserted)
}

func TestAttendanceRepository_UnknownMeeting(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")

	_, err := NewAttendanceRepository(db).Upsert(ctx, &attendance.Record{MeetingID: "nope", UserID: "u1", CreatedAt: testNow})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestAttendanceRepository_GetList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertSemester(t, db, "s1")
	insertMeeting(t, db, "m1", "s1", nil)
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")
	insertUser(t, db, "u2", "bob@rpi.edu", "jonesb")

	repo := NewAttendanceRepository(db)
	_, err := repo.Upsert(ctx, &attendance.Record{MeetingID: "m1", UserID: "u2", CreatedAt: testNow})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &attendance.Record{MeetingID: "m1", UserID: "u1", IsManuallyAdded: true, CreatedAt: testNow.Add(time.Minute)})
	require.NoError(t, err)

	rec, err := repo.Get(ctx, "m1", "u1")
	require.NoError(t, err)
	require.True(t, rec.IsManuallyAdded)

	_, err = repo.Get(ctx, "m1", "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	attendees, err := repo.List(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, attendees, 2)
	require.Equal(t, "u2", attendees[0].UserID)
	require.Equal(t, "bob@rpi.edu", attendees[0].User.Email)
	require.Equal(t, "u1", attendees[1].UserID)
	require.NotNil(t, attendees[1].User.RCSID)

	empty, err := repo.List(ctx, "other")
	require.NoError(t, err)
	require.Empty(t, empty)
}
