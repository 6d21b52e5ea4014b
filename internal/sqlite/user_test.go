package sqlite

import (
	"context"
	"testing"

	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	created := insertUser(t, db, "u1", "alice@rpi.edu", "smitha")

	repo := NewUserRepository(db)
	loaded, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, created.Email, loaded.Email)
	require.NotNil(t, loaded.RCSID)
	require.Equal(t, "smitha", *loaded.RCSID)
	require.Equal(t, user.RoleRPI, loaded.Role)
	require.True(t, testNow.Equal(loaded.CreatedAt))

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")

	repo := NewUserRepository(db)
	err := repo.Create(ctx, &user.User{ID: "u2", Email: "ALICE@rpi.edu", Role: user.RoleRPI, CreatedAt: testNow})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUserRepository_FindByIdentifier(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")
	insertUser(t, db, "u2", "bob@example.com", "")

	repo := NewUserRepository(db)

	for _, identifier := range []string{"u1", "alice@rpi.edu", "Alice@RPI.edu", "smitha", "SMITHA"} {
		users, err := repo.FindByIdentifier(ctx, identifier)
		require.NoError(t, err, identifier)
		require.Len(t, users, 1, identifier)
		require.Equal(t, "u1", users[0].ID, identifier)
	}

	users, err := repo.FindByIdentifier(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Nil(t, users[0].RCSID)

	users, err = repo.FindByIdentifier(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUserRepository_FindByIdentifierAmbiguous(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	// One user's id collides with another user's RCS id.
	insertUser(t, db, "smitha", "other@rpi.edu", "")
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")

	users, err := NewUserRepository(db).FindByIdentifier(ctx, "smitha")
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestUserRepository_Search(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	require.NoError(t, repo.Create(ctx, &user.User{
		ID: "u1", Email: "alice@rpi.edu", FirstName: "Alice", LastName: "Smith", Role: user.RoleRPI, CreatedAt: testNow,
	}))
	require.NoError(t, repo.Create(ctx, &user.User{
		ID: "u2", Email: "bob@rpi.edu", FirstName: "Bob", LastName: "Jones", Role: user.RoleRPI, CreatedAt: testNow,
	}))

	results, err := repo.Search(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "u1", results[0].ID)

	results, err = repo.Search(ctx, "bob jon", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "u2", results[0].ID)

	results, err = repo.Search(ctx, "rpi", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = repo.Search(ctx, "   ", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestUserRepository_Enrollments(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertSemester(t, db, "s1")
	insertUser(t, db, "u1", "alice@rpi.edu", "smitha")
	insertUser(t, db, "u2", "bob@rpi.edu", "jonesb")

	repo := NewUserRepository(db)
	require.NoError(t, repo.CreateEnrollment(ctx, &user.Enrollment{
		SemesterID: "s1", UserID: "u1", IsCoordinator: true, CreatedAt: testNow,
	}))
	require.NoError(t, repo.CreateEnrollment(ctx, &user.Enrollment{
		SemesterID: "s1", UserID: "u2", CreatedAt: testNow,
	}))

	e, err := repo.GetEnrollment(ctx, "s1", "u1")
	require.NoError(t, err)
	require.True(t, e.IsCoordinator)
	require.True(t, e.CoordinatorOrAbove())
	require.Nil(t, e.ProjectID)

	_, err = repo.GetEnrollment(ctx, "s1", "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	enrolled, err := repo.ListEnrolled(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, enrolled, 2)

	err = repo.CreateEnrollment(ctx, &user.Enrollment{SemesterID: "s1", UserID: "u1", CreatedAt: testNow})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	err = repo.CreateEnrollment(ctx, &user.Enrollment{SemesterID: "nope", UserID: "u1", CreatedAt: testNow})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestFTSPrefixQuery(t *testing.T) {
	require.Equal(t, `"ali"* "smi"*`, ftsPrefixQuery(" ali  smi "))
	require.Equal(t, `"a""b"*`, ftsPrefixQuery(`a"b`))
	require.Equal(t, "", ftsPrefixQuery(""))
}
