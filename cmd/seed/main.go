// Command seed loads a YAML fixture of semesters, users, small groups and
// meetings into the configured database.
//
// Usage: seed [fixture.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rcos/rcos-io/internal/config"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/seed"
	"github.com/rcos/rcos-io/internal/sqlite"
)

const defaultFixture = "internal/seed/testdata/dev.yaml"

func main() {
	path := defaultFixture
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), path, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	fixture, err := seed.Load(path)
	if err != nil {
		return err
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return err
	}

	users := sqlite.NewUserRepository(db)
	meetings := sqlite.NewMeetingRepository(db)
	loader := seed.NewLoader(
		user.NewService(users, logger),
		meeting.NewService(meetings, users, logger),
		meetings,
		users,
		sqlite.NewAPIKeyRepository(db),
		logger,
	)

	sum, err := loader.Apply(ctx, fixture)
	if err != nil {
		return err
	}
	logger.Info("seeded database",
		"path", cfg.DB.Path,
		"semesters", sum.Semesters,
		"users", sum.Users,
		"api_keys", sum.APIKeys,
		"enrollments", sum.Enrollments,
		"small_groups", sum.SmallGroups,
		"meetings", sum.Meetings,
	)
	return nil
}
