package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rcos/rcos-io/internal/config"
	"github.com/rcos/rcos-io/internal/domain/access"
	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/mcp"
	"github.com/rcos/rcos-io/internal/sessionstore"
	"github.com/rcos/rcos-io/internal/sqlite"
	"github.com/rcos/rcos-io/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logWriter := io.Writer(os.Stdout)
	if cfg.Log.Path != "" {
		rotating := newLogWriter(cfg.Log)
		defer rotating.Close()
		logWriter = rotating
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return err
	}

	store, closeStore, err := openRoomStore(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	userRepo := sqlite.NewUserRepository(db)
	meetingRepo := sqlite.NewMeetingRepository(db)
	attendanceRepo := sqlite.NewAttendanceRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)

	opts := attendance.Options{
		DefaultTTL:       cfg.Attendance.DefaultTTL,
		MaxTTL:           cfg.Attendance.MaxTTL,
		VerificationRate: cfg.Attendance.VerificationRate,
	}

	userSvc := user.NewService(userRepo, logger)
	meetingSvc := meeting.NewService(meetingRepo, userRepo, logger)
	activitySvc := activity.NewService(activityRepo, logger)
	policy := access.NewPolicy(userRepo, meetingRepo)
	rooms := attendance.NewRooms(meetingSvc, store, policy, activityRepo, opts, logger)
	recorder := attendance.NewRecorder(meetingSvc, userSvc, store, attendanceRepo, policy, activityRepo, opts, logger)

	var mcpHandler http.Handler
	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(mcp.Config{
			Services: mcp.Services{
				Rooms:      rooms,
				Attendance: recorder,
				Users:      userSvc,
				Meetings:   meetingSvc,
				Policy:     policy,
			},
			Resolver: apiKeys,
			Logger:   logger,
		})
		mcpHandler = mcp.NewHTTPHandler(mcpServer)
	}

	router := transport.NewServer(transport.Services{
		Rooms:      rooms,
		Attendance: recorder,
		Meetings:   meetingSvc,
		Users:      userSvc,
		Activity:   activitySvc,
		Policy:     policy,
	}, transport.AuthMiddleware(apiKeys, logger), mcpHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "mcp", cfg.MCP.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openRoomStore connects to Redis when an address is configured. Without
// one, rooms live in process memory and are lost on restart.
func openRoomStore(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (attendance.RoomStore, func(), error) {
	if cfg.Addr == "" {
		logger.Warn("no redis address configured; attendance rooms are kept in memory")
		return sessionstore.NewMemory(nil), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := sessionstore.Connect(connectCtx, sessionstore.RedisOptions{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis room store", "addr", cfg.Addr, "db", cfg.DB)
	return sessionstore.NewRedis(client, cfg.KeyPrefix), func() { _ = client.Close() }, nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
