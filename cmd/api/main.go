package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/config"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	appHTTP "github.com/cmlabs-hris/attendance-sync-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/biotime"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-sync-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-sync-go/internal/repository/sqlite"
	attendanceService "github.com/cmlabs-hris/attendance-sync-go/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/attendance-sync-go/internal/service/auth"
)

const (
	appName    = "attendance-sync"
	appVersion = "v1.0.0"
)

// storage bundles the repositories of the configured driver.
type storage struct {
	attendanceRepo attendance.AttendanceRepository
	adjustedRepo   attendance.AdjustedWorkRepository
	tx             attendance.Transactor
	locker         attendance.SyncLocker
	close          func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFile := setupLogger(cfg.App)
	if logFile != nil {
		defer logFile.Close()
	}

	store, err := openStorage(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.close()

	sourceClient := biotime.NewClient(biotime.Options{
		BaseURL:    cfg.Source.BaseURL,
		Username:   cfg.Source.Username,
		Password:   cfg.Source.Password,
		PageSize:   cfg.Source.PageSize,
		Timeout:    cfg.Source.RequestTimeout,
		MaxRetries: cfg.Source.MaxRetries,
	})

	syncService := attendanceService.NewSyncService(
		sourceClient,
		store.attendanceRepo,
		store.adjustedRepo,
		store.tx,
		store.locker,
		cfg.Sync,
		cfg.SourceLocation(),
	)

	JWTService := jwt.NewJWTService(cfg.API.JWTSecret, cfg.API.TokenTTL)
	authService, err := serviceAuth.NewAuthService(cfg.API.Username, cfg.API.Password, JWTService)
	if err != nil {
		log.Fatal("Failed to initialize auth service:", err)
	}

	authHandler := appHTTP.NewAuthHandler(authService)
	syncHandler := appHTTP.NewSyncHandler(syncService)

	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		AppName: appName,
		Version: appVersion,
		Env:     cfg.App.Env,
	}, JWTService, authService, authHandler, syncHandler)

	scheduler := cron.NewScheduler()
	cron.NewSyncJobs(syncService, cfg.Sync.Interval).RegisterJobs(scheduler)
	if scheduler.Len() > 0 {
		scheduler.Start()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		// A sync request holds the connection for a whole cycle.
		WriteTimeout: cfg.Sync.CycleTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "addr", server.Addr, "env", cfg.App.Env, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	if scheduler.Len() > 0 {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}

// setupLogger installs a JSON slog logger on stdout, mirrored to LOG_FILE when set.
func setupLogger(app config.AppConfig) *os.File {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(app.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	var file *os.File
	if app.LogFile != "" {
		f, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Println("Error opening log file:", err)
		} else {
			file = f
			out = io.MultiWriter(os.Stdout, f)
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})).With(
		slog.String("app", appName),
		slog.String("env", app.Env),
	)
	slog.SetDefault(logger)
	return file
}

func openStorage(cfg *config.Config) (*storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := database.NewSQLiteDB(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			attendanceRepo: sqlite.NewAttendanceRepository(db),
			adjustedRepo:   sqlite.NewAdjustedWorkRepository(db),
			tx:             sqlite.NewTransactor(db),
			locker:         sqlite.NewSyncLocker(),
			close:          func() { closeSQLite(db) },
		}, nil

	case "postgres":
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.Options{
			MaxConns:         cfg.Database.MaxConns,
			ConnectRetries:   cfg.Database.ConnectRetries,
			ConnectTimeout:   10 * time.Second,
			StatementTimeout: cfg.Database.QueryTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := postgresql.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			attendanceRepo: postgresql.NewAttendanceRepository(db),
			adjustedRepo:   postgresql.NewAdjustedWorkRepository(db),
			tx:             postgresql.NewTransactor(db),
			locker:         postgresql.NewSyncLocker(db),
			close:          db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func closeSQLite(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
