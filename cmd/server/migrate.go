package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskboard/internal/config"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

// migrationsSourceDir is where "migrate create" writes new files, relative to
// the repository root.
const migrationsSourceDir = "internal/platform/postgres/migrations"

var migrationDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate {up|down|status|version|create NAME}",
	Short: "Manage the database schema",
	Long: `Apply, roll back or inspect the embedded goose migrations.

"create NAME" writes a new timestamped SQL migration into --dir and needs no database.`,
	Args:      validateMigrateArgs,
	ValidArgs: []string{"up", "down", "status", "version", "create"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationDir, "dir", migrationsSourceDir,
		"Directory for new migration files (create only)")
}

func validateMigrateArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("migration command required: up, down, status, version or create")
	}
	switch args[0] {
	case "up", "down", "status", "version":
		if len(args) != 1 {
			return fmt.Errorf("%s takes no arguments", args[0])
		}
	case "create":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return fmt.Errorf("create requires exactly one migration name")
		}
	default:
		return fmt.Errorf("unknown migration command %q", args[0])
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := args[0]

	if command == "create" {
		goose.SetLogger(&slogGooseLogger{logger: slog.Default()})
		return createMigration(migrationDir, args[1])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server, cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log = log.With(slog.String("component", "migrations"), slog.String("command", command))

	ctx := commandContext(cmd)
	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	return runMigrations(ctx, db.DB, command, log)
}

// runMigrations executes command against db using the embedded migrations.
func runMigrations(ctx context.Context, db *sql.DB, command string, log *slog.Logger) error {
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	start := time.Now()
	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, migrations.Dir)
	case "down":
		err = goose.DownContext(ctx, db, migrations.Dir)
	case "status":
		err = goose.StatusContext(ctx, db, migrations.Dir)
	case "version":
		err = goose.VersionContext(ctx, db, migrations.Dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration completed", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// createMigration writes a new SQL migration file into dir.
func createMigration(dir, name string) error {
	goose.SetBaseFS(nil)
	if err := goose.Create(nil, dir, strings.TrimSpace(name), "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	return nil
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements goose.Logger.
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf implements goose.Logger. It does not exit; the error is returned to
// the command instead.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
