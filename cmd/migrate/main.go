package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsDir string
		logLevel      string
	)
	flag.StringVar(&migrationsDir, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(command, args[1:], migrationsDir, log); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(command string, args []string, migrationsDir string, log *zap.Logger) error {
	// create and list never touch the database
	switch command {
	case "create":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate create <name> [description]")
		}
		dir := migrationsDir
		if dir == "" {
			dir = "migrations"
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], description, time.Now())
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath))
		return nil
	case "list":
		src := migration.Source{Dir: migrationsDir, FS: migrations.FS}
		fsys := src.FS
		if src.Dir != "" {
			fsys = os.DirFS(src.Dir)
		}
		names, err := migration.ListMigrations(fsys)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println("  -", n)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migration.Source{Dir: migrationsDir, FS: migrations.FS}, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	case "goto":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate goto <version>")
		}
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	case "status", "version":
		st, err := m.Status()
		if err != nil {
			return err
		}
		log.Info("Migration status",
			zap.Uint("version", st.Version),
			zap.Bool("dirty", st.Dirty),
			zap.Uint("latest", st.Latest),
			zap.Int("pending", st.Pending))
		return nil
	case "force":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}
	printUsage()
	return fmt.Errorf("unknown command %q", command)
}

func printUsage() {
	fmt.Println(`Fulfillment database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  status                Show applied, latest and pending versions
  force <version>       Force set migration version after a failed run
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: embedded migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Connection settings come from config.toml or FULFILLMENT_DATABASE_* variables.`)
}
