package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gridpos/backend/internal/infrastructure/config"
	"github.com/gridpos/backend/internal/infrastructure/logger"
	"github.com/gridpos/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	sharedMigrationsPath = "migrations/shared"
	tenantMigrationsPath = "migrations/tenant"
)

func main() {
	var (
		migrationsPath string
		target         string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default depends on -target)")
	flag.StringVar(&target, "target", "shared", "Migration target: shared (platform tables) or tenant (per-schema tables)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if migrationsPath == "" {
		switch target {
		case "shared":
			migrationsPath = sharedMigrationsPath
		case "tenant":
			migrationsPath = tenantMigrationsPath
		default:
			log.Fatal("Unknown target", zap.String("target", target))
		}
	}
	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("Failed to get absolute path", zap.Error(err))
	}
	migrationsPath = absPath

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("target", target),
		zap.String("migrations_path", migrationsPath),
	)

	// Commands that never touch the database.
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name>")
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1])
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		migrations, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Available migrations", zap.Int("count", len(migrations)))
		for _, m := range migrations {
			fmt.Println("  -", m)
		}
		return
	}

	// Tenant-schema migrations go through the tenant migrator, which
	// pins search_path and a per-schema version table.
	if target == "tenant" {
		runTenantCommand(command, args, cfg, migrationsPath, log)
		return
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		log.Warn("Forcing migration version - use with caution!")
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// runTenantCommand applies tenant migrations to one named schema
func runTenantCommand(command string, args []string, cfg *config.Config, migrationsPath string, log *zap.Logger) {
	tm := migration.NewTenantMigrator(cfg.Database.DSN(), migrationsPath, log)

	switch command {
	case "up":
		if len(args) < 2 {
			log.Fatal("Schema name required. Usage: migrate -target tenant up <schema>")
		}
		schema := args[1]
		if err := tm.MigrateSchema(schema); err != nil {
			log.Fatal("Tenant migration failed",
				zap.String("schema", schema),
				zap.Error(err),
			)
		}
		log.Info("Tenant schema migrated", zap.String("schema", schema))

	case "version":
		if len(args) < 2 {
			log.Fatal("Schema name required. Usage: migrate -target tenant version <schema>")
		}
		schema := args[1]
		version, dirty, err := tm.SchemaVersion(schema)
		if err != nil {
			log.Fatal("Failed to get schema version", zap.Error(err))
		}
		log.Info("Tenant schema version",
			zap.String("schema", schema),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)

	default:
		log.Error("Unknown tenant command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`GridPOS Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands (shared target):
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  create <name>         Create a new migration file pair
  list                  List available migrations

Commands (tenant target):
  up <schema>           Apply tenant migrations to one schema
  version <schema>      Show a schema's migration version

Flags:
  -target string        shared (platform tables) or tenant (per-schema tables)
  -path string          Override the migrations directory
  -log-level string     Log level: debug, info, warn, error (default: info)

Examples:
  # Apply shared-partition migrations
  migrate up

  # Migrate one tenant schema
  migrate -target tenant up tenant_acme

  # Create a new tenant-table migration
  migrate -target tenant create add_products_table`)
}
