package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	cartapp "github.com/astrogoddess/storefront/internal/application/cart"
	"github.com/astrogoddess/storefront/internal/infrastructure/config"
	"github.com/astrogoddess/storefront/internal/infrastructure/logger"
	"github.com/astrogoddess/storefront/internal/infrastructure/migration"
	"github.com/astrogoddess/storefront/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var schemaCommands = []string{"up", "down", "step", "goto", "version", "force"}

func main() {
	var (
		configPath string
		logLevel   string
		timeout    time.Duration
	)

	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: search . and /app)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for database commands")
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
		_ = log.Sync()
	}()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.Storage.Driver != config.DriverPostgres && cfg.Storage.Driver != config.DriverSQLite {
		log.Fatal("Cart tables only exist for the SQL drivers",
			zap.String("driver", cfg.Storage.Driver),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("Cart database tool started",
		zap.String("command", command),
		zap.String("driver", cfg.Storage.Driver),
	)

	if slices.Contains(schemaCommands, command) {
		runSchemaCommand(ctx, cfg, command, args[1:], log)
		return
	}
	runDataCommand(ctx, cfg, command, args[1:], log)
}

// runSchemaCommand drives golang-migrate over a plain database/sql connection
func runSchemaCommand(ctx context.Context, cfg *config.Config, command string, args []string, log *zap.Logger) {
	driverName, dsn, dialect := "postgres", cfg.Database.DSN(), migration.DialectPostgres
	if cfg.Storage.Driver == config.DriverSQLite {
		driverName, dsn, dialect = "sqlite3", cfg.Database.SQLitePath, migration.DialectSQLite
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(ctx, db, dialect, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()

	case "down":
		if !confirmed(args) {
			log.Fatal("Rollback cancelled. Use 'migrate down -confirm' to drop every saved cart.")
		}
		err = m.Down()

	case "step":
		n := intArg(args, "step", log)
		err = m.Steps(n)

	case "goto":
		v := intArg(args, "goto", log)
		if v < 0 {
			log.Fatal("Version must not be negative", zap.Int("version", v))
		}
		err = m.GoTo(uint(v))

	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal("Failed to read version", zap.Error(verr))
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)

	case "force":
		err = m.Force(intArg(args, "force", log))
	}
	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

// runDataCommand works on saved carts through the gorm storage
func runDataCommand(ctx context.Context, cfg *config.Config, command string, args []string, log *zap.Logger) {
	var (
		db  *persistence.Database
		err error
	)
	if cfg.Storage.Driver == config.DriverSQLite {
		db, err = persistence.NewSQLiteDatabase(&cfg.Database, log)
	} else {
		db, err = persistence.NewDatabase(&cfg.Database, log)
	}
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}
	storage := persistence.NewGormCartStorage(db, cfg.Storage.TTL)

	switch command {
	case "purge":
		n, err := storage.PurgeExpired(ctx)
		if err != nil {
			log.Fatal("Purge failed", zap.Error(err))
		}
		log.Info("Expired carts purged", zap.Int64("count", n))

	case "reset":
		if len(args) == 0 || args[0] == "" {
			log.Fatal("Session id required: migrate reset <session-id>")
		}
		if err := cartapp.NewService(storage, cartapp.WithLogger(log)).Forget(ctx, args[0]); err != nil {
			log.Fatal("Reset failed", zap.Error(err))
		}

	case "stats":
		stats, err := db.Stats()
		if err != nil {
			log.Fatal("Failed to read pool stats", zap.Error(err))
		}
		log.Info("Connection pool",
			zap.Int("max_open", stats.MaxOpenConnections),
			zap.Int("open", stats.OpenConnections),
			zap.Int("in_use", stats.InUse),
			zap.Int("idle", stats.Idle),
		)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func confirmed(args []string) bool {
	return slices.Contains(args, "-confirm") || slices.Contains(args, "--confirm")
}

func intArg(args []string, command string, log *zap.Logger) int {
	if len(args) == 0 {
		log.Fatal("Missing numeric argument", zap.String("command", command))
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatal("Invalid numeric argument", zap.String("command", command), zap.String("arg", args[0]))
	}
	return n
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printUsage() {
	fmt.Println(`Storefront cart database tool

Usage:
  migrate [flags] <command> [arguments]

Schema commands:
  up                  Apply all pending migrations
  down -confirm       Roll back every migration (drops saved carts)
  step N              Apply N migrations (negative N rolls back)
  goto V              Migrate up or down to version V
  version             Show the current migration version
  force V             Record version V without running it (clears a dirty state)

Data commands:
  purge               Delete carts whose TTL has passed
  reset SESSION_ID    Delete the saved cart of one visitor session
  stats               Show connection pool statistics

Flags:
  -config string      Path to config.toml
  -log-level string   Log level: debug, info, warn, error (default: info)
  -timeout duration   Timeout for database commands (default: 30s)

Environment Variables:
  CART_STORAGE_DRIVER (postgres or sqlite), CART_DATABASE_HOST,
  CART_DATABASE_PORT, CART_DATABASE_USER, CART_DATABASE_PASSWORD,
  CART_DATABASE_DBNAME, CART_DATABASE_SQLITE_PATH, CART_STORAGE_TTL

Examples:
  migrate up
  migrate step -1
  migrate reset 3f0c8a52-7d1e-4a8b-9a57-0c2b1d7f9e11
  migrate -config /etc/storefront/config.toml purge`)
}
