package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/openregistry/lotreg/internal/api"
	"github.com/openregistry/lotreg/internal/db"
	"github.com/openregistry/lotreg/internal/lotid"
	"github.com/openregistry/lotreg/internal/lottype"
	"github.com/openregistry/lotreg/internal/model"
	"github.com/openregistry/lotreg/internal/store"
)

func main() {
	fs := flag.NewFlagSet("lotreg", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "lotreg.sqlite3", "")
	fs.StringVar(&dbPath, "d", "lotreg.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var serverID string
	fs.StringVar(&serverID, "server-id", "", "")

	var adminUser string
	fs.StringVar(&adminUser, "user", "admin", "")
	fs.StringVar(&adminUser, "u", "admin", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: lotreg [flags]

Flags:
  -d, -db <path>          SQLite database path (default: lotreg.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -server-id <id>         instance id appended to generated lot identifiers
  -u, -user <name>        administrator username on first run (default: admin)
  -l, -log <path>         log file path (default: stderr only)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		database, password, err := initDatabase(dbPath, adminUser)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize database")
			os.Exit(1)
		}
		database.Close()

		printInitResult(dbPath, adminUser, password)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open database")
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Error().Err(err).Msg("failed to migrate database")
		os.Exit(1)
	}

	log.Info().Str("path", dbPath).Msg("database ready")

	ctx := context.Background()

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		log.Error().Err(err).Msg("failed to get JWT secret")
		os.Exit(1)
	}

	// The effective server id persists across restarts so the identifier
	// counters keep their namespace.
	effectiveServerID, err := store.GetServerID(ctx, database, serverID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve server id")
		os.Exit(1)
	}
	if effectiveServerID != "" {
		log.Info().Str("server_id", effectiveServerID).Msg("lot identifiers namespaced")
	}

	types := lottype.Default()
	idGen := &lotid.Generator{DB: database, ServerID: effectiveServerID}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, jwtSecret, types, idGen))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	handler := api.LoggingMiddleware(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("server started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

// setupLogger configures the global zerolog logger, optionally teeing to a
// log file.
func setupLogger(logPath string) (func(), error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var cleanup func()
	w := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		w = io.MultiWriter(os.Stderr, f)
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return cleanup, nil
}

// initDatabase creates a new database, applies the schema, and creates the
// administrator account.
func initDatabase(path, adminUser string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	cleanup := func() {
		database.Close()
		os.Remove(path)
	}

	if err := db.Migrate(database); err != nil {
		cleanup()
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		cleanup()
		return nil, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		cleanup()
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	_, err = store.CreateUser(context.Background(), database, adminUser, string(hash), model.RoleAdministrator, "")
	if err != nil {
		cleanup()
		return nil, "", fmt.Errorf("creating administrator account: %w", err)
	}

	return database, password, nil
}

func printInitResult(dbPath, adminUser, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Administrator account created:")
	fmt.Printf("  Username: %s\n", adminUser)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password — it cannot be recovered.")
	fmt.Println("The administrator can change it after logging in.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
