package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clawdx/internal/api"
	"clawdx/internal/auth"
	"clawdx/internal/config"
	"clawdx/internal/db"
	"clawdx/internal/logging"
)

const serverVersion = "0.1.0-dev"

func main() {
	var (
		port       = flag.String("port", "8080", "HTTP listen port")
		configPath = flag.String("config", "", "config file (default: nearest .clawdx/clawdx.yaml)")
		dbPath     = flag.String("db", "", "path to SQLite database (overrides config)")
		tokenFile  = flag.String("token-file", "", "read the API bearer token from this file")
		tokenOut   = flag.String("token-out", "", "generate an API bearer token into this file if it does not exist")
		rateLimit  = flag.Int("rate-limit", 120, "requests per minute per client, 0 disables")
		logLevel   = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "load env files: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := logging.New(cfg.LogLevel, false, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := serve(logger, cfg, *port, *tokenFile, *tokenOut, *rateLimit); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func serve(logger *zap.Logger, cfg *config.Config, port, tokenFile, tokenOut string, rateLimit int) error {
	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	// the server only reads; an un-migrated database still needs the base tables
	version, err := db.SchemaVersion(context.Background(), database)
	if err != nil {
		return err
	}
	if version == 0 {
		if err := db.ApplyMigrations(database); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	tokenHash, err := loadToken(tokenFile, tokenOut)
	if err != nil {
		return err
	}
	if tokenHash == "" {
		logger.Warn("no API token configured; /api/v1 is open")
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: api.NewRouter(database, serverVersion, api.Options{
			TokenHash:      tokenHash,
			ReadsPerMinute: rateLimit,
			Logger:         logger.Named("api"),
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("clawdx-server listening", zap.String("addr", server.Addr), zap.String("db", cfg.DB))
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

// loadToken returns the hash of the configured bearer token, "" when the API
// is unguarded. tokenOut creates the token file on first start and reuses it
// afterwards. CLAWDX_API_TOKEN is used when neither flag is set.
func loadToken(tokenFile, tokenOut string) (string, error) {
	switch {
	case tokenFile != "" && tokenOut != "":
		return "", errors.New("--token-file and --token-out are mutually exclusive")
	case tokenFile != "":
		return readToken(tokenFile)
	case tokenOut != "":
		if _, err := os.Stat(tokenOut); err == nil {
			return readToken(tokenOut)
		}
		token, err := auth.GenerateToken()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(tokenOut), 0o700); err != nil {
			return "", err
		}
		if err := os.WriteFile(tokenOut, []byte(token+"\n"), 0o600); err != nil {
			return "", fmt.Errorf("write token: %w", err)
		}
		return auth.HashToken(token), nil
	default:
		if token := strings.TrimSpace(os.Getenv("CLAWDX_API_TOKEN")); token != "" {
			return auth.HashToken(token), nil
		}
		return "", nil
	}
}

func readToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return auth.HashToken(token), nil
}
