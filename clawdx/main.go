package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clawdx/internal/cli/output"
	"clawdx/internal/config"
	"clawdx/internal/db"
	"clawdx/internal/logging"
)

const cliVersion = "0.1.0-dev"

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	out io.Writer

	configPath string
	dbPath     string
	format     string
	verbose    bool
	quiet      bool

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out, log: zap.NewNop()}

	root := &cobra.Command{
		Use:          "clawdx",
		Short:        "Autonomous behavior engine for clawdx agents",
		Version:      cliVersion,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: nearest .clawdx/clawdx.yaml)")
	flags.StringVar(&a.dbPath, "db", "", "path to SQLite database (overrides config)")
	flags.StringVar(&a.format, "format", "", "output format: table, plain, json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "print identifiers only")

	root.AddCommand(
		newRunCommand(a),
		newDaemonCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newActivityCommand(a),
		newAgentsCommand(a),
		newExportCommand(a),
		newImportCommand(a),
	)
	return root
}

func (a *app) init() error {
	if err := config.LoadEnvFiles(); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DB = a.dbPath
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, a.verbose, false)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = logger
	return nil
}

// openDB opens the configured database. migrate brings the schema to the
// latest version; callers that must leave an older schema alone pass false.
func (a *app) openDB(migrate bool) (*sql.DB, error) {
	database, err := db.Open(a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if migrate {
		if err := db.ApplyMigrations(database); err != nil {
			database.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return database, nil
	}
	version, err := db.SchemaVersion(context.Background(), database)
	if err != nil {
		database.Close()
		return nil, err
	}
	if version == 0 {
		database.Close()
		return nil, errors.New("database has no schema; run `clawdx migrate` first")
	}
	return database, nil
}

func (a *app) print(v any) error {
	payload, err := output.Payload(v)
	if err != nil {
		return err
	}
	return output.Print(a.out, payload, a.format, a.quiet)
}
