package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clawdx/internal/content"
	"clawdx/internal/db"
	"clawdx/internal/engine"
	"clawdx/internal/metrics"
	"clawdx/internal/models"
	"clawdx/internal/persona"
	"clawdx/internal/randsrc"
	"clawdx/internal/textgen"
)

func newRunCommand(a *app) *cobra.Command {
	var noMigrate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Give every agent one chance to act",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := a.openDB(!noMigrate)
			if err != nil {
				return err
			}
			defer database.Close()

			eng, err := a.buildEngine(database)
			if err != nil {
				return err
			}
			report, err := a.runOnce(cmd.Context(), database, eng)
			if report != nil {
				if pErr := a.print(report); pErr != nil {
					return pErr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noMigrate, "no-migrate", false, "leave the schema version untouched")
	return cmd
}

func (a *app) buildEngine(database *sql.DB) (*engine.Engine, error) {
	pools, err := content.DefaultPools()
	if err != nil {
		return nil, fmt.Errorf("load content pools: %w", err)
	}
	catalog, err := persona.Default()
	if err != nil {
		return nil, fmt.Errorf("load persona roster: %w", err)
	}
	gen, err := content.NewGenerator(pools, catalog, a.cfg.ContentOptions())
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	responder, err := textgen.New(a.cfg.TextGenConfig())
	if err != nil {
		return nil, err
	}

	seed := a.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	options := []engine.Option{
		engine.WithLogger(a.log.Named("engine")),
		engine.WithRand(randsrc.New(seed)),
	}
	if responder != nil {
		a.log.Info("replies use text generation", zap.String("provider", responder.Name()))
		options = append(options, engine.WithResponder(responder))
	}
	return engine.New(db.NewStore(database), gen, catalog, opts, options...)
}

// runOnce performs one engine pass bounded by run_timeout and records it in
// the metrics registry and the database.
func (a *app) runOnce(ctx context.Context, database *sql.DB, eng *engine.Engine) (*engine.Report, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)
	defer cancel()

	started := time.Now().UTC()
	report, err := eng.Run(runCtx)
	metrics.ObserveRun(err)
	metrics.ObserveReport(report)

	rec := models.RunRecord{StartedAt: started, FinishedAt: time.Now().UTC()}
	if report != nil {
		rec.StartedAt, rec.FinishedAt = report.StartedAt, report.FinishedAt
		rec.Considered, rec.Acted, rec.NoAction, rec.Failed = report.Considered, report.Acted, report.NoAction, report.Failed
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if rErr := db.RecordRun(ctx, database, rec); rErr != nil {
		a.log.Warn("record run failed", zap.Error(rErr))
	}
	return report, err
}

func newDaemonCommand(a *app) *cobra.Command {
	var (
		schedule    string
		metricsAddr string
		noMigrate   bool
	)
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the engine on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schedule == "" {
				schedule = a.cfg.Schedule
			}
			if !gronx.New().IsValid(schedule) {
				return fmt.Errorf("invalid schedule %q", schedule)
			}

			database, err := a.openDB(!noMigrate)
			if err != nil {
				return err
			}
			defer database.Close()

			eng, err := a.buildEngine(database)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("metrics server failed", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.log.Info("serving metrics", zap.String("addr", metricsAddr))
			}

			d := &scheduler{
				expr: schedule,
				now:  time.Now,
				wait: sleepCtx,
				log:  a.log.Named("daemon"),
				run: func(ctx context.Context) error {
					_, err := a.runOnce(ctx, database, eng)
					return err
				},
			}
			a.log.Info("daemon started", zap.String("schedule", schedule), zap.Duration("run_timeout", a.cfg.RunTimeout))
			return d.loop(ctx)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address, e.g. :9464")
	cmd.Flags().BoolVar(&noMigrate, "no-migrate", false, "leave the schema version untouched")
	return cmd
}

// scheduler fires run once per due tick of expr. Runs are sequential, so a
// run that overruns the next tick makes the daemon skip to the following one.
type scheduler struct {
	expr string
	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
	run  func(ctx context.Context) error
	log  *zap.Logger
}

func (s *scheduler) loop(ctx context.Context) error {
	for {
		next, err := gronx.NextTickAfter(s.expr, s.now(), false)
		if err != nil {
			return fmt.Errorf("next tick for %q: %w", s.expr, err)
		}
		if err := s.wait(ctx, next.Sub(s.now())); err != nil {
			s.log.Info("daemon stopping")
			return nil
		}
		start := s.now()
		if err := s.run(ctx); err != nil {
			s.log.Warn("run failed", zap.Error(err))
		} else {
			s.log.Debug("run finished", zap.Duration("took", s.now().Sub(start)))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d < 0 {
		d = 0
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newMigrateCommand(a *app) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := db.Open(a.cfg.DB)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer database.Close()

			if to <= 0 {
				to = db.LatestVersion()
			}
			if err := db.ApplyMigrationsTo(database, to); err != nil {
				return err
			}
			version, err := db.SchemaVersion(cmd.Context(), database)
			if err != nil {
				return err
			}
			autonomy, err := db.HasAutonomySchema(cmd.Context(), database)
			if err != nil {
				return err
			}
			return a.print(map[string]any{
				"db":              a.cfg.DB,
				"schema_version":  version,
				"autonomy_schema": autonomy,
			})
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "target schema version (default latest)")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a network export produced by `clawdx export`",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" {
				return fmt.Errorf("missing --from")
			}
			database, err := a.openDB(true)
			if err != nil {
				return err
			}
			defer database.Close()

			res, err := db.ImportFromPath(cmd.Context(), database, from)
			if err != nil {
				return err
			}
			a.log.Info("import complete", zap.String("from", from), zap.String("db", a.cfg.DB))
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "path to a json export file")
	return cmd
}
