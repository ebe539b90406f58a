package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clawdx/internal/api"
	"clawdx/internal/cli/client"
	"clawdx/internal/cli/output"
	"clawdx/internal/db"
	"clawdx/internal/models"
)

func newActivityCommand(a *app) *cobra.Command {
	var (
		hours  int
		limit  int
		server string
		token  string
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Summarize recent agent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hours <= 0 || hours > 24*30 {
				return fmt.Errorf("--hours must be between 1 and %d", 24*30)
			}
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			if server != "" {
				var payload map[string]any
				query := url.Values{
					"hours": {strconv.Itoa(hours)},
					"limit": {strconv.Itoa(limit)},
				}
				if err := client.New(server, token).Get(cmd.Context(), "/api/v1/agents/activity", query, &payload); err != nil {
					return err
				}
				return a.print(payload)
			}

			database, err := a.openDB(false)
			if err != nil {
				return err
			}
			defer database.Close()
			summary, err := db.GetActivitySummary(cmd.Context(), database, hours, limit, time.Now().UTC())
			if err != nil {
				return err
			}
			return a.print(api.ActivityPayload(summary))
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "window size in hours")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum agents listed")
	cmd.Flags().StringVar(&server, "server", "", "read from a clawdx-server instead of the database")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for --server")
	return cmd
}

func newAgentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect and configure agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List agents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withDB(func(database *sql.DB) error {
					agents, err := db.ListAgents(cmd.Context(), database)
					if err != nil {
						return err
					}
					return a.print(map[string]any{"agents": agents, "total": len(agents)})
				})
			},
		},
		newToggleCommand(a, "enable", true),
		newToggleCommand(a, "disable", false),
		&cobra.Command{
			Use:   "level <name> <low|medium|high>",
			Short: "Set an agent's activity level",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				level := models.ActivityLevel(strings.ToLower(args[1]))
				return a.updateAgent(cmd.Context(), args[0], func(database *sql.DB) error {
					return db.SetActivityLevel(cmd.Context(), database, args[0], level)
				})
			},
		},
		&cobra.Command{
			Use:   "interests <name> <interest>...",
			Short: "Replace an agent's interests",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.updateAgent(cmd.Context(), args[0], func(database *sql.DB) error {
					return db.SetInterests(cmd.Context(), database, args[0], args[1:])
				})
			},
		},
		newNotificationsCommand(a),
	)
	return cmd
}

func newToggleCommand(a *app, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>...",
		Short: strings.ToUpper(use[:1]) + use[1:] + " autonomous behavior",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(database *sql.DB) error {
				for _, name := range args {
					if err := db.SetAutonomy(cmd.Context(), database, name, enabled); err != nil {
						return agentError(name, err)
					}
				}
				agents, err := db.ListAgents(cmd.Context(), database)
				if err != nil {
					return err
				}
				want := map[string]bool{}
				for _, name := range args {
					want[name] = true
				}
				changed := make([]models.Agent, 0, len(args))
				for _, agent := range agents {
					if want[agent.Name] {
						changed = append(changed, agent)
					}
				}
				return a.print(map[string]any{"agents": changed})
			})
		},
	}
}

func newNotificationsCommand(a *app) *cobra.Command {
	var (
		all      bool
		limit    int
		markRead bool
	)
	cmd := &cobra.Command{
		Use:   "notifications <name>",
		Short: "Show an agent's notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return a.withDB(func(database *sql.DB) error {
				if _, err := db.GetAgent(cmd.Context(), database, name); err != nil {
					return agentError(name, err)
				}
				items, err := db.ListNotifications(cmd.Context(), database, name, all, limit)
				if err != nil {
					return err
				}
				if markRead {
					if _, err := db.MarkAllNotificationsRead(cmd.Context(), database, name); err != nil {
						return err
					}
				}
				return a.print(map[string]any{"notifications": items, "total": len(items)})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include read notifications")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum notifications")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark every notification read afterwards")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump agents, posts, likes and follows as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(func(database *sql.DB) error {
				var opts db.ExportOptions
				if since > 0 {
					t := time.Now().UTC().Add(-since)
					opts.Since = &t
				}
				export, err := db.ExportNetwork(cmd.Context(), database, opts)
				if err != nil {
					return err
				}
				payload, err := output.Payload(export)
				if err != nil {
					return err
				}
				return output.Print(a.out, payload, "json", false)
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only content newer than this, e.g. 24h")
	return cmd
}

func (a *app) withDB(fn func(*sql.DB) error) error {
	database, err := a.openDB(false)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}

func (a *app) updateAgent(ctx context.Context, name string, fn func(*sql.DB) error) error {
	return a.withDB(func(database *sql.DB) error {
		if err := fn(database); err != nil {
			return agentError(name, err)
		}
		agent, err := db.GetAgent(ctx, database, name)
		if err != nil {
			return err
		}
		return a.print(agent)
	})
}

func agentError(name string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("agent %q not found", name)
	case errors.Is(err, db.ErrNoAutonomySchema):
		return fmt.Errorf("agent %q: %w (run `clawdx migrate`)", name, err)
	default:
		return fmt.Errorf("agent %q: %w", name, err)
	}
}
