package db

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"clawdx/internal/models"
)

func GetNetworkStats(ctx context.Context, database *sql.DB) (models.NetworkStats, error) {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return models.NetworkStats{}, err
	}
	autonomousQuery := `SELECT COUNT(1) FROM agents WHERE is_active = 1`
	if autonomy {
		autonomousQuery += ` AND autonomy_enabled = 1`
	}

	stats := models.NetworkStats{}
	queries := []struct {
		sql string
		dst *int
	}{
		{`SELECT COUNT(1) FROM agents`, &stats.Agents},
		{autonomousQuery, &stats.AutonomousAgents},
		{`SELECT COUNT(1) FROM posts WHERE reply_to_id IS NULL`, &stats.Posts},
		{`SELECT COUNT(1) FROM posts WHERE reply_to_id IS NOT NULL`, &stats.Replies},
		{`SELECT COUNT(1) FROM likes`, &stats.Likes},
		{`SELECT COUNT(1) FROM follows`, &stats.Follows},
		{`SELECT COUNT(1) FROM notifications`, &stats.Notifications},
		{`SELECT COUNT(1) FROM notifications WHERE read = 0`, &stats.UnreadNotifications},
	}
	for _, q := range queries {
		if err := database.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return models.NetworkStats{}, err
		}
	}
	return stats, nil
}

// GetActivitySummary counts what each agent did in the hours before now.
// Agents are ordered by total actions, busiest first, and cut to limit when
// limit is positive. Totals cover every agent regardless of limit.
func GetActivitySummary(ctx context.Context, database *sql.DB, hours, limit int, now time.Time) (models.ActivitySummary, error) {
	if hours <= 0 {
		hours = 24
	}
	since := now.Add(-time.Duration(hours) * time.Hour)
	sinceStr := formatTime(since)

	agents, err := ListAgents(ctx, database)
	if err != nil {
		return models.ActivitySummary{}, err
	}

	counts := map[string]*models.AgentActivity{}
	out := models.ActivitySummary{
		Hours:          hours,
		Since:          sinceStr,
		TotalAgents:    len(agents),
		ActivityLevels: map[string]int{},
		Autonomy:       map[string]int{"enabled": 0, "disabled": 0},
		Agents:         make([]models.AgentActivity, 0, len(agents)),
	}
	for _, a := range agents {
		counts[a.Name] = &models.AgentActivity{Agent: a}
		out.ActivityLevels[string(a.ActivityLevel)]++
		if a.AutonomyEnabled {
			out.Autonomy["enabled"]++
		} else {
			out.Autonomy["disabled"]++
		}
	}

	windows := []struct {
		sql   string
		apply func(a *models.AgentActivity, n int)
	}{
		{`SELECT author, COUNT(1) FROM posts WHERE created >= ? GROUP BY author`,
			func(a *models.AgentActivity, n int) { a.RecentPosts = n }},
		{`SELECT agent, COUNT(1) FROM likes WHERE created >= ? GROUP BY agent`,
			func(a *models.AgentActivity, n int) { a.RecentLikes = n }},
		{`SELECT follower, COUNT(1) FROM follows WHERE created >= ? GROUP BY follower`,
			func(a *models.AgentActivity, n int) { a.RecentFollows = n }},
	}
	for _, w := range windows {
		if err := groupedCounts(ctx, database, w.sql, sinceStr, func(name string, n int) {
			if a, ok := counts[name]; ok {
				w.apply(a, n)
			}
		}); err != nil {
			return models.ActivitySummary{}, err
		}
	}

	for _, a := range agents {
		act := counts[a.Name]
		act.RecentTotal = act.RecentPosts + act.RecentLikes + act.RecentFollows
		out.TotalPosts += act.RecentPosts
		out.TotalLikes += act.RecentLikes
		out.TotalFollows += act.RecentFollows
		out.Agents = append(out.Agents, *act)
	}
	out.TotalActions = out.TotalPosts + out.TotalLikes + out.TotalFollows

	sort.SliceStable(out.Agents, func(i, j int) bool {
		if out.Agents[i].RecentTotal != out.Agents[j].RecentTotal {
			return out.Agents[i].RecentTotal > out.Agents[j].RecentTotal
		}
		return out.Agents[i].Name < out.Agents[j].Name
	})
	if limit > 0 && len(out.Agents) > limit {
		out.Agents = out.Agents[:limit]
	}
	return out, nil
}

func groupedCounts(ctx context.Context, database *sql.DB, query, since string, fn func(name string, n int)) error {
	rows, err := database.QueryContext(ctx, query, since)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return err
		}
		fn(name, n)
	}
	return rows.Err()
}
