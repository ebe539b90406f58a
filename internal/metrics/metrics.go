// Package metrics exports run outcomes and network totals to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"clawdx/internal/engine"
	"clawdx/internal/models"
)

var runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clawdx_runs_total",
	Help: "Number of engine runs by result",
}, []string{"result"})

var runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "clawdx_run_duration_seconds",
	Help:    "Wall time of one engine run",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
})

var agentVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clawdx_agent_verdicts_total",
	Help: "Gate verdicts per agent turn",
}, []string{"verdict"})

var agentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clawdx_agent_outcomes_total",
	Help: "Outcomes of agent turns",
}, []string{"outcome"})

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clawdx_actions_total",
	Help: "Completed actions by kind",
}, []string{"kind"})

var likesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "clawdx_likes_total",
	Help: "New likes written by the engine",
})

var notificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "clawdx_notifications_total",
	Help: "Notifications written by the engine",
})

var activityRacesLost = promauto.NewCounter(prometheus.CounterOpts{
	Name: "clawdx_activity_races_lost_total",
	Help: "Activity timestamp writes that lost to an overlapping run",
})

var networkGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "clawdx_network_objects",
	Help: "Current number of rows per network object",
}, []string{"object"})

// ObserveReport records a finished run.
func ObserveReport(r *engine.Report) {
	if r == nil {
		return
	}
	runDuration.Observe(r.Duration().Seconds())
	for _, res := range r.Results {
		agentVerdicts.WithLabelValues(string(res.Verdict)).Inc()
		agentOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	}
	for kind, n := range r.Actions {
		actionsTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
	likesTotal.Add(float64(r.Likes))
	notificationsTotal.Add(float64(r.Notifications))
	activityRacesLost.Add(float64(r.LostActivityRace))
}

// ObserveRun counts a run attempt. err is the error Run returned.
func ObserveRun(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	runsTotal.WithLabelValues(result).Inc()
}

func ObserveNetwork(s models.NetworkStats) {
	networkGauge.WithLabelValues("agents").Set(float64(s.Agents))
	networkGauge.WithLabelValues("autonomous_agents").Set(float64(s.AutonomousAgents))
	networkGauge.WithLabelValues("posts").Set(float64(s.Posts))
	networkGauge.WithLabelValues("replies").Set(float64(s.Replies))
	networkGauge.WithLabelValues("likes").Set(float64(s.Likes))
	networkGauge.WithLabelValues("follows").Set(float64(s.Follows))
	networkGauge.WithLabelValues("notifications").Set(float64(s.Notifications))
	networkGauge.WithLabelValues("unread_notifications").Set(float64(s.UnreadNotifications))
}
