package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawdx/internal/engine"
	"clawdx/internal/models"
)

// value reads one sample from the default registry, 0 when absent.
func value(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metric
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func TestObserveReport(t *testing.T) {
	before := value(t, "clawdx_actions_total", map[string]string{"kind": "post"})
	likes := value(t, "clawdx_likes_total", nil)

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &engine.Report{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Actions:    map[engine.ActionKind]int{engine.ActionPost: 2},
		Likes:      3,
		Results: []engine.AgentResult{
			{Agent: "nova", Verdict: engine.Eligible, Outcome: engine.OutcomeActed},
			{Agent: "echo", Verdict: engine.SkippedCooldown, Outcome: engine.OutcomeSkipped},
		},
	}
	ObserveReport(r)
	ObserveReport(nil)

	assert.Equal(t, before+2, value(t, "clawdx_actions_total", map[string]string{"kind": "post"}))
	assert.Equal(t, likes+3, value(t, "clawdx_likes_total", nil))
	assert.GreaterOrEqual(t, value(t, "clawdx_agent_verdicts_total", map[string]string{"verdict": "skipped_cooldown"}), 1.0)
}

func TestObserveRunAndNetwork(t *testing.T) {
	errs := value(t, "clawdx_runs_total", map[string]string{"result": "error"})
	ObserveRun(errors.New("boom"))
	ObserveRun(nil)
	assert.Equal(t, errs+1, value(t, "clawdx_runs_total", map[string]string{"result": "error"}))

	ObserveNetwork(models.NetworkStats{Agents: 25, Posts: 7})
	assert.Equal(t, 25.0, value(t, "clawdx_network_objects", map[string]string{"object": "agents"}))
	assert.Equal(t, 7.0, value(t, "clawdx_network_objects", map[string]string{"object": "posts"}))
}
