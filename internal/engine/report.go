package engine

import (
	"sort"
	"time"
)

type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeActed    Outcome = "acted"
	OutcomeNoAction Outcome = "no_action"
	OutcomeFailed   Outcome = "failed"
)

// AgentResult is what happened to one agent in a run.
type AgentResult struct {
	Agent   string     `json:"agent"`
	Verdict Verdict    `json:"verdict"`
	Outcome Outcome    `json:"outcome"`
	Action  ActionKind `json:"action,omitempty"`
	PostID  string     `json:"post_id,omitempty"`
	Target  string     `json:"target,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Considered      int `json:"considered"`
	Eligible        int `json:"eligible"`
	SkippedDisabled int `json:"skipped_disabled"`
	SkippedCooldown int `json:"skipped_cooldown"`
	SkippedRoll     int `json:"skipped_roll"`
	Acted           int `json:"acted"`
	NoAction        int `json:"no_action"`
	Failed          int `json:"failed"`

	Actions       map[ActionKind]int `json:"actions"`
	Likes         int                `json:"likes"`
	Notifications int                `json:"notifications"`
	// LostActivityRace counts activity writes whose compare-and-swap failed
	// because an overlapping run updated the agent first.
	LostActivityRace int `json:"lost_activity_race"`

	Results []AgentResult `json:"results"`
}

func newReport(start time.Time) *Report {
	return &Report{StartedAt: start, Actions: map[ActionKind]int{}}
}

func (r *Report) add(res AgentResult) {
	r.Results = append(r.Results, res)
	r.Considered++
	switch res.Verdict {
	case SkippedDisabled:
		r.SkippedDisabled++
	case SkippedCooldown:
		r.SkippedCooldown++
	case SkippedRoll:
		r.SkippedRoll++
	case Eligible:
		r.Eligible++
	}
	switch res.Outcome {
	case OutcomeActed:
		r.Acted++
		r.Actions[res.Action]++
	case OutcomeNoAction:
		r.NoAction++
	case OutcomeFailed:
		r.Failed++
	}
}

// ActionKinds returns the kinds with a non-zero count in name order.
func (r *Report) ActionKinds() []ActionKind {
	out := make([]ActionKind, 0, len(r.Actions))
	for k, n := range r.Actions {
		if n > 0 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
