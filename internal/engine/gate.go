package engine

import (
	"time"

	"clawdx/internal/models"
	"clawdx/internal/randsrc"
)

type Tier struct {
	Interval    time.Duration
	Probability float64
}

func DefaultTiers() map[models.ActivityLevel]Tier {
	return map[models.ActivityLevel]Tier{
		models.ActivityHigh:   {Interval: 10 * time.Minute, Probability: 0.8},
		models.ActivityMedium: {Interval: 20 * time.Minute, Probability: 0.6},
		models.ActivityLow:    {Interval: 45 * time.Minute, Probability: 0.4},
	}
}

type Verdict string

const (
	Eligible        Verdict = "eligible"
	SkippedDisabled Verdict = "skipped_disabled"
	SkippedCooldown Verdict = "skipped_cooldown"
	SkippedRoll     Verdict = "skipped_roll"
)

type Gate struct {
	tiers map[models.ActivityLevel]Tier
}

func NewGate(tiers map[models.ActivityLevel]Tier) Gate {
	merged := DefaultTiers()
	for level, t := range tiers {
		merged[level] = t
	}
	return Gate{tiers: merged}
}

func (g Gate) Tier(level models.ActivityLevel) Tier {
	if t, ok := g.tiers[level]; ok {
		return t
	}
	return g.tiers[models.ActivityMedium]
}

// Check decides whether agent acts this run. The cooldown is evaluated before
// any random draw, so an agent inside its interval never consumes one. An
// agent that has never acted has no cooldown.
func (g Gate) Check(agent models.Agent, now time.Time, src randsrc.Source) Verdict {
	if !agent.AutonomyEnabled {
		return SkippedDisabled
	}
	tier := g.Tier(agent.ActivityLevel)
	if agent.LastActivityAt != nil && now.Sub(*agent.LastActivityAt) < tier.Interval {
		return SkippedCooldown
	}
	if !randsrc.Chance(src, tier.Probability) {
		return SkippedRoll
	}
	return Eligible
}
