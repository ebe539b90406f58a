package engine

import (
	"errors"
	"fmt"
)

type ActionKind string

const (
	ActionReflectivePost     ActionKind = "reflective_post"
	ActionViralPost          ActionKind = "viral_post"
	ActionMovementPost       ActionKind = "movement_post"
	ActionPost               ActionKind = "post"
	ActionDeepReply          ActionKind = "deep_reply"
	ActionThreadContinuation ActionKind = "thread_continuation"
	ActionLikeBatch          ActionKind = "like_batch"
	ActionFollow             ActionKind = "follow"
	// ActionOwnReplierReply is reached only through the pre-lottery sub-roll.
	ActionOwnReplierReply ActionKind = "own_replier_reply"
)

// Band is one slice of the action lottery. Bands are laid out in order, each
// covering Weight of the total.
type Band struct {
	Kind   ActionKind `mapstructure:"kind" json:"kind"`
	Weight float64    `mapstructure:"weight" json:"weight"`
}

// DefaultBands gives the cut points [0,.15) reflective, [.15,.22) viral,
// [.22,.30) movement, [.30,.50) post, [.50,.70) deep reply,
// [.70,.80) continuation, [.80,.92) likes, [.92,1) follow.
func DefaultBands() []Band {
	return []Band{
		{Kind: ActionReflectivePost, Weight: 0.15},
		{Kind: ActionViralPost, Weight: 0.07},
		{Kind: ActionMovementPost, Weight: 0.08},
		{Kind: ActionPost, Weight: 0.20},
		{Kind: ActionDeepReply, Weight: 0.20},
		{Kind: ActionThreadContinuation, Weight: 0.10},
		{Kind: ActionLikeBatch, Weight: 0.12},
		{Kind: ActionFollow, Weight: 0.08},
	}
}

var lotteryKinds = map[ActionKind]bool{
	ActionReflectivePost:     true,
	ActionViralPost:          true,
	ActionMovementPost:       true,
	ActionPost:               true,
	ActionDeepReply:          true,
	ActionThreadContinuation: true,
	ActionLikeBatch:          true,
	ActionFollow:             true,
}

type Policy struct {
	bands []Band
	total float64
}

func NewPolicy(bands []Band) (*Policy, error) {
	if len(bands) == 0 {
		return nil, errors.New("policy: no bands")
	}
	seen := map[ActionKind]bool{}
	total := 0.0
	for _, b := range bands {
		if !lotteryKinds[b.Kind] {
			return nil, fmt.Errorf("policy: unknown action %q", b.Kind)
		}
		if seen[b.Kind] {
			return nil, fmt.Errorf("policy: duplicate action %q", b.Kind)
		}
		if b.Weight < 0 {
			return nil, fmt.Errorf("policy: negative weight for %q", b.Kind)
		}
		seen[b.Kind] = true
		total += b.Weight
	}
	if total <= 0 {
		return nil, errors.New("policy: weights sum to zero")
	}
	out := make([]Band, len(bands))
	copy(out, bands)
	return &Policy{bands: out, total: total}, nil
}

func (p *Policy) Bands() []Band {
	out := make([]Band, len(p.bands))
	copy(out, p.bands)
	return out
}

// Select maps draw in [0,1) onto a band by cumulative weight. When the band's
// precondition fails it falls through to the next band in order; nothing
// wraps around, so ok is false if no later band is ready.
func (p *Policy) Select(draw float64, ready func(ActionKind) bool) (ActionKind, bool) {
	start := p.bandIndex(draw)
	for _, b := range p.bands[start:] {
		if b.Weight == 0 {
			continue
		}
		if ready(b.Kind) {
			return b.Kind, true
		}
	}
	return "", false
}

func (p *Policy) bandIndex(draw float64) int {
	x := draw * p.total
	acc := 0.0
	for i, b := range p.bands {
		acc += b.Weight
		if x < acc {
			return i
		}
	}
	return len(p.bands) - 1
}
