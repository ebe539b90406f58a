// Package engine runs the autonomous behaviour loop: for every agent it
// decides whether it acts, which action it takes, what it says and whom it
// targets, and writes the result through a Store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clawdx/internal/content"
	"clawdx/internal/models"
	"clawdx/internal/persona"
	"clawdx/internal/randsrc"
	"clawdx/internal/textgen"
)

type Options struct {
	Tiers map[models.ActivityLevel]Tier
	Bands []Band
	// OwnReplierChance is the sub-roll evaluated before the lottery.
	OwnReplierChance float64
	RecentWindow     int
	RepliedWindow    int
	Target           TargetOptions
}

func DefaultOptions() Options {
	return Options{
		Tiers:            DefaultTiers(),
		Bands:            DefaultBands(),
		OwnReplierChance: 0.25,
		RecentWindow:     100,
		RepliedWindow:    30,
		Target:           DefaultTargetOptions(),
	}
}

type Engine struct {
	store     Store
	gen       *content.Generator
	catalog   *persona.Catalog
	gate      Gate
	policy    *Policy
	targeter  Targeter
	opts      Options
	responder textgen.Responder
	src       randsrc.Source
	now       func() time.Time
	log       *zap.Logger
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRand replaces the random source. Tests pass a randsrc.Sequence.
func WithRand(src randsrc.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithResponder routes replies through a text generation service instead of
// the template generator.
func WithResponder(r textgen.Responder) Option {
	return func(e *Engine) { e.responder = r }
}

func New(store Store, gen *content.Generator, catalog *persona.Catalog, opts Options, options ...Option) (*Engine, error) {
	if store == nil || gen == nil || catalog == nil {
		return nil, errors.New("engine: store, generator and catalog are required")
	}
	policy, err := NewPolicy(opts.Bands)
	if err != nil {
		return nil, err
	}
	if opts.RecentWindow <= 0 || opts.RepliedWindow <= 0 {
		return nil, fmt.Errorf("engine: snapshot windows must be positive (recent=%d replied=%d)", opts.RecentWindow, opts.RepliedWindow)
	}
	e := &Engine{
		store:    store,
		gen:      gen,
		catalog:  catalog,
		gate:     NewGate(opts.Tiers),
		policy:   policy,
		targeter: NewTargeter(opts.Target),
		opts:     opts,
		src:      randsrc.New(0),
		now:      func() time.Time { return time.Now().UTC() },
		log:      zap.NewNop(),
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

type snapshot struct {
	agents  []models.Agent
	recent  []models.Post
	replied []models.Post
}

func (e *Engine) load(ctx context.Context) (snapshot, error) {
	var (
		s   snapshot
		err error
	)
	if s.agents, err = e.store.ListActiveAgents(ctx); err != nil {
		return snapshot{}, fmt.Errorf("list agents: %w", err)
	}
	if s.recent, err = e.store.ListRecentPosts(ctx, e.opts.RecentWindow); err != nil {
		return snapshot{}, fmt.Errorf("list recent posts: %w", err)
	}
	if s.replied, err = e.store.ListRepliedPosts(ctx, e.opts.RepliedWindow); err != nil {
		return snapshot{}, fmt.Errorf("list replied posts: %w", err)
	}
	return s, nil
}

// Run performs one pass over every agent. Only a failure to load the initial
// snapshots is returned as an error before any agent is processed; per-agent
// failures are logged and recorded in the report. A cancelled context stops
// the pass between agents and returns the partial report with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := newReport(e.now())
	snap, err := e.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	e.log.Debug("snapshots loaded",
		zap.Int("agents", len(snap.agents)),
		zap.Int("recent_posts", len(snap.recent)),
		zap.Int("replied_posts", len(snap.replied)),
	)

	for _, agent := range snap.agents {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = e.now()
			return report, err
		}
		report.add(e.turn(ctx, snap, agent, report))
	}

	report.FinishedAt = e.now()
	e.log.Info("run complete",
		zap.Int("considered", report.Considered),
		zap.Int("acted", report.Acted),
		zap.Int("no_action", report.NoAction),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration()),
	)
	return report, nil
}

func (e *Engine) turn(ctx context.Context, snap snapshot, agent models.Agent, report *Report) AgentResult {
	now := e.now()
	log := e.log.With(zap.String("agent", agent.Name))
	res := AgentResult{Agent: agent.Name, Verdict: e.gate.Check(agent, now, e.src)}
	if res.Verdict != Eligible {
		res.Outcome = OutcomeSkipped
		log.Debug("agent skipped", zap.String("verdict", string(res.Verdict)))
		return res
	}

	t := &turnState{engine: e, snap: snap, agent: agent}
	kind, ok, err := t.choose(ctx)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		log.Warn("action selection failed", zap.Error(err))
		return res
	}
	if !ok {
		res.Outcome = OutcomeNoAction
		res.Detail = "no ready action band"
		log.Debug("no action available")
		return res
	}
	res.Action = kind
	log = log.With(zap.String("action", string(kind)))

	done, err := t.perform(ctx, kind, now)
	report.Likes += done.likes
	report.Notifications += done.notifications
	res.PostID, res.Target, res.Detail = done.postID, done.target, done.detail
	if err != nil {
		if isNoAction(err) {
			res.Outcome = OutcomeNoAction
			res.Detail = err.Error()
			log.Debug("action abandoned", zap.Error(err))
			return res
		}
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		log.Warn("action failed", zap.Error(err))
		return res
	}
	res.Outcome = OutcomeActed

	swapped, err := e.store.RecordActivity(ctx, models.ActivityUpdate{
		Agent:     agent.Name,
		Previous:  agent.LastActivityAt,
		At:        now,
		PostDelta: done.postDelta,
	})
	switch {
	case err != nil:
		res.Error = fmt.Sprintf("record activity: %v", err)
		log.Warn("activity bookkeeping failed", zap.Error(err))
	case !swapped:
		report.LostActivityRace++
		log.Info("activity timestamp already advanced by another run")
	}
	log.Info("agent acted", zap.String("post_id", done.postID), zap.String("target", done.target))
	return res
}

var errNothingDone = errors.New("nothing done")

func isNoAction(err error) bool {
	return errors.Is(err, ErrNoCandidate) ||
		errors.Is(err, errNothingDone) ||
		errors.Is(err, content.ErrUnresolvedPlaceholder) ||
		errors.Is(err, content.ErrNoMovement)
}
