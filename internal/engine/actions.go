package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clawdx/internal/content"
	"clawdx/internal/models"
	"clawdx/internal/randsrc"
	"clawdx/internal/textgen"
)

// turnState carries one agent's turn. Lookups that need the store are made
// lazily and at most once.
type turnState struct {
	engine *Engine
	snap   snapshot
	agent  models.Agent

	ownReplied []models.Post

	following       map[string]bool
	followingLoaded bool
	err             error
}

type performed struct {
	postID        string
	target        string
	detail        string
	postDelta     int
	likes         int
	notifications int
}

func (t *turnState) choose(ctx context.Context) (ActionKind, bool, error) {
	e := t.engine
	if randsrc.Chance(e.src, e.opts.OwnReplierChance) {
		own, err := e.store.ListRepliedPostsByAuthor(ctx, t.agent.Name, e.opts.Target.OwnRepliesToFetch)
		if err != nil {
			return "", false, fmt.Errorf("list own replied posts: %w", err)
		}
		if len(own) > 0 {
			t.ownReplied = own
			return ActionOwnReplierReply, true, nil
		}
	}

	kind, ok := e.policy.Select(e.src.Float64(), func(kind ActionKind) bool { return t.ready(ctx, kind) })
	if t.err != nil {
		return "", false, t.err
	}
	return kind, ok, nil
}

func (t *turnState) ready(ctx context.Context, kind ActionKind) bool {
	e := t.engine
	switch kind {
	case ActionReflectivePost, ActionViralPost, ActionPost:
		return true
	case ActionMovementPost:
		return e.gen.HasMovement(t.agent)
	case ActionDeepReply:
		return len(e.targeter.deepReplyCandidates(t.agent, t.snap.recent)) > 0
	case ActionThreadContinuation:
		return len(e.targeter.continuationCandidates(t.agent, t.snap.replied)) > 0
	case ActionLikeBatch:
		return len(e.targeter.likeCandidates(t.agent, t.snap.recent)) > 0
	case ActionFollow:
		following, err := t.loadFollowing(ctx)
		if err != nil {
			t.err = err
			return false
		}
		return len(e.targeter.followCandidates(t.agent, t.snap.agents, following)) > 0
	}
	return false
}

func (t *turnState) loadFollowing(ctx context.Context) (map[string]bool, error) {
	if t.followingLoaded {
		return t.following, nil
	}
	names, err := t.engine.store.ListFollowing(ctx, t.agent.Name)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	t.following = make(map[string]bool, len(names))
	for _, n := range names {
		t.following[n] = true
	}
	t.followingLoaded = true
	return t.following, nil
}

func (t *turnState) perform(ctx context.Context, kind ActionKind, now time.Time) (performed, error) {
	e := t.engine
	switch kind {
	case ActionReflectivePost:
		return t.post(ctx, now, e.gen.ReflectivePost)
	case ActionViralPost:
		return t.post(ctx, now, e.gen.ViralPost)
	case ActionMovementPost:
		return t.post(ctx, now, e.gen.MovementPost)
	case ActionPost:
		return t.post(ctx, now, e.gen.OriginalPost)
	case ActionDeepReply:
		target, err := e.targeter.DeepReply(e.src, t.agent, t.snap.recent)
		if err != nil {
			return performed{}, err
		}
		return t.reply(ctx, now, target, "")
	case ActionThreadContinuation:
		target, err := e.targeter.Continuation(e.src, t.agent, t.snap.replied)
		if err != nil {
			return performed{}, err
		}
		return t.reply(ctx, now, target, "")
	case ActionOwnReplierReply:
		own, err := e.targeter.OwnPost(e.src, t.ownReplied)
		if err != nil {
			return performed{}, err
		}
		replies, err := e.store.ListReplies(ctx, own.ID, e.opts.Target.OwnRepliesToFetch)
		if err != nil {
			return performed{}, fmt.Errorf("list replies to %s: %w", own.ID, err)
		}
		target, err := e.targeter.OwnReplier(e.src, t.agent, replies)
		if err != nil {
			return performed{}, err
		}
		return t.reply(ctx, now, target, own.Body)
	case ActionLikeBatch:
		return t.likeBatch(ctx, now)
	case ActionFollow:
		return t.follow(ctx, now)
	}
	return performed{}, fmt.Errorf("unknown action %q", kind)
}

type draftFunc func(randsrc.Source, models.Agent) (content.Draft, error)

func (t *turnState) post(ctx context.Context, now time.Time, generate draftFunc) (performed, error) {
	d, err := generate(t.engine.src, t.agent)
	if err != nil {
		return performed{}, err
	}
	p, err := t.create(ctx, now, d.Body, nil)
	if err != nil {
		return performed{}, err
	}
	return performed{postID: p.ID, detail: describeDraft(d), postDelta: 1}, nil
}

func describeDraft(d content.Draft) string {
	switch {
	case d.Style != "" && d.Category != "":
		return d.Category + "/" + d.Style
	case d.Style != "":
		return d.Style
	default:
		return d.Category
	}
}

// reply answers target. parent is the body of the post target replies to,
// when that context is known.
func (t *turnState) reply(ctx context.Context, now time.Time, target models.Post, parent string) (performed, error) {
	e := t.engine
	var (
		body   string
		detail string
	)
	if e.responder != nil {
		text, err := e.responder.Respond(ctx, textgen.Request{
			DisplayName: t.agent.DisplayName,
			Persona:     t.persona(),
			Post:        target.Body,
			Parent:      parent,
		})
		if err != nil {
			return performed{target: target.ID}, fmt.Errorf("%s responder: %w", e.responder.Name(), err)
		}
		body, detail = text, e.responder.Name()
	} else {
		d, err := e.gen.Response(e.src, t.agent, target)
		if err != nil {
			return performed{target: target.ID}, err
		}
		body, detail = d.Body, d.Style
	}

	replyTo := target.ID
	p, err := t.create(ctx, now, body, &replyTo)
	if err != nil {
		return performed{target: target.ID}, err
	}
	done := performed{postID: p.ID, target: target.ID, detail: detail, postDelta: 1}
	if err := e.store.IncrementReplyCount(ctx, target.ID); err != nil {
		e.log.Warn("reply count not bumped",
			zap.String("agent", t.agent.Name),
			zap.String("post", target.ID),
			zap.Error(err))
	}
	done.notifications += t.notify(ctx, now, target.Author, models.NotificationReply, p.ID)
	return done, nil
}

func (t *turnState) create(ctx context.Context, now time.Time, body string, replyTo *string) (*models.Post, error) {
	if content.HasPlaceholder(body) {
		return nil, fmt.Errorf("%w: %q", content.ErrUnresolvedPlaceholder, body)
	}
	p, err := t.engine.store.CreatePost(ctx, models.NewPost{
		Author:    t.agent.Name,
		Body:      body,
		ReplyToID: replyTo,
		Created:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (t *turnState) likeBatch(ctx context.Context, now time.Time) (performed, error) {
	e := t.engine
	picks := e.targeter.LikeBatch(e.src, t.agent, t.snap.recent)
	if len(picks) == 0 {
		return performed{}, fmt.Errorf("like batch: %w", errNothingDone)
	}
	var done performed
	for _, p := range picks {
		created, err := e.store.CreateLike(ctx, models.Like{Agent: t.agent.Name, PostID: p.ID, Created: now})
		if err != nil {
			if done.likes == 0 {
				return done, fmt.Errorf("like %s: %w", p.ID, err)
			}
			e.log.Warn("like batch cut short",
				zap.String("agent", t.agent.Name),
				zap.String("post", p.ID),
				zap.Error(err))
			break
		}
		if !created {
			continue
		}
		done.likes++
		done.target = p.ID
		done.notifications += t.notify(ctx, now, p.Author, models.NotificationLike, p.ID)
	}
	if done.likes == 0 {
		return done, fmt.Errorf("like batch: already liked: %w", errNothingDone)
	}
	done.detail = fmt.Sprintf("%d liked", done.likes)
	return done, nil
}

func (t *turnState) follow(ctx context.Context, now time.Time) (performed, error) {
	e := t.engine
	following, err := t.loadFollowing(ctx)
	if err != nil {
		return performed{}, err
	}
	target, err := e.targeter.Follow(e.src, t.agent, t.snap.agents, following, e.catalog.GroupName)
	if err != nil {
		return performed{}, err
	}
	created, err := e.store.CreateFollow(ctx, models.Follow{Follower: t.agent.Name, Following: target.Name, Created: now})
	if err != nil {
		return performed{target: target.Name}, fmt.Errorf("follow %s: %w", target.Name, err)
	}
	if !created {
		return performed{target: target.Name}, fmt.Errorf("follow %s: already following: %w", target.Name, errNothingDone)
	}
	done := performed{target: target.Name}
	done.notifications += t.notify(ctx, now, target.Name, models.NotificationFollow, "")
	return done, nil
}

// notify tells recipient about the action. Self-interactions never notify,
// and a failed notification does not undo the action.
func (t *turnState) notify(ctx context.Context, now time.Time, recipient, kind, postID string) int {
	if recipient == "" || recipient == t.agent.Name {
		return 0
	}
	err := t.engine.store.CreateNotification(ctx, models.NewNotification{
		Recipient: recipient,
		Actor:     t.agent.Name,
		Type:      kind,
		PostID:    postID,
		Created:   now,
	})
	if err != nil {
		t.engine.log.Warn("notification failed",
			zap.String("agent", t.agent.Name),
			zap.String("recipient", recipient),
			zap.String("type", kind),
			zap.Error(err),
		)
		return 0
	}
	return 1
}

func (t *turnState) persona() string {
	if t.agent.Description != "" {
		return t.agent.Description
	}
	if g, ok := t.engine.catalog.GroupOf(t.agent.Name); ok {
		return g.Description
	}
	return ""
}
