package engine

import (
	"errors"
	"strings"
	"unicode/utf8"

	"clawdx/internal/models"
	"clawdx/internal/randsrc"
)

// ErrNoCandidate means a targeting step had nothing to choose from.
var ErrNoCandidate = errors.New("no candidate")

type TargetOptions struct {
	// MinReplyBody is the body length a post must exceed to get a deep reply.
	MinReplyBody int
	// FallbackPool bounds the uniform pick when no candidate matches interests.
	FallbackPool      int
	SameGroupChance   float64
	LikeBatchSize     int
	LikeChance        float64
	OwnRepliesToFetch int
}

func DefaultTargetOptions() TargetOptions {
	return TargetOptions{
		MinReplyBody:      20,
		FallbackPool:      20,
		SameGroupChance:   0.6,
		LikeBatchSize:     3,
		LikeChance:        0.5,
		OwnRepliesToFetch: 10,
	}
}

type Targeter struct {
	opts TargetOptions
}

func NewTargeter(opts TargetOptions) Targeter {
	return Targeter{opts: opts}
}

func (t Targeter) deepReplyCandidates(agent models.Agent, recent []models.Post) []models.Post {
	out := make([]models.Post, 0, len(recent))
	for _, p := range recent {
		if p.Author == agent.Name {
			continue
		}
		if utf8.RuneCountInString(p.Body) <= t.opts.MinReplyBody {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DeepReply picks a post to answer. Posts mentioning one of the agent's
// interests win over the rest; without a match the pick is uniform over the
// first FallbackPool candidates.
func (t Targeter) DeepReply(src randsrc.Source, agent models.Agent, recent []models.Post) (models.Post, error) {
	candidates := t.deepReplyCandidates(agent, recent)
	if len(candidates) == 0 {
		return models.Post{}, ErrNoCandidate
	}
	if len(agent.Interests) > 0 {
		var matched []models.Post
		for _, p := range candidates {
			if matchesInterests(p, agent.Interests) {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			return randsrc.Pick(src, matched), nil
		}
	}
	if t.opts.FallbackPool > 0 && len(candidates) > t.opts.FallbackPool {
		candidates = candidates[:t.opts.FallbackPool]
	}
	return randsrc.Pick(src, candidates), nil
}

func matchesInterests(p models.Post, interests []string) bool {
	body := strings.ToLower(p.Body)
	for _, i := range interests {
		i = strings.ToLower(strings.TrimSpace(i))
		if i == "" {
			continue
		}
		if strings.Contains(body, i) {
			return true
		}
		for _, tag := range p.Hashtags {
			if strings.Contains(strings.ToLower(tag), i) {
				return true
			}
		}
	}
	return false
}

func (t Targeter) continuationCandidates(agent models.Agent, replied []models.Post) []models.Post {
	out := make([]models.Post, 0, len(replied))
	for _, p := range replied {
		if p.Author != agent.Name {
			out = append(out, p)
		}
	}
	return out
}

// Continuation picks uniformly among reply-bearing posts by other agents.
func (t Targeter) Continuation(src randsrc.Source, agent models.Agent, replied []models.Post) (models.Post, error) {
	candidates := t.continuationCandidates(agent, replied)
	if len(candidates) == 0 {
		return models.Post{}, ErrNoCandidate
	}
	return randsrc.Pick(src, candidates), nil
}

// OwnPost picks one of the agent's replied-to posts.
func (t Targeter) OwnPost(src randsrc.Source, own []models.Post) (models.Post, error) {
	if len(own) == 0 {
		return models.Post{}, ErrNoCandidate
	}
	return randsrc.Pick(src, own), nil
}

// OwnReplier picks a reply, written by someone else, to answer.
func (t Targeter) OwnReplier(src randsrc.Source, agent models.Agent, replies []models.Post) (models.Post, error) {
	candidates := make([]models.Post, 0, len(replies))
	for _, r := range replies {
		if r.Author != agent.Name {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return models.Post{}, ErrNoCandidate
	}
	return randsrc.Pick(src, candidates), nil
}

func (t Targeter) followCandidates(agent models.Agent, agents []models.Agent, following map[string]bool) []models.Agent {
	out := make([]models.Agent, 0, len(agents))
	for _, a := range agents {
		if a.Name == agent.Name || following[a.Name] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Follow picks an agent to follow, never the agent itself or someone already
// followed. groupOf maps a name to its persona group, "" for none.
func (t Targeter) Follow(src randsrc.Source, agent models.Agent, agents []models.Agent, following map[string]bool, groupOf func(string) string) (models.Agent, error) {
	candidates := t.followCandidates(agent, agents, following)
	if len(candidates) == 0 {
		return models.Agent{}, ErrNoCandidate
	}
	if group := groupOf(agent.Name); group != "" {
		var same []models.Agent
		for _, c := range candidates {
			if groupOf(c.Name) == group {
				same = append(same, c)
			}
		}
		if len(same) > 0 && randsrc.Chance(src, t.opts.SameGroupChance) {
			return randsrc.Pick(src, same), nil
		}
	}
	return randsrc.Pick(src, candidates), nil
}

func (t Targeter) likeCandidates(agent models.Agent, recent []models.Post) []models.Post {
	out := make([]models.Post, 0, t.opts.LikeBatchSize)
	for _, p := range recent {
		if len(out) == t.opts.LikeBatchSize {
			break
		}
		if p.Author != agent.Name {
			out = append(out, p)
		}
	}
	return out
}

// LikeBatch looks at the first LikeBatchSize posts by others and keeps each
// with probability LikeChance. The result may be empty.
func (t Targeter) LikeBatch(src randsrc.Source, agent models.Agent, recent []models.Post) []models.Post {
	var out []models.Post
	for _, p := range t.likeCandidates(agent, recent) {
		if randsrc.Chance(src, t.opts.LikeChance) {
			out = append(out, p)
		}
	}
	return out
}
