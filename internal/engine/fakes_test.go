package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clawdx/internal/content"
	"clawdx/internal/models"
	"clawdx/internal/persona"
	"clawdx/internal/randsrc"
	"clawdx/internal/textgen"
)

// memStore is an in-memory Store that records every write.
type memStore struct {
	agents        []models.Agent
	posts         []models.Post
	likes         map[[2]string]bool
	follows       map[[2]string]bool
	notifications []models.NewNotification
	activity      []models.ActivityUpdate
	replyBumps    []string
	likeTimes     []time.Time
	followTimes   []time.Time

	failCreatePostFor map[string]bool
	failLoad          error
	failBump          error
	failLikesAfter    int
	likeCalls         int
	nextID            int
}

func newMemStore(agents ...models.Agent) *memStore {
	return &memStore{
		agents:            agents,
		likes:             map[[2]string]bool{},
		follows:           map[[2]string]bool{},
		failCreatePostFor: map[string]bool{},
	}
}

func (m *memStore) addPost(p models.Post) models.Post {
	if p.ID == "" {
		m.nextID++
		p.ID = fmt.Sprintf("p%d", m.nextID)
	}
	m.posts = append(m.posts, p)
	return p
}

func (m *memStore) ListActiveAgents(context.Context) ([]models.Agent, error) {
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	return append([]models.Agent(nil), m.agents...), nil
}

func (m *memStore) sorted(filter func(models.Post) bool, limit int) []models.Post {
	var out []models.Post
	for i := len(m.posts) - 1; i >= 0; i-- {
		if filter(m.posts[i]) {
			out = append(out, m.posts[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memStore) ListRecentPosts(_ context.Context, limit int) ([]models.Post, error) {
	return m.sorted(func(models.Post) bool { return true }, limit), nil
}

func (m *memStore) ListRepliedPosts(_ context.Context, limit int) ([]models.Post, error) {
	return m.sorted(func(p models.Post) bool { return p.ReplyCount > 0 }, limit), nil
}

func (m *memStore) ListRepliedPostsByAuthor(_ context.Context, author string, limit int) ([]models.Post, error) {
	return m.sorted(func(p models.Post) bool { return p.Author == author && p.ReplyCount > 0 }, limit), nil
}

func (m *memStore) ListReplies(_ context.Context, postID string, limit int) ([]models.Post, error) {
	return m.sorted(func(p models.Post) bool { return p.ReplyToID != nil && *p.ReplyToID == postID }, limit), nil
}

func (m *memStore) ListFollowing(_ context.Context, agent string) ([]string, error) {
	var out []string
	for edge := range m.follows {
		if edge[0] == agent {
			out = append(out, edge[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) CreatePost(_ context.Context, in models.NewPost) (*models.Post, error) {
	if m.failCreatePostFor[in.Author] {
		return nil, errors.New("store unavailable")
	}
	p := m.addPost(models.Post{Author: in.Author, Body: in.Body, ReplyToID: in.ReplyToID, Created: in.Created})
	return &p, nil
}

func (m *memStore) IncrementReplyCount(_ context.Context, postID string) error {
	if m.failBump != nil {
		return m.failBump
	}
	for i := range m.posts {
		if m.posts[i].ID == postID {
			m.posts[i].ReplyCount++
			m.replyBumps = append(m.replyBumps, postID)
			return nil
		}
	}
	return errors.New("no such post")
}

func (m *memStore) CreateLike(_ context.Context, in models.Like) (bool, error) {
	m.likeCalls++
	if m.failLikesAfter != 0 && m.likeCalls > m.failLikesAfter {
		return false, errors.New("store unavailable")
	}
	m.likeTimes = append(m.likeTimes, in.Created)
	key := [2]string{in.Agent, in.PostID}
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	return true, nil
}

func (m *memStore) CreateFollow(_ context.Context, in models.Follow) (bool, error) {
	if in.Follower == in.Following {
		return false, errors.New("self follow")
	}
	m.followTimes = append(m.followTimes, in.Created)
	key := [2]string{in.Follower, in.Following}
	if m.follows[key] {
		return false, nil
	}
	m.follows[key] = true
	return true, nil
}

func (m *memStore) CreateNotification(_ context.Context, in models.NewNotification) error {
	m.notifications = append(m.notifications, in)
	return nil
}

func (m *memStore) RecordActivity(_ context.Context, upd models.ActivityUpdate) (bool, error) {
	m.activity = append(m.activity, upd)
	return true, nil
}

func (m *memStore) postsBy(author string) []models.Post {
	var out []models.Post
	for _, p := range m.posts {
		if p.Author == author {
			out = append(out, p)
		}
	}
	return out
}

type stubResponder struct {
	reply string
	err   error
	seen  []textgen.Request
}

func (s *stubResponder) Name() string { return "stub" }

func (s *stubResponder) Respond(_ context.Context, req textgen.Request) (string, error) {
	s.seen = append(s.seen, req)
	return s.reply, s.err
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func agent(name string, level models.ActivityLevel, interests ...string) models.Agent {
	return models.Agent{
		Name:            name,
		DisplayName:     name,
		ActivityLevel:   level,
		AutonomyEnabled: true,
		IsActive:        true,
		Interests:       interests,
	}
}

func newTestEngine(t *testing.T, store Store, src randsrc.Source, opts ...Option) *Engine {
	t.Helper()
	pools, err := content.DefaultPools()
	require.NoError(t, err)
	catalog, err := persona.Default()
	require.NoError(t, err)
	gen, err := content.NewGenerator(pools, catalog, content.DefaultOptions())
	require.NoError(t, err)
	all := append([]Option{WithRand(src), WithClock(func() time.Time { return testNow })}, opts...)
	e, err := New(store, gen, catalog, DefaultOptions(), all...)
	require.NoError(t, err)
	return e
}
