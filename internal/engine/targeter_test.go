package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"clawdx/internal/models"
	"clawdx/internal/randsrc"
)

func post(id, author, body string) models.Post {
	return models.Post{ID: id, Author: author, Body: body}
}

func TestDeepReplyPrefersInterestMatch(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	a := agent("space_dreamer", models.ActivityHigh, "space", "ai")
	recent := []models.Post{
		post("p1", "nova", "Thinking about breakfast options this morning"),
		post("p2", "pixel", "The Space telescope images today are unreal"),
	}
	for _, draw := range []float64{0.0, 0.5, 0.99} {
		got, err := tg.DeepReply(randsrc.NewSequence(draw), a, recent)
		require.NoError(t, err)
		assert.Equal(t, "p2", got.ID)
	}
}

func TestDeepReplyMatchesHashtags(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	a := agent("x", models.ActivityHigh, "robotics")
	tagged := post("p2", "pixel", "Look what I built over the weekend at last")
	tagged.Hashtags = []string{"robotics"}
	recent := []models.Post{post("p1", "nova", "Nothing relevant in this long enough body"), tagged}
	got, err := tg.DeepReply(randsrc.NewSequence(0.0), a, recent)
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
}

func TestDeepReplyFiltersOwnAndShortPosts(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	a := agent("nova", models.ActivityHigh)
	recent := []models.Post{
		post("own", "nova", "My own long post that should never be picked"),
		post("short", "pixel", "too short"),
		post("exact", "pixel", "exactly twenty chars"),
	}
	_, err := tg.DeepReply(randsrc.NewSequence(0.0), a, recent)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestDeepReplyFallbackUsesFirstCandidates(t *testing.T) {
	opts := DefaultTargetOptions()
	opts.FallbackPool = 2
	tg := NewTargeter(opts)
	a := agent("nova", models.ActivityHigh, "gardening")
	var recent []models.Post
	for i := 0; i < 5; i++ {
		recent = append(recent, post(fmt.Sprintf("p%d", i), "pixel", "A perfectly ordinary post about nothing"))
	}
	got, err := tg.DeepReply(randsrc.NewSequence(0.99), a, recent)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}

func TestContinuationExcludesOwnPosts(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	a := agent("nova", models.ActivityHigh)
	_, err := tg.Continuation(randsrc.NewSequence(0), a, []models.Post{post("p1", "nova", "mine")})
	assert.ErrorIs(t, err, ErrNoCandidate)

	got, err := tg.Continuation(randsrc.NewSequence(0.9), a, []models.Post{post("p1", "nova", "mine"), post("p2", "byte", "theirs")})
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
}

func TestOwnReplierSkipsSelfReplies(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	a := agent("nova", models.ActivityHigh)
	replies := []models.Post{post("r1", "nova", "me again"), post("r2", "echo", "hello")}
	got, err := tg.OwnReplier(randsrc.NewSequence(0.0), a, replies)
	require.NoError(t, err)
	assert.Equal(t, "r2", got.ID)

	_, err = tg.OwnReplier(randsrc.NewSequence(0.0), a, replies[:1])
	assert.ErrorIs(t, err, ErrNoCandidate)
	_, err = tg.OwnPost(randsrc.NewSequence(0.0), nil)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func groups(m map[string]string) func(string) string {
	return func(name string) string { return m[name] }
}

func TestFollowPrefersSameGroup(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	me := agent("nova", models.ActivityHigh)
	agents := []models.Agent{me, agent("pixel", models.ActivityHigh), agent("logic", models.ActivityHigh)}
	groupOf := groups(map[string]string{"nova": "reflective", "logic": "reflective", "pixel": "builders"})

	got, err := tg.Follow(randsrc.NewSequence(0.5, 0.0), me, agents, nil, groupOf)
	require.NoError(t, err)
	assert.Equal(t, "logic", got.Name)

	got, err = tg.Follow(randsrc.NewSequence(0.7, 0.0), me, agents, nil, groupOf)
	require.NoError(t, err)
	assert.Equal(t, "pixel", got.Name, "a failed group roll falls back to all candidates")
}

func TestFollowExcludesSelfAndFollowed(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	me := agent("nova", models.ActivityHigh)
	agents := []models.Agent{me, agent("pixel", models.ActivityHigh)}
	_, err := tg.Follow(randsrc.NewSequence(0), me, agents, map[string]bool{"pixel": true}, groups(nil))
	assert.ErrorIs(t, err, ErrNoCandidate)

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "n")
		var all []models.Agent
		following := map[string]bool{}
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("a%d", i)
			all = append(all, agent(name, models.ActivityMedium))
			if rapid.Bool().Draw(rt, "followed_"+name) {
				following[name] = true
			}
		}
		self := all[rapid.IntRange(0, n-1).Draw(rt, "self")]
		src := randsrc.New(rapid.Uint64Range(1, 1<<32).Draw(rt, "seed"))
		got, err := tg.Follow(src, self, all, following, groups(nil))
		if err != nil {
			return
		}
		if got.Name == self.Name || following[got.Name] {
			rt.Fatalf("picked %s (self=%s following=%v)", got.Name, self.Name, following)
		}
	})
}

func TestLikeBatchLooksAtFirstThreeOthers(t *testing.T) {
	tg := NewTargeter(DefaultTargetOptions())
	a := agent("nova", models.ActivityHigh)
	recent := []models.Post{
		post("own", "nova", "x"),
		post("p1", "a", "x"),
		post("p2", "b", "x"),
		post("p3", "c", "x"),
		post("p4", "d", "x"),
	}
	got := tg.LikeBatch(randsrc.NewSequence(0.1, 0.9, 0.2), a, recent)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p3", got[1].ID)

	assert.Empty(t, tg.LikeBatch(randsrc.NewSequence(0.9), a, recent))
}
