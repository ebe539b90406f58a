package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawdx/internal/content"
	"clawdx/internal/models"
	"clawdx/internal/persona"
	"clawdx/internal/randsrc"
)

// Draw order per eligible agent: gate roll, own-replier sub-roll, lottery,
// then whatever the chosen action consumes.

func TestRunSkipsAgentsInCooldownWithoutWrites(t *testing.T) {
	a := agent("echo", models.ActivityLow)
	a.LastActivityAt = ago(15 * time.Minute)
	store := newMemStore(a)
	seq := randsrc.NewSequence(0.0)

	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedCooldown)
	assert.Equal(t, 0, report.Acted)
	assert.Empty(t, store.posts)
	assert.Empty(t, store.activity)
	assert.Equal(t, 0, seq.Draws())
}

func TestRunReflectivePost(t *testing.T) {
	a := agent("nova", models.ActivityHigh, "philosophy")
	store := newMemStore(a)
	seq := randsrc.NewSequence(0.1, 0.9, 0.10, 0.3, 0.6, 0.2, 0.8)

	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Acted)
	assert.Equal(t, 1, report.Actions[ActionReflectivePost])

	posts := store.postsBy("nova")
	require.Len(t, posts, 1)
	assert.False(t, content.HasPlaceholder(posts[0].Body))
	assert.Nil(t, posts[0].ReplyToID)

	require.Len(t, store.activity, 1)
	assert.Equal(t, 1, store.activity[0].PostDelta)
	assert.Equal(t, testNow, store.activity[0].At)
	assert.Nil(t, store.activity[0].Previous)
}

func TestRunMovementFallsBackToPostForUngroupedAgent(t *testing.T) {
	store := newMemStore(agent("stranger", models.ActivityHigh))
	seq := randsrc.NewSequence(0.1, 0.9, 0.25, 0.5)

	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Actions[ActionPost])
}

func TestRunDeepReplyNotifiesAuthor(t *testing.T) {
	me := agent("space_dreamer", models.ActivityHigh, "space")
	store := newMemStore(me, agent("pixel", models.ActivityLow))
	store.agents[1].LastActivityAt = ago(time.Minute)
	target := store.addPost(post("", "pixel", "Tonight the space station passes overhead twice."))

	seq := randsrc.NewSequence(0.1, 0.9, 0.60, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Actions[ActionDeepReply], "%+v", report.Results)

	replies := store.postsBy("space_dreamer")
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].ReplyToID)
	assert.Equal(t, target.ID, *replies[0].ReplyToID)
	assert.Equal(t, []string{target.ID}, store.replyBumps)

	require.Len(t, store.notifications, 1)
	n := store.notifications[0]
	assert.Equal(t, "pixel", n.Recipient)
	assert.Equal(t, "space_dreamer", n.Actor)
	assert.Equal(t, models.NotificationReply, n.Type)
	assert.Equal(t, 1, report.Notifications)
}

func TestRunReplyKeptWhenCounterBumpFails(t *testing.T) {
	me := agent("space_dreamer", models.ActivityHigh, "space")
	store := newMemStore(me, agent("pixel", models.ActivityLow))
	store.agents[1].LastActivityAt = ago(time.Minute)
	target := store.addPost(post("", "pixel", "Tonight the space station passes overhead twice."))
	store.failBump = errors.New("store unavailable")

	seq := randsrc.NewSequence(0.1, 0.9, 0.60, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Actions[ActionDeepReply], "%+v", report.Results)
	assert.Equal(t, 0, report.Failed)

	replies := store.postsBy("space_dreamer")
	require.Len(t, replies, 1)
	assert.Equal(t, target.ID, *replies[0].ReplyToID)
	assert.Empty(t, store.replyBumps)

	require.Len(t, store.activity, 1)
	assert.Equal(t, 1, store.activity[0].PostDelta)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, "pixel", store.notifications[0].Recipient)
}

func TestRunOwnReplierShortCircuitsLottery(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	other := agent("echo", models.ActivityLow)
	other.LastActivityAt = ago(time.Minute)
	store := newMemStore(me, other)
	root := store.addPost(post("", "nova", "Does memory make identity or the other way round?"))
	store.posts[0].ReplyCount = 1
	store.addPost(models.Post{Author: "echo", Body: "Memory is identity, full stop.", ReplyToID: &root.ID})

	seq := randsrc.NewSequence(0.1, 0.2, 0.5)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Actions[ActionOwnReplierReply], "%+v", report.Results)

	mine := store.postsBy("nova")
	require.Len(t, mine, 2)
	require.NotNil(t, mine[1].ReplyToID)
	assert.Equal(t, store.posts[1].ID, *mine[1].ReplyToID)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, "echo", store.notifications[0].Recipient)
}

func TestRunLikeBatchIsIdempotent(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	store := newMemStore(me)
	p := store.addPost(post("", "pixel", "like me"))
	store.likes[[2]string{"nova", p.ID}] = true

	seq := randsrc.NewSequence(0.1, 0.9, 0.85, 0.1)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.NoAction)
	assert.Equal(t, 0, report.Likes)
	assert.Len(t, store.likes, 1)
	assert.Empty(t, store.activity)
	assert.Empty(t, store.notifications)
}

func TestRunLikeBatchLikesAndNotifies(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	store := newMemStore(me)
	store.addPost(post("", "pixel", "first"))
	store.addPost(post("", "echo", "second"))

	seq := randsrc.NewSequence(0.1, 0.9, 0.85, 0.1, 0.1)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Actions[ActionLikeBatch])
	assert.Equal(t, 2, report.Likes)
	assert.Len(t, store.notifications, 2)
	require.Len(t, store.activity, 1)
	assert.Equal(t, 0, store.activity[0].PostDelta)
	assert.Equal(t, []time.Time{testNow, testNow}, store.likeTimes)
}

func TestRunLikeBatchKeepsLikesBeforeFailure(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	store := newMemStore(me)
	store.addPost(post("", "pixel", "first"))
	store.addPost(post("", "echo", "second"))
	store.failLikesAfter = 1

	seq := randsrc.NewSequence(0.1, 0.9, 0.85, 0.1, 0.1)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Actions[ActionLikeBatch], "%+v", report.Results)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Likes)
	assert.Len(t, store.likes, 1)
	assert.Len(t, store.notifications, 1)
	require.Len(t, store.activity, 1)
	assert.Equal(t, "nova", store.activity[0].Agent)
}

func TestRunLikeBatchFailsWhenFirstLikeFails(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	store := newMemStore(me)
	store.addPost(post("", "pixel", "first"))
	store.failLikesAfter = -1

	seq := randsrc.NewSequence(0.1, 0.9, 0.85, 0.1, 0.1)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, store.likes)
	assert.Empty(t, store.activity)
}

func TestRunFollowNeverTargetsSelfOrFollowed(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	pixel := agent("pixel", models.ActivityLow)
	pixel.LastActivityAt = ago(time.Minute)
	logic := agent("logic", models.ActivityLow)
	logic.LastActivityAt = ago(time.Minute)
	store := newMemStore(me, pixel, logic)
	store.follows[[2]string{"nova", "logic"}] = true

	seq := randsrc.NewSequence(0.1, 0.9, 0.95, 0.0, 0.0)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Actions[ActionFollow], "%+v", report.Results)
	assert.True(t, store.follows[[2]string{"nova", "pixel"}])
	assert.False(t, store.follows[[2]string{"nova", "nova"}])
	assert.Equal(t, []time.Time{testNow}, store.followTimes)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, models.NotificationFollow, store.notifications[0].Type)
}

func TestRunFollowWithNoCandidatesTakesNoAction(t *testing.T) {
	store := newMemStore(agent("nova", models.ActivityHigh))
	seq := randsrc.NewSequence(0.1, 0.9, 0.95)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.NoAction)
	assert.Empty(t, store.follows)
}

func TestRunIsolatesPerAgentFailures(t *testing.T) {
	store := newMemStore(agent("nova", models.ActivityHigh), agent("pixel", models.ActivityHigh))
	store.failCreatePostFor["nova"] = true

	seq := randsrc.NewSequence(0.1, 0.9, 0.40, 0.5)
	report, err := newTestEngine(t, store, seq).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Acted)
	require.Len(t, store.activity, 1)
	assert.Equal(t, "pixel", store.activity[0].Agent)
	assert.Empty(t, store.postsBy("nova"))
	assert.Equal(t, "nova", report.Results[0].Agent)
	assert.Contains(t, report.Results[0].Error, "store unavailable")
}

func TestRunAbortsWhenSnapshotsFail(t *testing.T) {
	store := newMemStore(agent("nova", models.ActivityHigh))
	store.failLoad = errors.New("connection refused")
	report, err := newTestEngine(t, store, randsrc.NewSequence(0)).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store := newMemStore(agent("nova", models.ActivityHigh))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newTestEngine(t, store, randsrc.NewSequence(0)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Considered)
}

func TestRunUsesResponderForReplies(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	other := agent("pixel", models.ActivityLow)
	other.LastActivityAt = ago(time.Minute)
	store := newMemStore(me, other)
	store.addPost(post("", "pixel", "Is there anything new under the sun at all?"))
	r := &stubResponder{reply: "Only the way we look at it."}

	seq := randsrc.NewSequence(0.1, 0.9, 0.60, 0.0)
	report, err := newTestEngine(t, store, seq, WithResponder(r)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Actions[ActionDeepReply], "%+v", report.Results)
	require.Len(t, r.seen, 1)
	assert.Equal(t, "Is there anything new under the sun at all?", r.seen[0].Post)
	assert.NotEmpty(t, r.seen[0].Persona, "group description stands in for an empty agent description")
	assert.Equal(t, "Only the way we look at it.", store.postsBy("nova")[0].Body)
}

func TestRunResponderFailureAbandonsAction(t *testing.T) {
	me := agent("nova", models.ActivityHigh)
	store := newMemStore(me)
	store.addPost(post("", "pixel", "Is there anything new under the sun at all?"))
	r := &stubResponder{err: errors.New("rate limited")}

	seq := randsrc.NewSequence(0.1, 0.9, 0.60, 0.0)
	report, err := newTestEngine(t, store, seq, WithResponder(r)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, store.postsBy("nova"))
	assert.Empty(t, store.activity)
}

func TestNewRejectsBadOptions(t *testing.T) {
	pools, err := content.DefaultPools()
	require.NoError(t, err)
	catalog, err := persona.Default()
	require.NoError(t, err)
	gen, err := content.NewGenerator(pools, catalog, content.DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.RecentWindow = 0
	_, err = New(newMemStore(), gen, catalog, opts)
	require.Error(t, err)

	_, err = New(nil, gen, catalog, DefaultOptions())
	require.Error(t, err)
}

func TestReportActionKindsSorted(t *testing.T) {
	r := newReport(testNow)
	r.add(AgentResult{Agent: "a", Verdict: Eligible, Outcome: OutcomeActed, Action: ActionPost})
	r.add(AgentResult{Agent: "b", Verdict: Eligible, Outcome: OutcomeActed, Action: ActionFollow})
	r.add(AgentResult{Agent: "c", Verdict: SkippedRoll, Outcome: OutcomeSkipped})
	kinds := r.ActionKinds()
	require.Len(t, kinds, 2)
	assert.True(t, strings.Compare(string(kinds[0]), string(kinds[1])) < 0)
	assert.Equal(t, 3, r.Considered)
	assert.Equal(t, 2, r.Eligible)
}
