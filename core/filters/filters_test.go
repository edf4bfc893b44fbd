package filters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/botflow/core"
)

func messageSub(id int64, chatID int64, text string) *core.SubUpdate {
	return &core.SubUpdate{
		ID:   id,
		Kind: core.KindMessage,
		Payload: &core.Message{
			MessageID: id,
			Chat:      core.Chat{ID: chatID},
			Date:      time.Now().Unix(),
			Text:      text,
		},
		Extra: make(core.Extra),
	}
}

func pollSub(id int64) *core.SubUpdate {
	return &core.SubUpdate{
		ID:      id,
		Kind:    core.KindPoll,
		Payload: &core.Poll{ID: "p1"},
		Extra:   make(core.Extra),
	}
}

func TestCommand(t *testing.T) {
	f := Command("ping")
	ctx := context.Background()

	res, err := f(ctx, messageSub(1, 100, "/ping all systems"))
	require.NoError(t, err)
	require.True(t, res.Pass)
	assert.Equal(t, "ping", res.Extra[ExtraCommand])
	assert.Equal(t, "all systems", res.Extra[ExtraArgs])

	res, err = f(ctx, messageSub(2, 100, "/ping@mybot"))
	require.NoError(t, err)
	assert.True(t, res.Pass, "command with @botname suffix should match")

	res, err = f(ctx, messageSub(3, 100, "/status"))
	require.NoError(t, err)
	assert.False(t, res.Pass, "different command should not match")

	res, err = f(ctx, messageSub(4, 100, "just chatting"))
	require.NoError(t, err)
	assert.False(t, res.Pass, "plain text should not match")

	res, err = f(ctx, pollSub(5))
	require.NoError(t, err)
	assert.False(t, res.Pass, "non-message payload should not match")
}

func TestChatAllowed(t *testing.T) {
	f := ChatAllowed(100, 200)
	ctx := context.Background()

	res, err := f(ctx, messageSub(1, 100, "hi"))
	require.NoError(t, err)
	assert.True(t, res.Pass)

	res, err = f(ctx, messageSub(2, 999, "hi"))
	require.NoError(t, err)
	assert.False(t, res.Pass)

	res, err = f(ctx, pollSub(3))
	require.NoError(t, err)
	assert.False(t, res.Pass, "payload without a chat is skipped")
}

func TestFresh(t *testing.T) {
	f := Fresh(5 * time.Minute)
	ctx := context.Background()

	res, err := f(ctx, messageSub(1, 100, "hi"))
	require.NoError(t, err)
	assert.True(t, res.Pass)

	stale := messageSub(2, 100, "hi")
	stale.Payload.(*core.Message).Date = time.Now().Add(-time.Hour).Unix()
	res, err = f(ctx, stale)
	require.NoError(t, err)
	assert.False(t, res.Pass)

	res, err = f(ctx, pollSub(3))
	require.NoError(t, err)
	assert.True(t, res.Pass, "payload without a timestamp passes")
}

func TestDedup(t *testing.T) {
	f := Dedup()
	ctx := context.Background()

	res, err := f(ctx, messageSub(42, 100, "hi"))
	require.NoError(t, err)
	assert.True(t, res.Pass)

	res, err = f(ctx, messageSub(42, 100, "hi again"))
	require.NoError(t, err)
	assert.False(t, res.Pass, "same update id must be deduplicated")

	res, err = f(ctx, messageSub(43, 100, "hi"))
	require.NoError(t, err)
	assert.True(t, res.Pass)
}

func TestThrottle(t *testing.T) {
	f := Throttle(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := f(ctx, messageSub(int64(i), 100, "hi"))
		require.NoError(t, err)
		assert.True(t, res.Pass, "hit %d within budget", i)
	}

	res, err := f(ctx, messageSub(3, 100, "hi"))
	require.NoError(t, err)
	assert.False(t, res.Pass, "over budget for chat 100")

	res, err = f(ctx, messageSub(4, 200, "hi"))
	require.NoError(t, err)
	assert.True(t, res.Pass, "other chats unaffected")

	res, err = f(ctx, pollSub(5))
	require.NoError(t, err)
	assert.True(t, res.Pass, "payload without a chat passes")
}

func TestAll(t *testing.T) {
	f := All(Command("ping"), ChatAllowed(100))
	ctx := context.Background()

	res, err := f(ctx, messageSub(1, 100, "/ping now"))
	require.NoError(t, err)
	require.True(t, res.Pass)
	assert.Equal(t, "ping", res.Extra[ExtraCommand], "enrichment survives combination")

	res, err = f(ctx, messageSub(2, 999, "/ping now"))
	require.NoError(t, err)
	assert.False(t, res.Pass)
}

func TestAny(t *testing.T) {
	f := Any(Command("ping"), Command("status"))
	ctx := context.Background()

	res, err := f(ctx, messageSub(1, 100, "/status"))
	require.NoError(t, err)
	require.True(t, res.Pass)
	assert.Equal(t, "status", res.Extra[ExtraCommand])

	res, err = f(ctx, messageSub(2, 100, "/restart"))
	require.NoError(t, err)
	assert.False(t, res.Pass)
}
