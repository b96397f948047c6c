package chat

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranscriptStore(t *testing.T) *TranscriptStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewTranscriptStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestTranscriptAppendAndList(t *testing.T) {
	store := newTranscriptStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", Message{Role: RoleUser, Body: "hola"}))
	require.NoError(t, store.Append(ctx, "conv-1", Message{Role: RoleAssistant, Body: "buenas"}))

	msgs, err := store.List(ctx, "conv-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hola", msgs[0].Body)
	assert.Equal(t, "buenas", msgs[1].Body)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())
}

func TestTranscriptListLimitKeepsNewest(t *testing.T) {
	store := newTranscriptStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "conv-1", Message{Role: RoleUser, Body: fmt.Sprintf("m%d", i)}))
	}

	msgs, err := store.List(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].Body)
	assert.Equal(t, "m4", msgs[1].Body)
}

func TestTranscriptRequiresConversationID(t *testing.T) {
	store := newTranscriptStore(t)
	assert.Error(t, store.Append(context.Background(), "", Message{Body: "x"}))
}

func TestTranscriptClear(t *testing.T) {
	store := newTranscriptStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", Message{Role: RoleUser, Body: "hola"}))
	require.NoError(t, store.Clear(ctx, "conv-1"))

	msgs, err := store.List(ctx, "conv-1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestTranscriptNilStoreIsNoOp(t *testing.T) {
	var store *TranscriptStore
	require.NoError(t, store.Append(context.Background(), "conv-1", Message{Body: "x"}))
	msgs, err := store.List(context.Background(), "conv-1", 10)
	require.NoError(t, err)
	assert.Nil(t, msgs)
	require.NoError(t, store.Clear(context.Background(), "conv-1"))
}
