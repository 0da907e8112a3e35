package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T) *Local {
	t.Helper()
	idx := NewLocal()
	ctx := context.Background()
	entries := map[string]string{
		"mem-pizza":  "pref:pizza like pizza",
		"mem-seoul":  "fact:location seoul",
		"mem-guitar": "hobby:guitar plays guitar",
	}
	for id, text := range entries {
		require.NoError(t, idx.Upsert(ctx, id, text, Payload{
			UserID: "u1", FriendID: "f1", Key: text[:4],
		}))
	}
	return idx
}

func TestSearchRanksByRelevance(t *testing.T) {
	idx := seedIndex(t)

	ids, err := idx.Search(context.Background(), "i really like pizza", Filters{UserID: "u1", FriendID: "f1"})
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "mem-pizza", ids[0])
}

func TestSearchFiltersOwner(t *testing.T) {
	idx := seedIndex(t)
	require.NoError(t, idx.Upsert(context.Background(), "mem-other", "pref:pizza like pizza",
		Payload{UserID: "u2", FriendID: "f1", Key: "pref:pizza"}))

	ids, err := idx.Search(context.Background(), "pizza", Filters{UserID: "u1", FriendID: "f1"})
	require.NoError(t, err)
	assert.NotContains(t, ids, "mem-other")
}

func TestSearchExcludesSuppressedKeys(t *testing.T) {
	idx := NewLocal()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "mem-1", "pref:pizza like pizza",
		Payload{UserID: "u1", FriendID: "f1", Key: "pref:pizza"}))

	ids, err := idx.Search(ctx, "pizza", Filters{
		UserID: "u1", FriendID: "f1",
		ExcludeKeys: map[string]bool{"pref:pizza": true},
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchCapsAtTopK(t *testing.T) {
	idx := NewLocal()
	ctx := context.Background()
	for i := 0; i < TopK+3; i++ {
		require.NoError(t, idx.Upsert(ctx, fmt.Sprintf("mem-%d", i), fmt.Sprintf("likes food number %d", i),
			Payload{UserID: "u1", FriendID: "f1", Key: fmt.Sprintf("pref:%d", i)}))
	}

	ids, err := idx.Search(ctx, "likes food", Filters{UserID: "u1", FriendID: "f1"})
	require.NoError(t, err)
	assert.Len(t, ids, TopK)
}

func TestDeleteRemovesEntry(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Delete(ctx, "mem-pizza"))

	ids, err := idx.Search(ctx, "pizza", Filters{UserID: "u1", FriendID: "f1"})
	require.NoError(t, err)
	assert.NotContains(t, ids, "mem-pizza")
}
