package activity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Record(ctx, Entry{Action: Create, Entity: "Item", RecordID: fmt.Sprint(i)}))
	}

	got, err = s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "5", got[0].RecordID)
	assert.Equal(t, "3", got[2].RecordID)
	assert.Equal(t, int64(5), got[0].ID)
	assert.False(t, got[0].At.IsZero())

	got, err = s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpenWithoutDSN(t *testing.T) {
	s, err := Open(context.Background(), "", 10)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}
