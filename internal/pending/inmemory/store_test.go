package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

func draft(payee string, amount float64) *domain.PendingTransaction {
	return &domain.PendingTransaction{Payee: payee, Amount: amount, Currency: "USD"}
}

func TestStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Set(ctx, 1, draft("A", 1)))
	require.NoError(t, s.Set(ctx, 1, draft("B", 2)))

	got, found, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "B", got.Payee)
	assert.Equal(t, 1, s.Len())
}

func TestStore_GetMissing(t *testing.T) {
	got, found, err := NewStore().Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Set(ctx, 1, draft("A", 1)))
	require.NoError(t, s.Set(ctx, 2, draft("B", 2)))

	existed, err := s.Clear(ctx, 1)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Clear(ctx, 1)
	require.NoError(t, err)
	assert.False(t, existed)

	_, found, _ := s.Get(ctx, 2)
	assert.True(t, found, "clearing one conversation must not touch another")
}

func TestStore_CopiesOnSetAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	catID := int64(7)
	in := draft("A", 1)
	in.CategoryID = &catID
	require.NoError(t, s.Set(ctx, 1, in))

	in.Payee = "mutated"
	*in.CategoryID = 99

	out, _, _ := s.Get(ctx, 1)
	assert.Equal(t, "A", out.Payee)
	assert.Equal(t, int64(7), *out.CategoryID)

	out.Payee = "mutated again"
	again, _, _ := s.Get(ctx, 1)
	assert.Equal(t, "A", again.Payee)
}

func TestStore_RejectsNil(t *testing.T) {
	assert.Error(t, NewStore().Set(context.Background(), 1, nil))
}

func TestStore_ConcurrentConversations(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Set(ctx, id, draft("p", float64(j)))
				_, _, _ = s.Get(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	for i := int64(0); i < 50; i++ {
		got, found, err := s.Get(ctx, i)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, float64(99), got.Amount)
	}
}
