package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPutTake(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory(time.Minute)

	p := Pending{Token: "t1", SubmittedKey: "1234", Candidates: []string{"Jo Lee", "Sam Roy"}}
	require.NoError(t, s.Put(ctx, p))

	got, err := s.Take(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1234", got.SubmittedKey)
	assert.Equal(t, []string{"Jo Lee", "Sam Roy"}, got.Candidates)
	assert.False(t, got.CreatedAt.IsZero())

	// consumed
	got, err = s.Take(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryUnknownToken(t *testing.T) {
	s := NewInMemory(time.Minute)
	got, err := s.Take(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory(time.Minute)

	base := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, Pending{Token: "t1", SubmittedKey: "1234"}))

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	got, err := s.Take(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, got, "entries older than the TTL are gone")
}
