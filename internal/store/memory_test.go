package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryStoreSetGetDelete(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("k", []byte("v"), 0))
	val, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	exists, err := s.Exists("k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete("k"))
	_, err = s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := s.Exists("k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreSetNX(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.SetNX("lock", []byte("1"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquisition on a live key must fail.
	ok, err = s.SetNX("lock", []byte("2"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := s.Get("lock")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	// Released key can be re-acquired.
	require.NoError(t, s.Delete("lock"))
	ok, err = s.SetNX("lock", []byte("3"), 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreSetNXExpiredKey(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.SetNX("lock", []byte("1"), 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	ok, err = s.SetNX("lock", []byte("2"), 0)
	require.NoError(t, err)
	assert.True(t, ok, "expired key counts as absent")
}

func TestMemoryStoreHashOperations(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.HSet("h", map[string]any{"step": "campaigns", "total": 10}))

	vals, err := s.HGetAll("h")
	require.NoError(t, err)
	assert.Equal(t, "campaigns", vals["step"])
	assert.Equal(t, "10", vals["total"])

	n, err := s.HIncrBy("h", "processed", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = s.HIncrBy("h", "processed", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Hash and plain keys do not mix.
	require.NoError(t, s.Set("plain", []byte("v"), 0))
	_, err = s.HGetAll("plain")
	assert.Error(t, err)
}

func TestMemoryStorePubSub(t *testing.T) {
	s := newTestStore(t)

	sub, err := s.Subscribe("events")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, s.Publish("events", []byte("hello")))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "events", msg.Channel)
		assert.Equal(t, []byte("hello"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	// Publishing with no subscribers on the channel is a no-op.
	require.NoError(t, s.Publish("other", []byte("x")))
}

func TestMemoryStoreClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.HSet("b", map[string]any{"f": "v"}))
	require.NoError(t, s.Clear())

	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	vals, err := s.HGetAll("b")
	require.NoError(t, err)
	assert.Empty(t, vals)
}
