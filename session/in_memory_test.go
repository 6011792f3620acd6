package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/core"
)

var _ core.Store = (*InMemoryStore)(nil)

func TestResolveOrCreate_SameInstance(t *testing.T) {
	store := NewInMemoryStore()

	a, err := store.ResolveOrCreate("s1")
	require.NoError(t, err)
	b, err := store.ResolveOrCreate("s1")
	require.NoError(t, err)

	assert.Same(t, a, b, "resolve returns the existing session by reference")
	assert.Same(t, a.Log, b.Log)
}

func TestResolveOrCreate_IsolatedSessions(t *testing.T) {
	store := NewInMemoryStore()

	a, _ := store.ResolveOrCreate("a")
	b, _ := store.ResolveOrCreate("b")

	a.Log.Append(core.NewUserTurn("only in a"))

	assert.Equal(t, 1, a.Log.Len())
	assert.Equal(t, 0, b.Log.Len(), "turns never leak across sessions")
}

func TestResolveOrCreate_ConcurrentSingleInstance(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	results := make([]*core.Session, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := store.ResolveOrCreate("shared")
			require.NoError(t, err)
			results[i] = sess
		}(i)
	}
	wg.Wait()

	for _, sess := range results[1:] {
		assert.Same(t, results[0], sess)
	}
}

func TestReset_Idempotent(t *testing.T) {
	store := NewInMemoryStore()

	sess, _ := store.ResolveOrCreate("s1")
	sess.Log.Append(core.NewUserTurn("hello"))

	store.Reset("s1")
	assert.Equal(t, 0, sess.Log.Len())

	store.Reset("s1") // second reset equals the first
	assert.Equal(t, 0, sess.Log.Len())

	again, _ := store.ResolveOrCreate("s1")
	assert.Same(t, sess, again, "id is reusable with an empty log")
}

func TestReset_UnknownIDNoOp(t *testing.T) {
	store := NewInMemoryStore()
	store.Reset("never-seen")
	assert.False(t, store.Exists("never-seen"))
}

func TestExists(t *testing.T) {
	store := NewInMemoryStore()
	assert.False(t, store.Exists("s1"))

	_, err := store.ResolveOrCreate("s1")
	require.NoError(t, err)
	assert.True(t, store.Exists("s1"))
}

func TestAcquire_RejectsConcurrentTurn(t *testing.T) {
	store := NewInMemoryStore()

	release, err := store.Acquire("s1")
	require.NoError(t, err)

	_, err = store.Acquire("s1")
	var busy *core.SessionBusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, "s1", busy.SessionID)

	release()

	release2, err := store.Acquire("s1")
	require.NoError(t, err)
	release2()
}

func TestAcquire_IndependentSessions(t *testing.T) {
	store := NewInMemoryStore()

	releaseA, err := store.Acquire("a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := store.Acquire("b")
	require.NoError(t, err)
	defer releaseB()
}

func TestJanitor_ExpiresIdleSessions(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.TTL = 20 * time.Millisecond
		o.SweepInterval = 10 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.ResolveOrCreate("idle")
	require.NoError(t, err)

	store.StartJanitor(ctx)

	assert.Eventually(t, func() bool {
		return !store.Exists("idle")
	}, time.Second, 10*time.Millisecond)
}

func TestJanitor_SkipsBusySessions(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.TTL = 10 * time.Millisecond
		o.SweepInterval = 5 * time.Millisecond
	})

	_, err := store.ResolveOrCreate("busy")
	require.NoError(t, err)
	release, err := store.Acquire("busy")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	store.sweep()

	assert.True(t, store.Exists("busy"), "in-flight sessions are not expired")
	release()
}
