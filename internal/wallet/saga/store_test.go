package saga_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

const name = saga.PipelineSendToken

func newStore() *saga.Store {
	return saga.NewStore(time2.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func nextEvent(t *testing.T, sub *saga.Subscription) saga.Event {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	return saga.Event{}
}

func TestStoreStartsIdle(t *testing.T) {
	state := newStore().Get(name)

	assert.Equal(t, name, state.Name)
	assert.Equal(t, saga.StatusIdle, state.Status)
	assert.Zero(t, state.Attempt)
}

func TestBeginTwiceIsRejected(t *testing.T) {
	store := newStore()

	first, err := store.Begin(name)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusStarted, first.Status)

	_, err = store.Begin(name)
	require.ErrorIs(t, err, saga.ErrAlreadyStarted)

	// the live attempt survives the rejected start
	assert.Equal(t, first.Attempt, store.Get(name).Attempt)

	_, err = store.Resolve(name, first.Attempt, saga.StatusSuccess, nil, &saga.Result{TxHash: "0x01"})
	require.NoError(t, err)

	_, err = store.Begin(name)
	require.ErrorIs(t, err, saga.ErrAlreadyStarted, "terminal states need a reset before a new start")
}

func TestAttemptTokensNeverRepeat(t *testing.T) {
	store := newStore()
	seen := map[uint64]bool{}

	for range 5 {
		state, err := store.Begin(name)
		require.NoError(t, err)
		assert.False(t, seen[state.Attempt])
		seen[state.Attempt] = true

		store.Reset(name)
	}
}

func TestResolveWithStaleTokenIsIgnored(t *testing.T) {
	store := newStore()

	first, err := store.Begin(name)
	require.NoError(t, err)
	require.True(t, store.Cancel(name, first.Attempt))

	second, err := store.Begin(name)
	require.NoError(t, err)

	_, err = store.Resolve(name, first.Attempt, saga.StatusSuccess, nil, nil)
	require.ErrorIs(t, err, saga.ErrStaleAttempt)
	assert.Equal(t, txfail.ReasonStaleAttemptDiscarded, txfail.ReasonOf(err))

	state := store.Get(name)
	assert.Equal(t, saga.StatusStarted, state.Status)
	assert.Equal(t, second.Attempt, state.Attempt)

	assert.False(t, store.Cancel(name, first.Attempt))
	require.ErrorIs(t, store.Notify(name, first.Attempt, saga.EventSigned), saga.ErrStaleAttempt)
}

func TestResolveFailureRequiresReason(t *testing.T) {
	store := newStore()
	state, err := store.Begin(name)
	require.NoError(t, err)

	_, err = store.Resolve(name, state.Attempt, saga.StatusFailure, nil, nil)
	require.ErrorIs(t, err, saga.ErrInvalidTransition)

	_, err = store.Resolve(name, state.Attempt, saga.StatusSuccess, txfail.New(txfail.ReasonUnknown, "x"), nil)
	require.ErrorIs(t, err, saga.ErrInvalidTransition)

	_, err = store.Resolve(name, state.Attempt, saga.StatusIdle, nil, nil)
	require.ErrorIs(t, err, saga.ErrInvalidTransition)

	resolved, err := store.Resolve(name, state.Attempt, saga.StatusFailure, txfail.New(txfail.ReasonSignerTimeout, "timed out"), nil)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusFailure, resolved.Status)
	assert.Equal(t, txfail.ReasonSignerTimeout, resolved.Failure.Reason)

	_, err = store.Resolve(name, state.Attempt, saga.StatusSuccess, nil, nil)
	require.ErrorIs(t, err, saga.ErrStaleAttempt, "an attempt resolves once")
}

func TestResetIsIdempotentOnIdle(t *testing.T) {
	store := newStore()
	sub := store.Subscribe(name)
	defer sub.Close()

	store.Reset(name)
	store.Reset(name)

	state, err := store.Begin(name)
	require.NoError(t, err)

	// the first event observed is the start, resets on Idle publish nothing
	ev := nextEvent(t, sub)
	assert.Equal(t, saga.StatusStarted, ev.State.Status)
	assert.Equal(t, state.Attempt, ev.State.Attempt)
}

func TestResetClearsFailureAndResult(t *testing.T) {
	store := newStore()
	state, err := store.Begin(name)
	require.NoError(t, err)

	_, err = store.Resolve(name, state.Attempt, saga.StatusFailure, txfail.New(txfail.ReasonBroadcastFailed, "nope"), nil)
	require.NoError(t, err)

	store.Reset(name)

	idle := store.Get(name)
	assert.Equal(t, saga.StatusIdle, idle.Status)
	assert.Nil(t, idle.Failure)
	assert.Nil(t, idle.Result)
}

func TestSetStatus(t *testing.T) {
	store := newStore()

	require.ErrorIs(t, store.SetStatus(name, saga.StatusSuccess, nil), saga.ErrInvalidTransition)
	require.NoError(t, store.SetStatus(name, saga.StatusStarted, nil))
	require.ErrorIs(t, store.SetStatus(name, saga.StatusStarted, nil), saga.ErrAlreadyStarted)
	require.NoError(t, store.SetStatus(name, saga.StatusFailure, txfail.New(txfail.ReasonUnknown, "boom")))
	assert.Equal(t, saga.StatusFailure, store.Get(name).Status)
	require.NoError(t, store.SetStatus(name, saga.StatusIdle, nil))
	assert.Equal(t, saga.StatusIdle, store.Get(name).Status)
}

func TestSubscriberSeesSnapshotThenEveryTransition(t *testing.T) {
	store := newStore()

	started, err := store.Begin(name)
	require.NoError(t, err)

	sub := store.Subscribe(name)
	defer sub.Close()

	assert.Equal(t, saga.StatusStarted, sub.Snapshot.Status)
	assert.Equal(t, started.Attempt, sub.Snapshot.Attempt)

	require.NoError(t, store.Notify(name, started.Attempt, saga.EventSignatureRequired))
	require.NoError(t, store.Notify(name, started.Attempt, saga.EventSigned))
	_, err = store.Resolve(name, started.Attempt, saga.StatusSuccess, nil, &saga.Result{TxHash: "0xab"})
	require.NoError(t, err)
	store.Reset(name)

	want := []struct {
		typ    saga.EventType
		status saga.Status
	}{
		{saga.EventSignatureRequired, saga.StatusStarted},
		{saga.EventSigned, saga.StatusStarted},
		{saga.EventStatus, saga.StatusSuccess},
		{saga.EventStatus, saga.StatusIdle},
	}

	var lastSeq uint64
	for _, w := range want {
		ev := nextEvent(t, sub)
		assert.Equal(t, w.typ, ev.Type)
		assert.Equal(t, w.status, ev.State.Status)
		assert.Greater(t, ev.Seq, lastSeq)
		lastSeq = ev.Seq
	}
}

func TestSlowSubscriberDoesNotBlockWriters(t *testing.T) {
	store := newStore()
	sub := store.Subscribe(name)
	defer sub.Close()

	for range 100 {
		_, err := store.Begin(name)
		require.NoError(t, err)
		store.Reset(name)
	}

	for i := range 200 {
		ev := nextEvent(t, sub)
		if i%2 == 0 {
			assert.Equal(t, saga.StatusStarted, ev.State.Status)
		} else {
			assert.Equal(t, saga.StatusIdle, ev.State.Status)
		}
	}
}

func TestWatchSeesAllPipelines(t *testing.T) {
	store := newStore()
	watch := store.Watch()
	defer watch.Close()

	_, err := store.Begin(saga.PipelineSendToken)
	require.NoError(t, err)
	_, err = store.Begin(saga.PipelineExchangeToken)
	require.NoError(t, err)

	assert.Equal(t, saga.PipelineSendToken, nextEvent(t, watch).State.Name)
	assert.Equal(t, saga.PipelineExchangeToken, nextEvent(t, watch).State.Name)
}

func TestCloseStopsDelivery(t *testing.T) {
	store := newStore()
	sub := store.Subscribe(name)
	sub.Close()
	sub.Close()

	_, err := store.Begin(name)
	require.NoError(t, err)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestConcurrentBeginAdmitsOne(t *testing.T) {
	store := newStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Begin(name); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, started)
}

func TestStatusText(t *testing.T) {
	for _, s := range []saga.Status{saga.StatusIdle, saga.StatusStarted, saga.StatusSuccess, saga.StatusFailure} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed saga.Status
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	require.Error(t, new(saga.Status).UnmarshalText([]byte("done")))
}
