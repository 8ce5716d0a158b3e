package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/dirbot/internal/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *recordingSink) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func TestEmptyAllowListFailsClosed(t *testing.T) {
	list := NewAllowList(nil, []string{" ", ""})
	require.True(t, list.Empty())

	actors := []domain.Actor{
		{ID: 0},
		{ID: 42},
		{ID: 42, Handle: "alice"},
		{ID: -1, Handle: ""},
	}
	for _, a := range actors {
		assert.False(t, IsAuthorized(a, list), "actor %v", a)
	}
}

func TestAllowListByID(t *testing.T) {
	list := NewAllowList([]int64{42}, []string{"bob"})
	assert.True(t, IsAuthorized(domain.Actor{ID: 42}, list))
	assert.True(t, IsAuthorized(domain.Actor{ID: 42, Handle: "mallory"}, list))
	assert.False(t, IsAuthorized(domain.Actor{ID: 7}, list))
}

func TestAllowListByHandleIsCaseInsensitive(t *testing.T) {
	list := NewAllowList(nil, []string{"Alice", "@Carol"})
	assert.True(t, IsAuthorized(domain.Actor{ID: 1, Handle: "ALICE"}, list))
	assert.True(t, IsAuthorized(domain.Actor{ID: 2, Handle: "alice"}, list))
	assert.True(t, IsAuthorized(domain.Actor{ID: 3, Handle: "carol"}, list))
	assert.False(t, IsAuthorized(domain.Actor{ID: 4}, list))
	assert.False(t, IsAuthorized(domain.Actor{ID: 5, Handle: "alicia"}, list))
}

func TestGateAuditsEveryDecision(t *testing.T) {
	sink := &recordingSink{}
	gate := NewGate(NewAllowList([]int64{42}, nil), sink)

	assert.True(t, gate.Authorize(context.Background(), domain.Actor{ID: 42}, "command.menu"))
	assert.False(t, gate.Authorize(context.Background(), domain.Actor{ID: 7, Handle: "eve"}, "command.menu"))
	require.NoError(t, gate.Close())

	require.Len(t, sink.entries, 2)
	assert.Equal(t, OutcomeAllowed, sink.entries[0].Outcome)
	assert.Equal(t, int64(42), sink.entries[0].ActorID)
	assert.Equal(t, OutcomeDenied, sink.entries[1].Outcome)
	assert.Equal(t, "eve", sink.entries[1].ActorHandle)
	assert.Equal(t, "command.menu", sink.entries[1].Action)
	assert.False(t, sink.entries[1].At.IsZero())
}

func TestGateDecisionSurvivesSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	gate := NewGate(NewAllowList([]int64{42}, nil), sink)
	assert.True(t, gate.Authorize(context.Background(), domain.Actor{ID: 42}, "button"))
	require.NoError(t, gate.Close())
	assert.Len(t, sink.entries, 1)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("boom")}
	err := MultiSink{ok, nil, bad}.Record(context.Background(), Entry{Action: "x"})
	require.Error(t, err)
	assert.Len(t, ok.entries, 1)
	assert.Len(t, bad.entries, 1)
}

type slowSink struct {
	delay time.Duration
	recordingSink
}

func (s *slowSink) Record(ctx context.Context, e Entry) error {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.recordingSink.Record(ctx, e)
}

func TestGateDoesNotWaitForSlowSink(t *testing.T) {
	sink := &slowSink{delay: 300 * time.Millisecond}
	gate := NewGate(NewAllowList([]int64{42}, nil), sink)

	start := time.Now()
	assert.True(t, gate.Authorize(context.Background(), domain.Actor{ID: 42}, "button.noop"))
	assert.False(t, gate.Authorize(context.Background(), domain.Actor{ID: 7}, "button.noop"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	require.NoError(t, gate.Close())
	require.Len(t, sink.entries, 2)
	assert.Equal(t, OutcomeDenied, sink.entries[1].Outcome)
}

func TestAsyncSinkBoundsEachWrite(t *testing.T) {
	sink := &slowSink{delay: time.Hour}
	async := NewAsyncSink(sink, 4, 20*time.Millisecond)

	require.NoError(t, async.Record(context.Background(), Entry{Action: "deactivate"}))
	done := make(chan struct{})
	go func() {
		_ = async.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close waited on a hung sink")
	}
	assert.Empty(t, sink.entries)
}

func TestAsyncSinkAfterCloseFallsBackToLog(t *testing.T) {
	next := &recordingSink{}
	async := NewAsyncSink(next, 1, 0)
	require.NoError(t, async.Close())

	require.NoError(t, async.Record(context.Background(), Entry{Action: "command.menu", Outcome: OutcomeDenied}))
	assert.Empty(t, next.entries)
}

func TestAsyncSinkKeepsRequestValuesAfterCancel(t *testing.T) {
	next := &recordingSink{}
	async := NewAsyncSink(next, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, async.Record(ctx, Entry{Action: "button.sel"}))
	require.NoError(t, async.Close())
	require.Len(t, next.entries, 1)
	assert.False(t, next.entries[0].At.IsZero())
}
