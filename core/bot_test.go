package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// scriptedSource replays a fixed sequence of batches and records the offset
// of every fetch. Once the script is exhausted it stops the bot.
type scriptedSource struct {
	t       *testing.T
	batches [][]int64 // update ids per fetch

	mu      sync.Mutex
	offsets []int64
	bot     *Bot
}

func (s *scriptedSource) FetchUpdates(_ context.Context, offset int64, _ int, _ time.Duration, _ []Kind) ([]*Update, error) {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	call := len(s.offsets) - 1
	s.mu.Unlock()

	if call >= len(s.batches) {
		// Script done; ask the bot to stop. The loop must observe this
		// before issuing another fetch.
		if s.bot.State() == StateRunning {
			if err := s.bot.Stop(); err != nil {
				s.t.Errorf("stop: %v", err)
			}
		}
		return nil, nil
	}

	var updates []*Update
	for _, id := range s.batches[call] {
		u, err := NewUpdate(id, KindMessage, &Message{MessageID: id, Chat: Chat{ID: 1}})
		if err != nil {
			s.t.Fatalf("NewUpdate: %v", err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func (s *scriptedSource) fetchOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.offsets))
	copy(out, s.offsets)
	return out
}

func runScripted(t *testing.T, batches [][]int64) *scriptedSource {
	t.Helper()
	src := &scriptedSource{t: t, batches: batches}
	bot := New(src, Config{PollInterval: time.Millisecond}, testLogger())
	src.bot = bot

	done := make(chan error, 1)
	go func() { done <- bot.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("polling loop did not exit")
	}
	return src
}

func TestPollingOffsetSequence(t *testing.T) {
	src := runScripted(t, [][]int64{{5, 6}, {}, {7}})

	offsets := src.fetchOffsets()
	// Sentinel+1 gives 0; after {5,6} the offset is 6; an empty batch leaves
	// it at 6; after {7} the next requested offset is 8 (last_id = 7).
	want := []int64{0, 6, 6, 8}
	if len(offsets) != len(want) {
		t.Fatalf("fetch count = %d (%v), want %d", len(offsets), offsets, len(want))
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("fetch %d offset = %d, want %d", i, offsets[i], want[i])
		}
	}
}

func TestStopHaltsFetching(t *testing.T) {
	src := runScripted(t, [][]int64{{1}})

	// Run has returned, so the loop is done. No fetch may follow the one
	// that triggered Stop.
	n := len(src.fetchOffsets())
	time.Sleep(20 * time.Millisecond)
	if got := len(src.fetchOffsets()); got != n {
		t.Errorf("fetches after stop: %d -> %d", n, got)
	}
	if src.bot.State() != StateStopped {
		t.Errorf("state = %s, want stopped", src.bot.State())
	}
}

func TestInFlightHandlersSurviveStop(t *testing.T) {
	src := &scriptedSource{t: t, batches: [][]int64{{1}}}
	bot := New(src, Config{PollInterval: time.Millisecond}, testLogger())
	src.bot = bot

	started := make(chan struct{})
	finished := make(chan struct{})
	if _, err := bot.Register(KindMessage, func(context.Context, *SubUpdate) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- bot.Run(context.Background()) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("polling loop did not exit")
	}

	// Stop never cancels scheduled dispatch work.
	bot.Wait()
	select {
	case <-finished:
	default:
		t.Error("handler did not run to completion after stop")
	}
}

func TestCancelDoesNotCancelInFlightHandlers(t *testing.T) {
	src := &onceSource{}
	bot := New(src, Config{PollInterval: time.Millisecond}, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var ctxErr error
	if _, err := bot.Register(KindMessage, func(ctx context.Context, _ *SubUpdate) error {
		close(started)
		<-release
		mu.Lock()
		ctxErr = ctx.Err()
		mu.Unlock()
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	// Cancel the loop's context while the handler is still running, then let
	// the handler finish. Its context must stay live.
	cancel()
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	bot.Wait()

	mu.Lock()
	defer mu.Unlock()
	if ctxErr != nil {
		t.Errorf("handler context cancelled mid-flight: %v", ctxErr)
	}
}

// onceSource returns a single one-update batch, then blocks until the poll
// context is cancelled.
type onceSource struct {
	calls int
}

func (s *onceSource) FetchUpdates(ctx context.Context, _ int64, _ int, _ time.Duration, _ []Kind) ([]*Update, error) {
	s.calls++
	if s.calls == 1 {
		u, err := NewUpdate(1, KindMessage, &Message{MessageID: 1, Chat: Chat{ID: 1}})
		if err != nil {
			return nil, err
		}
		return []*Update{u}, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunRequiresSource(t *testing.T) {
	bot := New(nil, Config{}, testLogger())
	if err := bot.Run(context.Background()); err == nil {
		t.Fatal("expected error running without a source")
	}
}

func TestStartTwiceFails(t *testing.T) {
	bot := New(nil, Config{}, testLogger())
	if err := bot.Start(); err != nil {
		t.Fatal(err)
	}
	if err := bot.Start(); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestStopBeforeStartFails(t *testing.T) {
	bot := New(nil, Config{}, testLogger())
	if err := bot.Stop(); err == nil {
		t.Fatal("expected stop before start to fail")
	}
}

func TestRunCancelledByContext(t *testing.T) {
	blocker := make(chan struct{})
	src := &blockingSource{unblock: blocker, fetching: make(chan struct{}, 1)}
	bot := New(src, Config{PollInterval: time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	<-src.fetching
	cancel()
	close(blocker)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

type blockingSource struct {
	fetching chan struct{}
	unblock  chan struct{}
}

func (s *blockingSource) FetchUpdates(ctx context.Context, _ int64, _ int, _ time.Duration, _ []Kind) ([]*Update, error) {
	select {
	case s.fetching <- struct{}{}:
	default:
	}
	select {
	case <-s.unblock:
	case <-ctx.Done():
	}
	return nil, ctx.Err()
}
