package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweeper_RunsPeriodically(t *testing.T) {
	s, cleaner, clock := newTestStore(t)
	s.AddFile("old", file("a.pdf"))
	clock.Advance(48 * time.Hour)

	sweeper := NewSweeper(s, 10*time.Millisecond, discardLogger())
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		return s.Len() == 0
	}, time.Second, 5*time.Millisecond)

	cleaner.mu.Lock()
	defer cleaner.mu.Unlock()
	assert.Equal(t, []string{"old"}, cleaner.deleted)
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	s, _, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSweeper(s, time.Hour, discardLogger())
	sweeper.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	s, _, _ := newTestStore(t)
	sweeper := NewSweeper(s, 0, nil)
	assert.Equal(t, DefaultSweepInterval, sweeper.interval)
}
