package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(&fakeVotes{}, &fakeOverdue{}, nil)
	require.NoError(t, s.Register("@every 1m", "0 1 * * *"))
	assert.Equal(t, 2, s.Entries())

	s = NewScheduler(&fakeVotes{}, &fakeOverdue{}, nil)
	require.NoError(t, s.Register("", "@daily"))
	assert.Equal(t, 1, s.Entries(), "empty spec disables the sweep")

	s = NewScheduler(&fakeVotes{}, &fakeOverdue{}, nil)
	assert.Error(t, s.Register("every minute", ""))
}

func TestScheduler_Sweeps(t *testing.T) {
	votes := &fakeVotes{due: 3}
	s := NewScheduler(votes, &fakeOverdue{n: 7}, nil)
	assert.Equal(t, 3, s.SweepVotes(context.Background()))
	assert.Equal(t, 7, s.SweepOverdue(context.Background()))

	failing := NewScheduler(&fakeVotes{due: 1, dueErr: errors.New("db down")}, &fakeOverdue{err: errors.New("db down")}, nil)
	assert.Equal(t, 1, failing.SweepVotes(context.Background()), "partial progress is still reported")
	assert.Equal(t, 0, failing.SweepOverdue(context.Background()))
}

func TestScheduler_RunFiresAndStops(t *testing.T) {
	votes := &fakeVotes{}
	s := NewScheduler(votes, &fakeOverdue{}, nil)
	require.NoError(t, s.Register("@every 1s", ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return votes.sweeps.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
