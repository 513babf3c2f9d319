package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/printwatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	result  store.PruneResult
	err     error
	called  chan struct{}
}

func (f *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) (store.PruneResult, error) {
	f.mu.Lock()
	f.cutoffs = append(f.cutoffs, cutoff)
	f.mu.Unlock()
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	return f.result, f.err
}

func TestPrune_Cutoff(t *testing.T) {
	p := &fakePruner{result: store.PruneResult{Jobs: 2, PollMetrics: 40, Notifications: 7}}
	j := New(p, 30)
	now := time.Date(2024, 6, 30, 3, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	res, err := j.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.result, res)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, time.Date(2024, 5, 31, 3, 0, 0, 0, time.UTC), p.cutoffs[0])
}

func TestPrune_Error(t *testing.T) {
	p := &fakePruner{err: errors.New("db gone")}
	j := New(p, 1)

	_, err := j.Prune(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, p.err)
}

func TestStart_Disabled(t *testing.T) {
	p := &fakePruner{}
	j := New(p, 0)

	require.NoError(t, j.Start())
	assert.Nil(t, j.scheduler)
	j.Stop()
	assert.Empty(t, p.cutoffs)
}

func TestStart_RunsImmediately(t *testing.T) {
	p := &fakePruner{called: make(chan struct{}, 1)}
	j := New(p, 7)

	require.NoError(t, j.Start())
	defer j.Stop()

	select {
	case <-p.called:
	case <-time.After(5 * time.Second):
		t.Fatal("prune job did not run after Start")
	}
}
