package walletsync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) RefreshRecords(ctx context.Context) error {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh without deadline")
	}
	return r.err
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(&countingRefresher{}, Config{Schedule: "every so often"}, nil)
	assert.Error(t, err)

	_, err = New(nil, Config{Schedule: "@every 1m"}, nil)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	r := &countingRefresher{}
	s, err := New(r, Config{Schedule: "@every 1m"}, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), r.calls.Load())
	at, lastErr := s.LastRun()
	assert.False(t, at.IsZero())
	assert.NoError(t, lastErr)

	r.err = errors.New("wallet locked")
	assert.Error(t, s.RunOnce(context.Background()))
	_, lastErr = s.LastRun()
	assert.EqualError(t, lastErr, "wallet locked")
}

func TestStartStop(t *testing.T) {
	r := &countingRefresher{}
	s, err := New(r, Config{Schedule: "@every 1s"}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())

	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
}
