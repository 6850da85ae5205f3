package recurring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/common"
)

type fakeRunner struct {
	err   error
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeRunner) Detect(ctx context.Context, accountID string) (*DetectReport, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &DetectReport{Created: 2}, nil
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&fakeRunner{}, "every tuesday", "", nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = NewScheduler(&fakeRunner{}, "@daily", "", nil)
	assert.NoError(t, err)

	_, err = NewScheduler(&fakeRunner{}, "0 6 * * 1", "acct-1", nil)
	assert.NoError(t, err)
}

func TestScheduler_RunOnce(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewScheduler(runner, "@hourly", "acct-1", nil)
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, int32(1), runner.calls.Load())

	runner.err = errors.New("database is locked")
	_, err = s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s, err := NewScheduler(runner, "@hourly", "", nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunOnce(context.Background())
	}()

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

	report, err := s.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, report)

	close(runner.block)
	<-done
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(&fakeRunner{}, "@daily", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()
}
