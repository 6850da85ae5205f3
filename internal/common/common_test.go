package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryOptions {
	return RetryOptions{
		Logger:       slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		wantErr   error
		results   []error
		name      string
		wantCalls int
	}{
		{
			name:      "first try",
			results:   []error{nil},
			wantCalls: 1,
		},
		{
			name:      "recovers after transient failures",
			results:   []error{Transient(errBoom), errBoom, nil},
			wantCalls: 3,
		},
		{
			name:      "permanent error stops immediately",
			results:   []error{Permanent(errBoom)},
			wantCalls: 1,
			wantErr:   errBoom,
		},
		{
			name:      "gives up after max attempts",
			results:   []error{errBoom, errBoom, errBoom},
			wantCalls: 3,
			wantErr:   ErrMaxRetries,
		},
		{
			name:      "rate limit still retried",
			results:   []error{Transient(ErrRateLimit), nil},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				err := tt.results[calls]
				calls++
				return err
			}, fastRetry())

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithRetryKeepsLastError(t *testing.T) {
	err := WithRetry(context.Background(), func() error {
		return Transient(fmt.Errorf("%w: bridge down", ErrFeedConnection))
	}, fastRetry())

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, ErrFeedConnection)
}

func TestWithRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		return nil
	}, fastRetry())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("x")
	assert.True(t, IsRetryable(base))
	assert.True(t, IsRetryable(Transient(base)))
	assert.False(t, IsRetryable(Permanent(base)))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", Permanentf("%w", ErrAccessRevoked))))
	assert.False(t, IsRetryable(nil))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(input))
		})
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo, "json"))

	ComponentLogger(logger, "importer").Info("hello")
	ComponentLogger(logger, "importer").Debug("hidden")

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"component":"importer"`)
	assert.NotNil(t, ComponentLogger(nil, "x"))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &FixedClock{T: start}

	assert.Equal(t, start, clock.Now())
	clock.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), clock.Now())
}
