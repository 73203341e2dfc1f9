package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewStorageError("replace transactions", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage failure: replace transactions: disk I/O error", err.Error())

	assert.Same(t, err, NewStorageError("outer", err), "already wrapped errors keep their operation")
	assert.NoError(t, NewStorageError("noop", nil))

	wrapped := fmt.Errorf("file a.zip: %w", err)
	assert.ErrorIs(t, wrapped, ErrStorage)
	assert.NotErrorIs(t, wrapped, ErrDecryption)
}

func TestUserError(t *testing.T) {
	err := NewUserError("invalid configuration", ErrMissingConfig)
	assert.Equal(t, "invalid configuration: missing configuration", err.Error())
	assert.ErrorIs(t, err, ErrMissingConfig)

	assert.Equal(t, "no owner", NewUserError("no owner", nil).Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("502"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("400"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, fastRetry(3))
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on a non-retryable error", func(t *testing.T) {
		calls := 0
		bad := &RetryableError{Err: errors.New("bad request"), Retryable: false}
		err := WithRetry(ctx, func() error {
			calls++
			return bad
		}, fastRetry(5))
		assert.Same(t, bad, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("reports exhaustion with the last error", func(t *testing.T) {
		last := errors.New("still down")
		err := WithRetry(ctx, func() error { return last }, fastRetry(2))
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, last)
	})

	t.Run("honors cancellation between attempts", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := WithRetry(cctx, func() error {
			calls++
			cancel()
			return errors.New("fail")
		}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("stored", "owner", "alice", "rows", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"stored"`)
	assert.Contains(t, out, `"owner":"alice"`)

	_, err = NewHandler(&buf, slog.LevelInfo, "xml")
	assert.Error(t, err)
}
