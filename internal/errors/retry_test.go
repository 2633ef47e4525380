package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		JitterFactor: 0,
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &NetworkError{Err: fmt.Errorf("refused")}
		}
		return nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func(context.Context) error {
		attempts++
		return &ValidationError{StatusCode: 422, Detail: "bad request"}
	}, nil)

	require.Error(t, err)
	require.Equal(t, 1, attempts)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	config := fastRetryConfig()
	attempts := 0
	err := Retry(context.Background(), config, func(context.Context) error {
		attempts++
		return &ServerError{StatusCode: 503}
	}, nil)

	require.Error(t, err)
	require.Equal(t, config.MaxAttempts+1, attempts)
	var server *ServerError
	require.ErrorAs(t, err, &server)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetryConfig(), func(context.Context) error {
		t.Fatal("fn should not run with a cancelled context")
		return nil
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResultReturnsValue(t *testing.T) {
	attempts := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", &NetworkError{Err: fmt.Errorf("flaky")}
		}
		return "value", nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "value", got)
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	config := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}

	require.Equal(t, 10*time.Millisecond, calculateBackoff(0, config))
	require.Equal(t, 20*time.Millisecond, calculateBackoff(1, config))
	require.Equal(t, 40*time.Millisecond, calculateBackoff(2, config))
	require.Equal(t, 40*time.Millisecond, calculateBackoff(5, config))
}

func TestCalculateBackoffJitterStaysBounded(t *testing.T) {
	config := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, JitterFactor: 0.25}

	for i := 0; i < 100; i++ {
		delay := calculateBackoff(1, config)
		require.GreaterOrEqual(t, delay, 15*time.Millisecond)
		require.LessOrEqual(t, delay, 25*time.Millisecond)
	}
}
