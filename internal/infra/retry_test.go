package infra_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"voice-phone/internal/infra"
)

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "success first try",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "transport error then success",
			errs:      []error{errors.New("connection reset"), nil},
			wantCalls: 2,
		},
		{
			name: "retryable status exhausts attempts",
			errs: []error{
				&infra.HTTPError{Service: "test", StatusCode: http.StatusServiceUnavailable},
				&infra.HTTPError{Service: "test", StatusCode: http.StatusServiceUnavailable},
				&infra.HTTPError{Service: "test", StatusCode: http.StatusServiceUnavailable},
			},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:      "client error is permanent",
			errs:      []error{&infra.HTTPError{Service: "test", StatusCode: http.StatusUnauthorized}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "context cancellation is not retried",
			errs:      []error{context.Canceled},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := infra.WithRetry(context.Background(), fastRetry(), func() error {
				e := tt.errs[min(calls, len(tt.errs)-1)]
				calls++
				return e
			})

			if calls != tt.wantCalls {
				t.Errorf("calls: got %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("error: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetry()
	cfg.InitialDelay = time.Second

	err := infra.WithRetry(ctx, cfg, func() error { return errors.New("boom") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
