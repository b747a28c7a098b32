package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"resty.dev/v3"
)

// Remote is the authoritative progress service the store mirrors writes to.
type Remote interface {
	Fetch(ctx context.Context, category string) (*CategoryProgress, error)
	Apply(ctx context.Context, op Op) error
}

// ToggleRequest is the body of the toggle endpoints. A nil Completed asks the
// server to flip the current state.
type ToggleRequest struct {
	Completed *bool `json:"completed,omitempty"`
	Total     int   `json:"total,omitempty"`
}

// StatusError is returned when the progress service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("progress service returned HTTP %d: %s", e.Code, e.Body)
}

// IsRetryable reports whether a sync failure is worth retrying. Client errors
// other than 408 and 429 are permanent.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusRequestTimeout, se.Code == http.StatusTooManyRequests:
			return true
		case se.Code >= 400 && se.Code < 500:
			return false
		}
	}
	return true
}

// HTTPRemote talks to the Remote Progress API over HTTP.
type HTTPRemote struct {
	client  *resty.Client
	breaker circuitbreaker.CircuitBreaker[*resty.Response]
}

// NewHTTPRemote creates a client for baseURL (e.g. https://host/api/learn),
// identifying as userID.
func NewHTTPRemote(baseURL, userID string) *HTTPRemote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader(UserHeader, userID)

	breaker := circuitbreaker.New[*resty.Response](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("progress remote circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	return &HTTPRemote{client: client, breaker: breaker}
}

// UserHeader carries the learner identity on progress requests.
const UserHeader = "X-User-ID"

// Fetch reads the server's view of a category.
func (r *HTTPRemote) Fetch(ctx context.Context, category string) (*CategoryProgress, error) {
	var p CategoryProgress
	_, err := r.breaker.Execute(ctx, func(ctx context.Context) (*resty.Response, error) {
		return checkResponse(r.client.R().
			SetContext(ctx).
			SetPathParam("category", category).
			SetResult(&p).
			Get("/progress/{category}"))
	})
	if err != nil {
		return nil, fmt.Errorf("fetch progress %s: %w", category, err)
	}
	p.ensure()
	return &p, nil
}

// Apply sends the desired final state carried by op.
func (r *HTTPRemote) Apply(ctx context.Context, op Op) error {
	completed := op.Completed
	body := ToggleRequest{Completed: &completed, Total: op.Total}

	_, err := r.breaker.Execute(ctx, func(ctx context.Context) (*resty.Response, error) {
		req := r.client.R().
			SetContext(ctx).
			SetPathParam("category", op.Category).
			SetPathParam("topic", op.Topic).
			SetBody(body)
		if op.Kind == OpSection {
			return checkResponse(req.
				SetPathParam("section", op.Section).
				Post("/progress/{category}/topics/{topic}/sections/{section}/toggle"))
		}
		return checkResponse(req.Post("/progress/{category}/topics/{topic}/toggle"))
	})
	if err != nil {
		return fmt.Errorf("apply %s op %s: %w", op.Kind, op.ID, err)
	}
	return nil
}

// Close releases the underlying HTTP client.
func (r *HTTPRemote) Close() error {
	return r.client.Close()
}

func checkResponse(resp *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return resp, err
	}
	if resp.IsError() {
		return resp, &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return resp, nil
}
