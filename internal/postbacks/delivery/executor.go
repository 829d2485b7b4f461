// Package delivery sends rendered postbacks with per-attempt timeouts and
// jittered exponential backoff, recording every attempt in the delivery log.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"cpa-server/internal/clock"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/postbacks/render"
	"cpa-server/internal/store"

	"github.com/google/uuid"
)

// maxResponseBody caps how much of a destination's response is stored
const maxResponseBody = 10 * 1024

// State is the delivery state of one profile/conversion pair
type State string

const (
	StatePending    State = "pending"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSuccess    State = "success"
	StateExhausted  State = "exhausted"
	// StateCanceled means the context ended before the sequence finished
	StateCanceled State = "canceled"
)

// HTTPDoer sends HTTP requests
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliveryLog is the append-only sink for attempt records
type DeliveryLog interface {
	CreateDeliveryAttempt(ctx context.Context, params store.CreateDeliveryAttemptParams) (store.DeliveryAttempt, error)
}

// Outcome summarizes a finished delivery sequence
type Outcome struct {
	State        State
	Attempts     int
	ResponseCode int
	Err          error
}

// Executor runs the retry state machine for a single profile/conversion pair
type Executor struct {
	client  HTTPDoer
	log     DeliveryLog
	clock   clock.Clock
	random  func() float64
	logger  *observability.Logger
	metrics *metrics.Metrics
}

// Option configures an Executor
type Option func(*Executor)

// WithRandom sets the jitter source. r must return values in [0, 1).
func WithRandom(r func() float64) Option {
	return func(e *Executor) {
		e.random = r
	}
}

// WithMetrics records attempt outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func New(client HTTPDoer, log DeliveryLog, clk clock.Clock, logger *observability.Logger, opts ...Option) *Executor {
	e := &Executor{
		client: client,
		log:    log,
		clock:  clk,
		random: rand.Float64,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewHTTPClient returns the client used for outbound postbacks. It has no
// client-wide timeout; each attempt is bounded by the profile's timeout
// through the request context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Backoff returns the wait before the attempt following failed attempt n:
// base*2^(n-1), scaled by a uniform factor in [0.8, 1.2).
func Backoff(base time.Duration, attempt int, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	nominal := float64(base) * math.Pow(2, float64(attempt-1))
	return time.Duration(nominal * (0.8 + 0.4*r))
}

type attemptResult struct {
	success      bool
	responseCode int
	responseBody string
	duration     time.Duration
	err          error
}

// Deliver sends req until a 2xx response, the profile's retries are used up,
// or ctx ends.
func (e *Executor) Deliver(ctx context.Context, profile store.PostbackProfile, conversionID uuid.UUID, req render.Request) Outcome {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "profile_id", Value: profile.ID},
		observability.Field{Key: "conversion_id", Value: conversionID},
	)

	maxAttempts := profile.MaxAttempts()
	state := StatePending
	var (
		attempt int
		last    attemptResult
	)

	for {
		switch state {
		case StatePending, StateRetrying:
			attempt++
			state = StateAttempting

		case StateAttempting:
			last = e.attempt(ctx, profile, req)
			e.record(ctx, profile, conversionID, req, attempt, maxAttempts, last)

			switch {
			case last.success:
				state = StateSuccess
			case attempt >= maxAttempts:
				state = StateExhausted
			default:
				delay := Backoff(profile.BackoffBase(), attempt, e.random())
				e.logger.Info(ctx, fmt.Sprintf("postback attempt %d/%d failed, retrying in %s", attempt, maxAttempts, delay))
				select {
				case <-e.clock.After(delay):
					state = StateRetrying
				case <-ctx.Done():
					state = StateCanceled
				}
			}

		case StateSuccess:
			e.metrics.DeliveryFinished(string(StateSuccess))
			e.logger.Info(ctx, fmt.Sprintf("postback delivered on attempt %d", attempt))
			return Outcome{State: StateSuccess, Attempts: attempt, ResponseCode: last.responseCode}

		case StateExhausted:
			e.metrics.DeliveryFinished(string(StateExhausted))
			e.logger.Error(ctx, fmt.Sprintf("postback delivery exhausted after %d attempts", attempt), last.err)
			return Outcome{State: StateExhausted, Attempts: attempt, ResponseCode: last.responseCode, Err: last.err}

		case StateCanceled:
			e.metrics.DeliveryFinished(string(StateCanceled))
			e.logger.Warn(ctx, fmt.Sprintf("postback delivery canceled after %d attempts", attempt))
			return Outcome{State: StateCanceled, Attempts: attempt, ResponseCode: last.responseCode, Err: ctx.Err()}
		}
	}
}

func (e *Executor) attempt(ctx context.Context, profile store.PostbackProfile, req render.Request) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, profile.Timeout())
	defer cancel()

	httpReq, err := req.HTTPRequest(attemptCtx)
	if err != nil {
		return attemptResult{err: err}
	}

	start := e.clock.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		duration := e.clock.Now().Sub(start)
		e.metrics.AttemptFinished(false, duration)
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timeout after %s: %w", profile.Timeout(), err)
		}
		return attemptResult{duration: duration, err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	result := attemptResult{responseCode: resp.StatusCode}

	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		e.logger.Warn(ctx, "failed to read postback response body")
	} else {
		result.responseBody = string(bodyBytes)
	}
	result.duration = e.clock.Now().Sub(start)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.success = true
	} else {
		result.err = fmt.Errorf("received non-2xx status code: %d", resp.StatusCode)
	}
	e.metrics.AttemptFinished(result.success, result.duration)
	return result
}

// record appends the attempt to the delivery log with the profile's
// credentials masked. Failures are logged and dropped so a missing audit row
// never blocks delivery.
func (e *Executor) record(ctx context.Context, profile store.PostbackProfile, conversionID uuid.UUID, req render.Request, attempt, maxAttempts int, result attemptResult) {
	req = req.Redacted(profile)
	params := store.CreateDeliveryAttemptParams{
		ProfileID:      profile.ID,
		ConversionID:   conversionID,
		Attempt:        attempt,
		MaxAttempts:    maxAttempts,
		Success:        result.success,
		RequestMethod:  req.Method,
		RequestURL:     req.URL,
		RequestHeaders: req.Headers,
	}
	if req.Body != nil {
		body := string(req.Body)
		params.RequestBody = &body
	}
	if result.responseCode != 0 {
		code := result.responseCode
		params.ResponseCode = &code
		body := render.Redact(profile, result.responseBody)
		params.ResponseBody = &body
	}
	durationMs := int(result.duration.Milliseconds())
	params.DurationMs = &durationMs
	if result.err != nil {
		msg := render.Redact(profile, result.err.Error())
		params.Error = &msg
	}

	if _, err := e.log.CreateDeliveryAttempt(ctx, params); err != nil {
		e.logger.Error(ctx, "failed to record delivery attempt", err)
	}
}
