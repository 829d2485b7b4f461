package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cpa-server/internal/clock"
	"cpa-server/internal/observability"
	"cpa-server/internal/postbacks/render"
	"cpa-server/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLog records attempts in memory
type memLog struct {
	mu       sync.Mutex
	attempts []store.CreateDeliveryAttemptParams
	err      error
}

func (m *memLog) CreateDeliveryAttempt(ctx context.Context, params store.CreateDeliveryAttemptParams) (store.DeliveryAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, params)
	if m.err != nil {
		return store.DeliveryAttempt{}, m.err
	}
	return store.DeliveryAttempt{ID: uuid.New(), Attempt: params.Attempt}, nil
}

func (m *memLog) all() []store.CreateDeliveryAttemptParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.CreateDeliveryAttemptParams, len(m.attempts))
	copy(out, m.attempts)
	return out
}

func fixedRandom(v float64) func() float64 {
	return func() float64 { return v }
}

// drive runs fn and fires every backoff timer as soon as it is scheduled,
// returning the outcome and the delays that were waited.
func drive(t *testing.T, clk *clock.Fake, fn func() Outcome) (Outcome, []time.Duration) {
	t.Helper()

	done := make(chan Outcome, 1)
	go func() { done <- fn() }()

	var delays []time.Duration
	deadline := time.After(5 * time.Second)
	for {
		select {
		case out := <-done:
			return out, delays
		case <-deadline:
			t.Fatal("delivery did not finish")
		default:
		}
		if clk.BlockUntil(1, 20*time.Millisecond) {
			d := clk.Pending()[0]
			delays = append(delays, d)
			clk.Advance(d)
		}
	}
}

func newRequest(url string) render.Request {
	return render.Request{
		Method:  http.MethodGet,
		URL:     url + "/postback?clickid=c1&status=approved",
		Headers: map[string]string{"User-Agent": render.UserAgent},
	}
}

func TestDeliver_SuccessFirstAttempt(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, render.UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "c1", r.URL.Query().Get("clickid"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	profile := store.PostbackProfile{ID: uuid.New(), Retries: 3}
	out, delays := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), profile, uuid.New(), newRequest(server.URL))
	})

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, http.StatusOK, out.ResponseCode)
	assert.Empty(t, delays)
	assert.Equal(t, int32(1), hits.Load())

	attempts := log.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, 1, attempts[0].Attempt)
	assert.Equal(t, 3, attempts[0].MaxAttempts)
	assert.True(t, attempts[0].Success)
	require.NotNil(t, attempts[0].ResponseCode)
	assert.Equal(t, http.StatusOK, *attempts[0].ResponseCode)
	assert.Equal(t, "ok", *attempts[0].ResponseBody)
	assert.Nil(t, attempts[0].Error)
}

func TestDeliver_RetriesWithBackoffUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger(), WithRandom(fixedRandom(0.5)))

	profile := store.PostbackProfile{ID: uuid.New(), Retries: 5, BackoffBaseSec: 1}
	out, delays := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), profile, uuid.New(), newRequest(server.URL))
	})

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 3, out.Attempts)
	require.Len(t, delays, 2)
	assert.InDelta(t, float64(time.Second), float64(delays[0]), float64(time.Millisecond))
	assert.InDelta(t, float64(2*time.Second), float64(delays[1]), float64(time.Millisecond))

	attempts := log.all()
	require.Len(t, attempts, 3)
	for i, a := range attempts {
		assert.Equal(t, i+1, a.Attempt)
	}
	assert.False(t, attempts[0].Success)
	require.NotNil(t, attempts[0].Error)
	assert.Contains(t, *attempts[0].Error, "500")
	assert.True(t, attempts[2].Success)
}

func TestDeliver_ExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	profile := store.PostbackProfile{ID: uuid.New(), Retries: 3, BackoffBaseSec: 2}
	out, delays := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), profile, uuid.New(), newRequest(server.URL))
	})

	assert.Equal(t, StateExhausted, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, http.StatusBadGateway, out.ResponseCode)
	assert.Error(t, out.Err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Len(t, delays, 2)
	assert.Len(t, log.all(), 3)
}

func TestDeliver_DefaultRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), store.PostbackProfile{ID: uuid.New()}, uuid.New(), newRequest(server.URL))
	})

	assert.Equal(t, StateExhausted, out.State)
	assert.Equal(t, store.DefaultRetries, out.Attempts)
}

func TestDeliver_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	profile := store.PostbackProfile{ID: uuid.New(), Retries: 1, TimeoutMs: 50}
	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), profile, uuid.New(), newRequest(server.URL))
	})

	assert.Equal(t, StateExhausted, out.State)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "timeout")

	attempts := log.all()
	require.Len(t, attempts, 1)
	assert.Nil(t, attempts[0].ResponseCode)
	require.NotNil(t, attempts[0].Error)
}

func TestDeliver_ResponseBodyCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64*1024)))
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), store.PostbackProfile{ID: uuid.New()}, uuid.New(), newRequest(server.URL))
	})

	require.Equal(t, StateSuccess, out.State)
	attempts := log.all()
	require.Len(t, attempts, 1)
	assert.Len(t, *attempts[0].ResponseBody, maxResponseBody)
}

func TestDeliver_PostBodyLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	req := render.Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Body:    []byte(`{"clickid":"c1"}`),
		Headers: map[string]string{"Content-Type": "application/json"},
	}
	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), store.PostbackProfile{ID: uuid.New()}, uuid.New(), req)
	})

	require.Equal(t, StateSuccess, out.State)
	attempts := log.all()
	require.Len(t, attempts, 1)
	require.NotNil(t, attempts[0].RequestBody)
	assert.Equal(t, `{"clickid":"c1"}`, *attempts[0].RequestBody)
	assert.Equal(t, http.MethodPost, attempts[0].RequestMethod)
}

func TestDeliver_CanceledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- executor.Deliver(ctx, store.PostbackProfile{ID: uuid.New(), Retries: 5}, uuid.New(), newRequest(server.URL))
	}()

	require.True(t, clk.BlockUntil(1, 2*time.Second))
	cancel()

	select {
	case out := <-done:
		assert.Equal(t, StateCanceled, out.State)
		assert.Equal(t, 1, out.Attempts)
		assert.ErrorIs(t, out.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not stop after cancel")
	}
	assert.Len(t, log.all(), 1)
}

func TestDeliver_LogFailureDoesNotStopDelivery(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	log := &memLog{err: errors.New("database unavailable")}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), store.PostbackProfile{ID: uuid.New(), Retries: 3}, uuid.New(), newRequest(server.URL))
	})

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 2, out.Attempts)
}

func TestDeliver_CredentialsMaskedInLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SECRET_Q", r.URL.Query().Get("token"))
		assert.Equal(t, "SECRET_H", r.Header.Get("X-Api-Key"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad token SECRET_Q"))
	}))
	defer server.Close()

	key, queryValue := "token", "SECRET_Q"
	header, headerValue := "X-Api-Key", "SECRET_H"
	profile := store.PostbackProfile{
		ID:              uuid.New(),
		EndpointURL:     server.URL + "/pb",
		Method:          store.HTTPMethodGet,
		Retries:         1,
		AuthQueryKey:    &key,
		AuthQueryValue:  &queryValue,
		AuthHeaderName:  &header,
		AuthHeaderValue: &headerValue,
	}
	conversion := store.Conversion{ID: uuid.New(), ClickID: "c1", Status: "approved"}
	req, err := render.Build(profile, render.StatusTable{}, conversion, time.Now())
	require.NoError(t, err)

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(server.Client(), log, clk, observability.NewNopLogger())

	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), profile, conversion.ID, req)
	})
	require.Equal(t, StateExhausted, out.State)

	attempts := log.all()
	require.Len(t, attempts, 1)
	row := attempts[0]
	assert.NotContains(t, row.RequestURL, "SECRET")
	assert.Contains(t, row.RequestURL, "clickid=c1")
	assert.Equal(t, render.Mask, row.RequestHeaders["X-Api-Key"])
	for name, value := range row.RequestHeaders {
		assert.NotContains(t, value, "SECRET", name)
	}
	require.NotNil(t, row.ResponseBody)
	assert.Equal(t, "bad token ***", *row.ResponseBody)
}

func TestDeliver_TransportErrorMasked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	key, value := "token", "SECRET_Q"
	profile := store.PostbackProfile{ID: uuid.New(), Retries: 1, AuthQueryKey: &key, AuthQueryValue: &value}
	req := render.Request{Method: http.MethodGet, URL: endpoint + "/pb?token=SECRET_Q"}

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(NewHTTPClient(), log, clk, observability.NewNopLogger())

	out, _ := drive(t, clk, func() Outcome {
		return executor.Deliver(context.Background(), profile, uuid.New(), req)
	})
	require.Equal(t, StateExhausted, out.State)

	attempts := log.all()
	require.Len(t, attempts, 1)
	require.NotNil(t, attempts[0].Error)
	assert.NotContains(t, *attempts[0].Error, "SECRET")
	assert.NotContains(t, attempts[0].RequestURL, "SECRET")
}

func TestNewHTTPClient_LeavesTimeoutToProfiles(t *testing.T) {
	client := NewHTTPClient()
	// a client-wide timeout would cap profiles with timeoutMs above it
	assert.Zero(t, client.Timeout)
	assert.NotNil(t, client.Transport)
}

func TestDeliver_ProfileTimeoutAboveDefaultIsKept(t *testing.T) {
	var deadline time.Time
	client := doerFunc(func(r *http.Request) (*http.Response, error) {
		deadline, _ = r.Context().Deadline()
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	log := &memLog{}
	clk := clock.NewFake(time.Now())
	executor := New(client, log, clk, observability.NewNopLogger())

	start := time.Now()
	profile := store.PostbackProfile{ID: uuid.New(), Retries: 1, TimeoutMs: 45000}
	out := executor.Deliver(context.Background(), profile, uuid.New(), newRequest("http://tracker.example.com"))

	require.Equal(t, StateSuccess, out.State)
	assert.WithinDuration(t, start.Add(45*time.Second), deadline, 5*time.Second)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second

	tests := []struct {
		attempt int
		nominal time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}

	for _, tt := range tests {
		lo := Backoff(base, tt.attempt, 0)
		hi := Backoff(base, tt.attempt, 0.999999)
		mid := Backoff(base, tt.attempt, 0.5)

		assert.InDelta(t, float64(tt.nominal)*0.8, float64(lo), float64(time.Millisecond), "attempt %d", tt.attempt)
		assert.InDelta(t, float64(tt.nominal)*1.2, float64(hi), float64(time.Millisecond), "attempt %d", tt.attempt)
		assert.InDelta(t, float64(tt.nominal), float64(mid), float64(time.Millisecond), "attempt %d", tt.attempt)
	}

	assert.Equal(t, Backoff(base, 1, 0.5), Backoff(base, 0, 0.5))
}
