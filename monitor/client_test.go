package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/config"
)

func testRetryPolicy() config.RetryPolicy {
	return config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    1,
		MaxDelayMs:        10,
		BackoffMultiplier: 2.0,
	}
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hola"))
	}))
	defer server.Close()

	c := NewClient(0, 5*time.Second, "test-agent", testRetryPolicy())
	body, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(body))
}

func TestClient_SendsHeaders(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	c := NewClient(0, 5*time.Second, "test-agent", testRetryPolicy())
	_, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", gotAgent)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := NewClient(0, 5*time.Second, "test-agent", testRetryPolicy())
	body, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(0, 5*time.Second, "test-agent", testRetryPolicy())
	_, err := c.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

// A 404 is permanent: one attempt, no retries.
func TestClient_NoRetryOnNotFound(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(0, 5*time.Second, "test-agent", testRetryPolicy())
	_, err := c.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

// Timeouts count as transient failures and go through the retry policy.
func TestClient_TimeoutRetriedThenFails(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(0, 20*time.Millisecond, "test-agent", testRetryPolicy())
	_, err := c.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_PolitenessInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	interval := 50 * time.Millisecond
	c := NewClient(interval, 5*time.Second, "test-agent", testRetryPolicy())

	start := time.Now()
	_, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), interval)
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(0, 5*time.Second, "test-agent", testRetryPolicy())
	_, err := c.Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
