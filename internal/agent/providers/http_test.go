package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volition-run/volition/internal/agent"
)

func TestDoJSON_RetriesOnServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, err := doJSON(context.Background(), "test", "m", server.URL, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestDoJSON_DoesNotRetryOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := doJSON(context.Background(), "test", "m", server.URL, nil, []byte(`{}`))
	require.Error(t, err)
	var pe *agent.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, agent.ProviderErrorHTTPStatus, pe.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestDoJSON_ExhaustsRetryBudgetOnPersistentFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := doJSON(context.Background(), "test", "m", server.URL, nil, []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, int32(providerRetryBudget), atomic.LoadInt32(&attempts))
}

func TestLimiterFor_SameProviderReturnsSameLimiter(t *testing.T) {
	a := limiterFor("limiter-test-openai")
	b := limiterFor("limiter-test-openai")
	c := limiterFor("limiter-test-ollama")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestDoJSON_RateLimitsPerProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	providerName := "rate-limit-test"
	limiterFor(providerName).SetBurst(1)
	defer limiterFor(providerName).SetBurst(providerRateBurst)

	for i := 0; i < providerRateBurst+1; i++ {
		_, _ = doJSON(context.Background(), providerName, "m", server.URL, nil, []byte(`{}`))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := doJSON(ctx, providerName, "m", server.URL, nil, []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
