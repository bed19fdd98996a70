// Package providers implements the three ChatModel wire formats named in
// §4.1: OpenAI-compatible, Gemini native, and Ollama/local. Each is a thin
// module that builds a payload, sets headers, and parses a response —
// there is no vendor SDK and no central if-ladder switching on provider
// name, per the teacher's one-file-per-vendor layout.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/volition-run/volition/internal/agent"
	"github.com/volition-run/volition/internal/backoff"
)

// sharedHTTPClient is the process-wide client every provider variant
// shares, per §4.1's "HTTP transport is the process-wide *http.Client".
var sharedHTTPClient = &http.Client{Timeout: 2 * time.Minute}

// providerRetryBudget is the number of attempts (including the first) a
// provider call gets before a retriable failure becomes terminal (§5).
const providerRetryBudget = 3

// providerRateLimit and providerRateBurst bound outbound requests per
// vendor, independent of how many goroutines share a provider (parallel
// tool-call delegation, nested orchestrators all calling the same model).
// Burst permits a short catch-up after an idle period without letting a
// retry loop hammer a vendor that just returned a 5xx.
const (
	providerRateLimit = 5
	providerRateBurst = 10
)

var (
	limiterMu sync.Mutex
	limiters  = map[string]*rate.Limiter{}
)

// limiterFor returns the shared rate.Limiter for a provider, creating it on
// first use. One limiter per provider name, not per model, since vendor
// rate limits are account-wide rather than per-model.
func limiterFor(providerName string) *rate.Limiter {
	limiterMu.Lock()
	defer limiterMu.Unlock()
	l, ok := limiters[providerName]
	if !ok {
		l = rate.NewLimiter(rate.Limit(providerRateLimit), providerRateBurst)
		limiters[providerName] = l
	}
	return l
}

// doJSON posts body to url with the given headers, retrying network
// failures and 5xx responses per the shared backoff policy (§4.1), and
// returns the raw successful response body. 4xx responses are returned
// immediately as a terminal *agent.ProviderError without being retried —
// RetryWithBackoff has no notion of "stop early", so the retry loop here is
// hand-rolled around backoff.ComputeBackoff/SleepWithContext instead.
func doJSON(ctx context.Context, providerName, model, url string, headers map[string]string, body []byte) ([]byte, error) {
	policy := backoff.ProviderRetryPolicy()
	var lastErr error

	for attempt := 1; attempt <= providerRetryBudget; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := limiterFor(providerName).Wait(ctx); err != nil {
			return nil, err
		}

		respBody, providerErr := attemptJSON(ctx, providerName, url, headers, body)
		if providerErr == nil {
			return respBody, nil
		}
		lastErr = providerErr

		var pe *agent.ProviderError
		if !errors.As(providerErr, &pe) || !pe.Retryable() || attempt >= providerRetryBudget {
			return nil, providerErr
		}
		if err := backoff.SleepWithContext(ctx, backoff.ComputeBackoff(policy, attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func attemptJSON(ctx context.Context, providerName, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &agent.ProviderError{Provider: providerName, Kind: agent.ProviderErrorParse, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, &agent.ProviderError{Provider: providerName, Kind: agent.ProviderErrorNetwork, Cause: err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return nil, &agent.ProviderError{Provider: providerName, Kind: agent.ProviderErrorNetwork, Cause: readErr}
	}

	if resp.StatusCode >= 500 {
		return nil, &agent.ProviderError{Provider: providerName, Kind: agent.ProviderErrorNetwork, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if resp.StatusCode >= 400 {
		return nil, &agent.ProviderError{Provider: providerName, Kind: agent.ProviderErrorHTTPStatus, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func decodeJSON[T any](providerName string, body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		var zero T
		return zero, &agent.ProviderError{Provider: providerName, Kind: agent.ProviderErrorParse, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return v, nil
}
