// Package fx resolves exchange rates with a short-lived cache and a static
// fallback table. Lookup failures degrade to the fallback table; they are never
// surfaced as transport errors.
package fx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/reliability"
)

var ErrUnsupportedPair = errors.New("unsupported currency pair")

// Rate is a resolved exchange rate. Fallback is true when the value came from
// the static table instead of the live API.
type Rate struct {
	Value    float64 `json:"value"`
	Fallback bool    `json:"fallback"`
}

// fallbackPerEUR holds approximate units per 1 EUR, used when the API is
// unreachable. Cross rates derive through EUR.
var fallbackPerEUR = map[string]float64{
	"EUR": 1.00,
	"USD": 1.09,
	"GBP": 0.85,
	"INR": 91.0,
}

type cachedRate struct {
	value   float64
	fetched time.Time
}

// Lookup owns the rate cache explicitly rather than as process-global state.
type Lookup struct {
	client *resty.Client
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]cachedRate
	now   func() time.Time
}

func NewLookup(baseURL string, timeout, cacheTTL time.Duration) *Lookup {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)
	return &Lookup{
		client: client,
		ttl:    cacheTTL,
		cache:  make(map[string]cachedRate),
		now:    time.Now,
	}
}

type latestResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate resolves base→quote. Order: identity, cache, live API (one retry),
// static fallback table. Returns ErrUnsupportedPair only when neither the API
// nor the table knows the pair.
func (l *Lookup) Rate(ctx context.Context, base, quote string) (Rate, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return Rate{}, fmt.Errorf("%w: %q/%q", ErrUnsupportedPair, base, quote)
	}
	if base == quote {
		return Rate{Value: 1}, nil
	}

	key := base + "/" + quote
	l.mu.Lock()
	if c, ok := l.cache[key]; ok && l.now().Sub(c.fetched) < l.ttl {
		l.mu.Unlock()
		return Rate{Value: c.value}, nil
	}
	l.mu.Unlock()

	value, err := l.fetch(ctx, base, quote)
	if err == nil {
		l.mu.Lock()
		l.cache[key] = cachedRate{value: value, fetched: l.now()}
		l.mu.Unlock()
		return Rate{Value: value}, nil
	}
	if errors.Is(err, context.Canceled) {
		return Rate{}, err
	}

	if value, ok := fallbackRate(base, quote); ok {
		return Rate{Value: value, Fallback: true}, nil
	}
	return Rate{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, base, quote)
}

func (l *Lookup) fetch(ctx context.Context, base, quote string) (float64, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt, 150*time.Millisecond, time.Second)):
			}
		}

		var body latestResponse
		resp, err := l.client.R().
			SetContext(ctx).
			SetQueryParam("from", base).
			SetQueryParam("to", quote).
			SetResult(&body).
			// Decode as JSON even if the server mislabels the body.
			ForceContentType("application/json").
			Get("/latest")
		if err != nil {
			lastErr = fmt.Errorf("rate request: %w", err)
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("rate api status %d", resp.StatusCode())
			if !reliability.IsRetryableHTTPStatus(resp.StatusCode()) {
				return 0, lastErr
			}
			continue
		}
		value, ok := body.Rates[quote]
		if !ok || value <= 0 {
			return 0, fmt.Errorf("rate api missing %s in response", quote)
		}
		return value, nil
	}
	return 0, lastErr
}

func fallbackRate(base, quote string) (float64, bool) {
	b, okB := fallbackPerEUR[base]
	q, okQ := fallbackPerEUR[quote]
	if !okB || !okQ {
		return 0, false
	}
	return q / b, true
}
