// Package provider wraps the external data sources queried by the bot:
// geocoding and weather (OpenWeatherMap), traffic flow (TomTom), currency
// rates (freecurrencyapi), and the events listing site. Each provider exposes
// one fetch operation returning a typed result or an *errors.AppError; none
// retries internally.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/pkg/metrics"
)

// Day selects which forecast or listing day a query targets.
type Day string

const (
	DayToday    Day = "today"
	DayTomorrow Day = "tomorrow"
)

// Date resolves the selector against now using the local calendar.
func (d Day) Date(now time.Time) time.Time {
	if d == DayTomorrow {
		return now.AddDate(0, 0, 1)
	}

	return now
}

// NewHTTPClient returns the http.Client shared by providers, enforcing the
// configured per-call timeout since providers are untrusted external services.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET request and decodes the JSON body into v.
func getJSON(ctx context.Context, client *http.Client, provider, url string, v any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.NewProviderUnreachableError(provider, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(provider, "unreachable", time.Since(start))
		return apperrors.NewProviderUnreachableError(provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest(provider, "error", time.Since(start))
		return apperrors.NewProviderUnreachableError(provider, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordProviderRequest(provider, "unreachable", time.Since(start))
		return apperrors.NewProviderUnreachableError(provider, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		metrics.RecordProviderRequest(provider, "malformed", time.Since(start))
		return apperrors.NewProviderMalformedError(provider, err)
	}

	metrics.RecordProviderRequest(provider, "ok", time.Since(start))
	return nil
}
