package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func forecastJSON() string {
	entry := func(dt string, temp float64) string {
		return fmt.Sprintf(`{
			"dt_txt": %q,
			"main": {"temp": %f, "feels_like": %f, "humidity": 70},
			"weather": [{"description": "пасмурно"}],
			"wind": {"speed": 3.1}
		}`, dt, temp, temp-2)
	}

	return fmt.Sprintf(`{"list": [%s, %s, %s, %s, %s]}`,
		entry("2024-03-15 15:00:00", 5),
		entry("2024-03-16 00:00:00", 1),
		entry("2024-03-16 09:00:00", 4),
		entry("2024-03-16 15:00:00", 8),
		entry("2024-03-17 00:00:00", 2),
	)
}

func newTestWeather(t *testing.T, handler http.HandlerFunc) *Weather {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	w := NewWeather(srv.Client(), srv.URL, "test-key", testLogger())
	w.now = func() time.Time { return fixedNow }
	return w
}

func TestWeather_ForecastToday(t *testing.T) {
	w := newTestWeather(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/forecast", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "ru", r.URL.Query().Get("lang"))

		_, _ = rw.Write([]byte(forecastJSON()))
	})

	snapshot, err := w.Forecast(context.Background(), 53.2, 50.15, DayToday)
	require.NoError(t, err)

	// Today always uses the first list entry.
	assert.Equal(t, 5.0, snapshot.Temp)
	assert.Equal(t, 3.0, snapshot.FeelsLike)
	assert.Equal(t, 70, snapshot.Humidity)
	assert.Equal(t, 3.1, snapshot.WindSpeed)
	assert.Equal(t, "пасмурно", snapshot.Description)
}

func TestWeather_ForecastTomorrowPicksMedianEntry(t *testing.T) {
	w := newTestWeather(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(forecastJSON()))
	})

	snapshot, err := w.Forecast(context.Background(), 53.2, 50.15, DayTomorrow)
	require.NoError(t, err)

	// Three entries are dated 2024-03-16; index 3/2=1 is the 09:00 sample.
	assert.Equal(t, 4.0, snapshot.Temp)
}

func TestWeather_ForecastTomorrowMissing(t *testing.T) {
	w := newTestWeather(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"list": [{"dt_txt": "2024-03-15 15:00:00",
			"main": {"temp": 1, "feels_like": 0, "humidity": 50},
			"weather": [{"description": "ясно"}], "wind": {"speed": 1}}]}`))
	})

	_, err := w.Forecast(context.Background(), 53.2, 50.15, DayTomorrow)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E301", appErr.Code)
}

func TestWeather_ForecastEntryMissingFields(t *testing.T) {
	w := newTestWeather(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"list": [{"dt_txt": "2024-03-15 15:00:00"}]}`))
	})

	_, err := w.Forecast(context.Background(), 53.2, 50.15, DayToday)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E301", appErr.Code)
}

func TestWeather_ForecastUpstreamError(t *testing.T) {
	w := newTestWeather(t, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	_, err := w.Forecast(context.Background(), 53.2, 50.15, DayToday)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E300", appErr.Code)
	assert.True(t, appErr.Retryable)
}
