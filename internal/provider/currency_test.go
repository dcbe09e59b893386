package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
)

func newTestCurrency(t *testing.T, handler http.HandlerFunc) *Currency {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewCurrency(srv.Client(), srv.URL, "test-key", testLogger())
}

func TestCurrency_RatesInvertsAndRounds(t *testing.T) {
	c := newTestCurrency(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/latest", r.URL.Path)
		assert.Equal(t, "RUB", r.URL.Query().Get("base_currency"))
		assert.Equal(t, "USD,EUR,GBP,JPY,CNY", r.URL.Query().Get("currencies"))

		_, _ = rw.Write([]byte(`{"data": {
			"USD": 0.011, "EUR": 0.010, "GBP": 0.0087, "JPY": 1.63, "CNY": 0.079
		}}`))
	})

	rates, err := c.Rates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 5)

	// Order is fixed regardless of the JSON map order.
	assert.Equal(t, "Доллар США", rates[0].Name)
	assert.Equal(t, 90.91, rates[0].Value)
	assert.Equal(t, "Евро", rates[1].Name)
	assert.Equal(t, 100.0, rates[1].Value)
	assert.Equal(t, "Британский фунт", rates[2].Name)
	assert.Equal(t, "Японская йена", rates[3].Name)
	assert.Equal(t, 0.61, rates[3].Value)
	assert.Equal(t, "Китайский юань", rates[4].Name)
}

func TestCurrency_RatesMissingCode(t *testing.T) {
	c := newTestCurrency(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"data": {"USD": 0.011}}`))
	})

	_, err := c.Rates(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E301", appErr.Code)
}

func TestCurrency_RatesEmptyPayload(t *testing.T) {
	c := newTestCurrency(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"data": {}}`))
	})

	_, err := c.Rates(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E301", appErr.Code)
}

func TestInvertRate(t *testing.T) {
	assert.Equal(t, 90.91, invertRate(0.011))
	assert.Equal(t, 100.0, invertRate(0.01))
	assert.Equal(t, 1.0, invertRate(1))
}
