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

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *Geocoder {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGeocoder(srv.Client(), srv.URL, "test-key", testLogger())
}

func TestGeocoder_Coordinates(t *testing.T) {
	g := newTestGeocoder(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "Самара", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		_, _ = rw.Write([]byte(`[{"lat": 53.1959, "lon": 50.1002}]`))
	})

	lat, lon, err := g.Coordinates(context.Background(), "Самара")
	require.NoError(t, err)
	assert.Equal(t, 53.1959, lat)
	assert.Equal(t, 50.1002, lon)
}

func TestGeocoder_CityNotFound(t *testing.T) {
	g := newTestGeocoder(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`[]`))
	})

	_, _, err := g.Coordinates(context.Background(), "Нигдеград")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E404", appErr.Code)
}

func TestGeocoder_HitWithoutCoordinates(t *testing.T) {
	g := newTestGeocoder(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`[{"name": "x"}]`))
	})

	_, _, err := g.Coordinates(context.Background(), "Самара")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E301", appErr.Code)
}
