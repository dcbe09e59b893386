package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestTraffic(t *testing.T, handler http.HandlerFunc) *Traffic {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewTraffic(srv.Client(), srv.URL, "test-key", testLogger())
}

func TestTraffic_Level(t *testing.T) {
	testCases := []struct {
		name     string
		current  float64
		freeFlow float64
		expected int
	}{
		{name: "half speed", current: 50, freeFlow: 100, expected: 5},
		{name: "free flowing", current: 100, freeFlow: 100, expected: 1},
		{name: "faster than free flow clamps to one", current: 120, freeFlow: 100, expected: 1},
		{name: "standstill", current: 0, freeFlow: 100, expected: 10},
		{name: "light congestion rounds", current: 87, freeFlow: 100, expected: 1},
		{name: "moderate congestion rounds", current: 66, freeFlow: 100, expected: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTraffic(t, func(rw http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))
				_, _ = rw.Write([]byte(`{"flowSegmentData": {
					"currentSpeed": ` + floatString(tc.current) + `,
					"freeFlowSpeed": ` + floatString(tc.freeFlow) + `}}`))
			})

			assert.Equal(t, tc.expected, tr.Level(context.Background(), 53.2, 50.15))
		})
	}
}

func TestTraffic_LevelDegradesOnFailure(t *testing.T) {
	t.Run("upstream error", func(t *testing.T) {
		tr := newTestTraffic(t, func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(http.StatusBadGateway)
		})

		assert.Equal(t, 1, tr.Level(context.Background(), 53.2, 50.15))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		client := srv.Client()
		srv.Close()

		tr := NewTraffic(client, srv.URL, "test-key", testLogger())
		assert.Equal(t, 1, tr.Level(context.Background(), 53.2, 50.15))
	})

	t.Run("missing flow data", func(t *testing.T) {
		tr := newTestTraffic(t, func(rw http.ResponseWriter, _ *http.Request) {
			_, _ = rw.Write([]byte(`{}`))
		})

		assert.Equal(t, 1, tr.Level(context.Background(), 53.2, 50.15))
	})
}

func floatString(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
