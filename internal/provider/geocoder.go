package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
)

const geocoderName = "geocoder"

// Geocoder resolves a city name to geographic coordinates using the
// OpenWeatherMap direct geocoding API.
type Geocoder struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

// NewGeocoder constructs a Geocoder.
func NewGeocoder(client *http.Client, baseURL, apiKey string, log *slog.Logger) *Geocoder {
	if log == nil {
		log = slog.Default()
	}

	return &Geocoder{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

// Coordinates returns the latitude and longitude of the first geocoding hit
// for the given city name.
func (g *Geocoder) Coordinates(ctx context.Context, city string) (float64, float64, error) {
	endpoint := fmt.Sprintf("%s/geo/1.0/direct?q=%s&limit=1&appid=%s",
		g.baseURL, url.QueryEscape(city), g.apiKey)

	var hits []struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}

	if err := getJSON(ctx, g.client, geocoderName, endpoint, &hits); err != nil {
		return 0, 0, err
	}

	if len(hits) == 0 {
		return 0, 0, apperrors.NewNotFoundError("city " + city)
	}

	if hits[0].Lat == nil || hits[0].Lon == nil {
		return 0, 0, apperrors.NewProviderMalformedError(geocoderName, fmt.Errorf("hit without coordinates for %q", city))
	}

	return *hits[0].Lat, *hits[0].Lon, nil
}
