package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
)

const weatherName = "weather"

// WeatherSnapshot is a single forecast sample.
type WeatherSnapshot struct {
	Description string
	Temp        float64
	FeelsLike   float64
	Humidity    int
	WindSpeed   float64
}

// Weather fetches forecast samples from the OpenWeatherMap 5-day/3-hour API.
type Weather struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
	now     func() time.Time
}

// NewWeather constructs a Weather provider.
func NewWeather(client *http.Client, baseURL, apiKey string, log *slog.Logger) *Weather {
	if log == nil {
		log = slog.Default()
	}

	return &Weather{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
		now:     time.Now,
	}
}

type forecastResponse struct {
	List []forecastEntry `json:"list"`
}

type forecastEntry struct {
	DtTxt   string `json:"dt_txt"`
	Main    *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Forecast returns a single representative forecast sample for the given
// coordinates and day. For today this is the first available entry; for
// tomorrow it is the median-indexed entry among the entries dated tomorrow,
// which yields a mid-day sample rather than an average.
func (w *Weather) Forecast(ctx context.Context, lat, lon float64, day Day) (WeatherSnapshot, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/forecast?lat=%f&lon=%f&appid=%s&units=metric&lang=ru",
		w.baseURL, lat, lon, w.apiKey)

	var resp forecastResponse
	if err := getJSON(ctx, w.client, weatherName, endpoint, &resp); err != nil {
		return WeatherSnapshot{}, err
	}

	entry, err := pickEntry(resp.List, day, w.now())
	if err != nil {
		return WeatherSnapshot{}, err
	}

	return snapshotFromEntry(entry)
}

func pickEntry(list []forecastEntry, day Day, now time.Time) (forecastEntry, error) {
	if len(list) == 0 {
		return forecastEntry{}, malformedWeather(fmt.Errorf("empty forecast list"))
	}

	if day != DayTomorrow {
		return list[0], nil
	}

	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	var matched []forecastEntry
	for _, entry := range list {
		date, _, found := strings.Cut(entry.DtTxt, " ")
		if found && date == tomorrow {
			matched = append(matched, entry)
		}
	}

	if len(matched) == 0 {
		return forecastEntry{}, malformedWeather(fmt.Errorf("no forecast entries for %s", tomorrow))
	}

	return matched[len(matched)/2], nil
}

func snapshotFromEntry(entry forecastEntry) (WeatherSnapshot, error) {
	if entry.Main == nil || entry.Wind == nil || len(entry.Weather) == 0 {
		return WeatherSnapshot{}, malformedWeather(fmt.Errorf("forecast entry missing required fields"))
	}

	return WeatherSnapshot{
		Description: entry.Weather[0].Description,
		Temp:        entry.Main.Temp,
		FeelsLike:   entry.Main.FeelsLike,
		Humidity:    entry.Main.Humidity,
		WindSpeed:   entry.Wind.Speed,
	}, nil
}

func malformedWeather(cause error) error {
	return apperrors.NewProviderMalformedError(weatherName, cause)
}
