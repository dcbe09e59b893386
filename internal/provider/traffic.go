package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
)

const trafficName = "traffic"

// Traffic computes a road congestion level from the TomTom flow segment API.
type Traffic struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

// NewTraffic constructs a Traffic provider.
func NewTraffic(client *http.Client, baseURL, apiKey string, log *slog.Logger) *Traffic {
	if log == nil {
		log = slog.Default()
	}

	return &Traffic{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

type flowSegmentResponse struct {
	FlowSegmentData *struct {
		CurrentSpeed  float64 `json:"currentSpeed"`
		FreeFlowSpeed float64 `json:"freeFlowSpeed"`
	} `json:"flowSegmentData"`
}

// Level returns the congestion level near the given coordinates on a 1..10
// scale. An unreachable or malformed provider degrades to level 1 instead of
// failing the conversation.
func (t *Traffic) Level(ctx context.Context, lat, lon float64) int {
	endpoint := fmt.Sprintf("%s/traffic/services/4/flowSegmentData/absolute/10/json?point=%f,%f&key=%s",
		t.baseURL, lat, lon, t.apiKey)

	var resp flowSegmentResponse
	if err := getJSON(ctx, t.client, trafficName, endpoint, &resp); err != nil {
		t.log.Warn("traffic provider unavailable, defaulting to level 1", slog.Any("error", err))
		return 1
	}

	data := resp.FlowSegmentData
	if data == nil || data.FreeFlowSpeed <= 0 {
		t.log.Warn("traffic provider returned no flow data, defaulting to level 1")
		return 1
	}

	return congestionLevel(data.CurrentSpeed, data.FreeFlowSpeed)
}

// congestionLevel maps speeds to max(round((1-current/freeFlow)*10), 1).
func congestionLevel(currentSpeed, freeFlowSpeed float64) int {
	level := int(math.Round((1 - currentSpeed/freeFlowSpeed) * 10))
	if level < 1 {
		return 1
	}

	return level
}
