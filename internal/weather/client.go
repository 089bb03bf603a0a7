// Package weather looks up current conditions from OpenWeather. Reports feed
// the commute summary only; a fetch failure degrades to an unavailable report
// rather than failing the notification.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"commutewatch/internal/types"
)

// badConditions are the OpenWeather condition groups that make the commute
// summary flag the weather.
var badConditions = map[string]bool{
	"thunderstorm": true,
	"rain":         true,
	"snow":         true,
}

// Doer is the outbound HTTP contract, satisfied by external.BaseClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads current conditions for a coordinate pair.
type Client struct {
	doer    Doer
	baseURL string
	apiKey  types.SecretString
	logger  types.Logger
}

// ClientConfig holds the configuration for creating a Client.
type ClientConfig struct {
	Doer    Doer
	BaseURL string
	APIKey  types.SecretString
	Logger  types.Logger
}

// NewClient creates a weather Client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Client{
		doer:    cfg.Doer,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// currentResponse is the subset of OpenWeather's current-conditions payload
// the summary uses.
type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// Current returns the conditions at the given coordinates. On any failure it
// returns a report with Available=false and a nil error; weather is advisory
// and must never fail a commute check.
func (c *Client) Current(ctx context.Context, lat, lon float64) types.WeatherReport {
	report, err := c.fetch(ctx, lat, lon)
	if err != nil {
		c.logger.Warn("weather lookup failed", "lat", lat, "lon", lon, "error", err)
		return types.WeatherReport{Description: "Unavailable"}
	}
	return report
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (types.WeatherReport, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.5f", lat))
	q.Set("lon", fmt.Sprintf("%.5f", lon))
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return types.WeatherReport{}, types.NewAppError(
			types.ErrCodeInternalUnexpected, "building weather request", err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return types.WeatherReport{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.WeatherReport{}, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather provider returned status %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.WeatherReport{}, types.NewAppError(
			types.ErrCodeUpstreamWeather, "reading weather response", err)
	}

	var payload currentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return types.WeatherReport{}, types.NewAppError(
			types.ErrCodeUpstreamWeather, "decoding weather response", err)
	}

	report := types.WeatherReport{
		Description: "Clear",
		TempCelsius: payload.Main.Temp,
		Available:   true,
	}
	for i, w := range payload.Weather {
		if i == 0 && w.Description != "" {
			report.Description = w.Description
		}
		if badConditions[strings.ToLower(w.Main)] {
			report.IsBad = true
		}
	}
	return report, nil
}
