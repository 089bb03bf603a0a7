package transit

import (
	"context"
	"html"
	"strings"
	"time"

	"commutewatch/internal/types"
)

// providerDepLayout is the timestamp format on rail schedule rows,
// e.g. "29-Aug-2026 01:35:00 PM".
const providerDepLayout = "02-Jan-2006 03:04:05 PM"

// boardClockLayout is the human clock format the rest of the system renders,
// matching the bus provider's departure times.
const boardClockLayout = "03:04 PM"

// RailClient reads the departure board and service advisories for one rail
// station. It implements the afternoon evaluator's data contract.
type RailClient struct {
	doer    Doer
	tokens  *TokenSource
	baseURL string
	logger  types.Logger
}

// RailClientConfig holds the configuration for creating a RailClient.
type RailClientConfig struct {
	Doer    Doer
	Tokens  *TokenSource
	BaseURL string
	Logger  types.Logger
}

// NewRailClient creates a RailClient with the given configuration.
func NewRailClient(cfg RailClientConfig) *RailClient {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &RailClient{
		doer:    cfg.Doer,
		tokens:  cfg.Tokens,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// scheduleItem is the provider's getTrainSchedule row.
type scheduleItem struct {
	LineAbbreviation string `json:"LINEABBREVIATION"`
	Destination      string `json:"DESTINATION"`
	Track            string `json:"TRACK"`
	Stops            []struct {
		DepTime    string `json:"DEP_TIME"`
		StopStatus string `json:"STOP_STATUS"`
	} `json:"STOPS"`
}

// allowedLines returns the lines worth showing for a station: the three city
// lines at Penn Station, only the Raritan Valley line elsewhere.
func allowedLines(station string) map[string]bool {
	if station == "NY" {
		return map[string]bool{"NEC": true, "RARV": true, "NJCL": true}
	}
	return map[string]bool{"RARV": true}
}

// TrainSchedule returns the next departures from the station board, filtered
// to the commute-relevant lines, at most limit rows.
func (c *RailClient) TrainSchedule(ctx context.Context, station string, limit int) ([]types.ScheduledTrain, error) {
	var payload struct {
		Items []scheduleItem `json:"ITEMS"`
	}
	err := callAPI(ctx, c.doer, c.tokens, c.baseURL+"/api/TrainData/getTrainSchedule", map[string]string{
		"station": station,
	}, &payload)
	if err != nil {
		return nil, err
	}

	allowed := allowedLines(station)
	trains := make([]types.ScheduledTrain, 0, limit)
	for _, item := range payload.Items {
		line := strings.ToUpper(item.LineAbbreviation)
		if !allowed[line] || len(item.Stops) == 0 {
			continue
		}

		first := item.Stops[0]
		clock := "N/A"
		if dep, err := time.Parse(providerDepLayout, first.DepTime); err == nil {
			clock = dep.Format(boardClockLayout)
		}

		status := strings.ToUpper(strings.TrimSpace(first.StopStatus))
		switch {
		case strings.Contains(status, "DELAY"):
			status = "DELAYED"
		case status == "":
			status = "UNKNOWN"
		}

		track := item.Track
		if track == "" {
			track = "?"
		}

		trains = append(trains, types.ScheduledTrain{
			Line:        line,
			Destination: html.UnescapeString(item.Destination),
			Time:        clock,
			Track:       track,
			Status:      status,
		})

		if limit > 0 && len(trains) >= limit {
			break
		}
	}
	return trains, nil
}

// stationMessage is the provider's getStationMSG row.
type stationMessage struct {
	MsgText string `json:"MSG_TEXT"`
}

// StationAlerts returns the station's active advisory texts, HTML-unescaped
// and trimmed, with empty messages dropped.
func (c *RailClient) StationAlerts(ctx context.Context, station string) ([]string, error) {
	var messages []stationMessage
	err := callAPI(ctx, c.doer, c.tokens, c.baseURL+"/api/TrainData/getStationMSG", map[string]string{
		"station": station,
		"line":    "",
	}, &messages)
	if err != nil {
		return nil, err
	}

	alerts := make([]string, 0, len(messages))
	for _, m := range messages {
		text := strings.TrimSpace(html.UnescapeString(m.MsgText))
		if text != "" {
			alerts = append(alerts, text)
		}
	}
	return alerts, nil
}
