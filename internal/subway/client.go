// Package subway reads upcoming arrivals for the monitored platform from the
// MTA's GTFS-realtime feed. The city-side commute summary shows the next few
// downtown trains at 59th & Lexington with a walk buffer applied.
package subway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"commutewatch/internal/types"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// walkBuffer is how long it takes to reach the platform; trains arriving
// sooner than this are unreachable and dropped.
const walkBuffer = 5 * time.Minute

// maxArrivals caps how many upcoming trains the summary shows.
const maxArrivals = 3

// Doer is the outbound HTTP contract, satisfied by external.BaseClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client decodes the N/Q/R/W GTFS-RT feed for a set of platform stop IDs.
type Client struct {
	doer    Doer
	feedURL string
	apiKey  types.SecretString
	stopIDs map[string]bool
	clock   types.Clock
	logger  types.Logger
}

// ClientConfig holds the configuration for creating a subway Client.
type ClientConfig struct {
	Doer    Doer
	FeedURL string
	APIKey  types.SecretString
	StopIDs []string
	Clock   types.Clock
	Logger  types.Logger
}

// NewClient creates a subway Client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	stops := make(map[string]bool, len(cfg.StopIDs))
	for _, id := range cfg.StopIDs {
		stops[id] = true
	}
	return &Client{
		doer:    cfg.Doer,
		feedURL: cfg.FeedURL,
		apiKey:  cfg.APIKey,
		stopIDs: stops,
		clock:   clock,
		logger:  logger,
	}
}

// UpcomingArrivals returns the next reachable trains at the monitored
// platform, soonest first, capped at three.
func (c *Client) UpcomingArrivals(ctx context.Context) ([]types.SubwayArrival, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected, "building subway feed request", err)
	}
	if key := c.apiKey.Unmask(); key != "" {
		req.Header.Set("x-api-key", key)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamSubway,
			fmt.Sprintf("feed returned status %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSubway, "reading feed", err)
	}

	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSubway, "decoding feed", err)
	}

	now := c.clock.Now()
	reachable := now.Add(walkBuffer)

	var arrivals []types.SubwayArrival
	for _, entity := range feed.Entity {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		route := tu.GetTrip().GetRouteId()

		for _, update := range tu.StopTimeUpdate {
			if !c.stopIDs[update.GetStopId()] {
				continue
			}
			arrival := update.GetArrival()
			if arrival == nil || arrival.Time == nil {
				continue
			}

			at := time.Unix(arrival.GetTime(), 0)
			if !at.After(reachable) {
				continue
			}

			minutes := int((at.Sub(now) + time.Minute - 1) / time.Minute)
			arrivals = append(arrivals, types.SubwayArrival{
				Route:       route,
				ArrivalTime: at,
				MinutesAway: minutes,
			})
		}
	}

	sort.Slice(arrivals, func(i, j int) bool {
		return arrivals[i].MinutesAway < arrivals[j].MinutesAway
	})
	if len(arrivals) > maxArrivals {
		arrivals = arrivals[:maxArrivals]
	}
	return arrivals, nil
}
