package transit

import (
	"context"
	"strings"

	"commutewatch/internal/types"
)

// BusClient reads the 113 bus line's schedule and live vehicle positions for
// one origin stop. It implements the morning evaluator's data contract.
type BusClient struct {
	doer      Doer
	tokens    *TokenSource
	baseURL   string
	route     string
	direction string
	stop      string
	logger    types.Logger
}

// BusClientConfig holds the configuration for creating a BusClient.
type BusClientConfig struct {
	Doer      Doer
	Tokens    *TokenSource
	BaseURL   string
	Route     string
	Direction string
	Stop      string
	Logger    types.Logger
}

// NewBusClient creates a BusClient with the given configuration.
func NewBusClient(cfg BusClientConfig) *BusClient {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &BusClient{
		doer:      cfg.Doer,
		tokens:    cfg.Tokens,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		route:     cfg.Route,
		direction: cfg.Direction,
		stop:      cfg.Stop,
		logger:    logger,
	}
}

// routeTrip is the provider's getRouteTrips row.
type routeTrip struct {
	PublicRoute   string `json:"public_route"`
	Header        string `json:"header"`
	DepartureTime string `json:"departuretime"`
	Remarks       string `json:"remarks"`
}

// ScheduleToNYC returns the next scheduled departures from the origin stop
// toward the city, at most limit rows.
func (c *BusClient) ScheduleToNYC(ctx context.Context, limit int) ([]types.ScheduledArrival, error) {
	var trips []routeTrip
	err := callAPI(ctx, c.doer, c.tokens, c.baseURL+"/api/BUSDV2/getRouteTrips", map[string]string{
		"location": c.stop,
		"route":    c.route,
	}, &trips)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(trips) > limit {
		trips = trips[:limit]
	}

	arrivals := make([]types.ScheduledArrival, 0, len(trips))
	for _, t := range trips {
		arrivals = append(arrivals, types.ScheduledArrival{
			Route:   t.PublicRoute,
			Header:  strings.TrimSpace(t.Header),
			Time:    t.DepartureTime,
			Remarks: strings.TrimSpace(t.Remarks),
		})
	}
	return arrivals, nil
}

// dvTrip is the provider's getBusDV vehicle row.
type dvTrip struct {
	VehicleID          string `json:"vehicle_id"`
	DepartureTime      string `json:"departuretime"`
	SchedDepTime       string `json:"sched_dep_time"`
	DepartureStatus    string `json:"departurestatus"`
	Header             string `json:"header"`
	PublicRoute        string `json:"public_route"`
	PassengerLoad      string `json:"passload"`
	InternalTripNumber string `json:"internal_trip_number"`
	TimingPointID      string `json:"timing_point_id"`
}

// tripStop is the provider's getTripStops row.
type tripStop struct {
	StopID     string `json:"StopID"`
	ApproxTime string `json:"ApproxTime"`
	Status     string `json:"Status"`
}

// LiveVehicles returns the provider's departure-vision rows for the origin
// stop, each enriched with the GPS arrival estimate for that stop when the
// trip exposes one. Rows with the provider's placeholder vehicle id are
// returned as-is; the evaluator decides what counts as confirmed.
func (c *BusClient) LiveVehicles(ctx context.Context) ([]types.VehicleReport, error) {
	var payload struct {
		DVTrip []dvTrip `json:"DVTrip"`
	}
	err := callAPI(ctx, c.doer, c.tokens, c.baseURL+"/api/BUSDV2/getBusDV", map[string]string{
		"route":     c.route,
		"direction": c.direction,
		"stop":      c.stop,
	}, &payload)
	if err != nil {
		return nil, err
	}

	reports := make([]types.VehicleReport, 0, len(payload.DVTrip))
	for _, trip := range payload.DVTrip {
		report := types.VehicleReport{
			VehicleID:     trip.VehicleID,
			Route:         trip.PublicRoute,
			Header:        strings.TrimSpace(trip.Header),
			DepartureTime: trip.DepartureTime,
			ScheduledTime: trip.SchedDepTime,
			Status:        trip.DepartureStatus,
			PassengerLoad: trip.PassengerLoad,
		}

		if trip.InternalTripNumber != "" {
			if arrival, status, ok := c.stopEstimate(ctx, trip); ok {
				report.RealtimeArrival = arrival
				report.StopStatus = status
				report.HasRealtime = true
			}
		}

		reports = append(reports, report)
	}
	return reports, nil
}

// stopEstimate looks up the real-time arrival estimate for the origin stop on
// one trip. Failures degrade to a schedule-only report rather than failing
// the whole fetch.
func (c *BusClient) stopEstimate(ctx context.Context, trip dvTrip) (arrival, status string, ok bool) {
	var stops []tripStop
	err := callAPI(ctx, c.doer, c.tokens, c.baseURL+"/api/BUSDV2/getTripStops", map[string]string{
		"internal_trip_number": trip.InternalTripNumber,
		"sched_dep_time":       trip.SchedDepTime,
		"timing_point_id":      trip.TimingPointID,
	}, &stops)
	if err != nil {
		c.logger.Warn("trip stop lookup failed",
			"trip", trip.InternalTripNumber,
			"error", err,
		)
		return "", "", false
	}

	for _, s := range stops {
		if s.StopID == c.stop {
			return s.ApproxTime, s.Status, true
		}
	}
	return "", "", false
}
