// Package agent assembles and sends the commute summary. It is the
// collaborator behind the trigger orchestrator's Notifier contract and also
// backs the manual trigger endpoint: resolve the rider's zone, gather the
// relevant transit and weather data, render a message, and hand it to the
// dispatcher.
package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"commutewatch/internal/geo"
	"commutewatch/internal/types"
)

// BusSource supplies the morning bus data.
type BusSource interface {
	ScheduleToNYC(ctx context.Context, limit int) ([]types.ScheduledArrival, error)
	LiveVehicles(ctx context.Context) ([]types.VehicleReport, error)
}

// RailSource supplies station boards and advisories.
type RailSource interface {
	TrainSchedule(ctx context.Context, station string, limit int) ([]types.ScheduledTrain, error)
	StationAlerts(ctx context.Context, station string) ([]string, error)
}

// WeatherSource supplies current conditions; lookups never fail, they
// degrade to an unavailable report.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) types.WeatherReport
}

// SubwaySource supplies upcoming subway arrivals for the monitored platform.
type SubwaySource interface {
	UpcomingArrivals(ctx context.Context) ([]types.SubwayArrival, error)
}

// Sender is the delivery fan-out, satisfied by notifications.Dispatcher.
type Sender interface {
	Dispatch(ctx context.Context, trigger types.TriggerKind, zone types.Zone, message string) error
}

// Stations the summaries read from: the Penn Station board city-side and the
// Newark board on the return leg.
const (
	pennStationCode   = "NY"
	newarkStationCode = "NP"
)

// CommuteAgent renders and delivers zone-specific commute summaries.
type CommuteAgent struct {
	bus       BusSource
	rail      RailSource
	weather   WeatherSource
	subway    SubwaySource
	locations types.LocationStore
	sender    Sender
	logger    types.Logger
}

// CommuteAgentConfig holds the configuration for creating a CommuteAgent.
type CommuteAgentConfig struct {
	Bus       BusSource
	Rail      RailSource
	Weather   WeatherSource
	Subway    SubwaySource
	Locations types.LocationStore // optional; used to resolve zone when none is given
	Sender    Sender
	Logger    types.Logger
}

// NewCommuteAgent creates a CommuteAgent with the given configuration.
func NewCommuteAgent(cfg CommuteAgentConfig) *CommuteAgent {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &CommuteAgent{
		bus:       cfg.Bus,
		rail:      cfg.Rail,
		weather:   cfg.Weather,
		subway:    cfg.Subway,
		locations: cfg.Locations,
		sender:    cfg.Sender,
		logger:    logger,
	}
}

// TriggerRequest is a manual trigger invocation. Zone takes precedence when
// valid; otherwise the coordinates are classified.
type TriggerRequest struct {
	Zone types.Zone
	Lat  *float64
	Lon  *float64
}

// TriggerResult reports what a trigger produced.
type TriggerResult struct {
	Zone           types.Zone `json:"zone"`
	Recommendation string     `json:"recommendation"`
	Message        string     `json:"message"`
}

// Trigger runs one manual commute check: resolve the zone, build the summary,
// and deliver it.
func (a *CommuteAgent) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	zone, err := a.resolveZone(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := a.compose(ctx, zone, "")
	if err != nil {
		return nil, err
	}

	if req.Lat != nil && req.Lon != nil {
		result.Message += fmt.Sprintf("\n📍 *Coordinates:* %.5f, %.5f", *req.Lat, *req.Lon)
	}
	result.Message = truncate(result.Message)

	if err := a.sender.Dispatch(ctx, triggerKindFor(zone), zone, result.Message); err != nil {
		return nil, err
	}
	return result, nil
}

// Notify implements types.Notifier for the auto-trigger orchestrators. The
// decision's evidence becomes the message headline so the rider can see why
// the trigger fired.
func (a *CommuteAgent) Notify(ctx context.Context, zone types.Zone, decision types.Decision) error {
	if zone == types.ZoneUnknown || zone == "" {
		zone = types.ZoneHome
	}

	result, err := a.compose(ctx, zone, headline(decision))
	if err != nil {
		return err
	}
	result.Message = truncate(result.Message)

	return a.sender.Dispatch(ctx, triggerKindFor(zone), zone, result.Message)
}

// resolveZone picks the summary zone: an explicit valid zone wins, otherwise
// the request coordinates, otherwise the last stored phone ping. A coordinate
// outside every anchor falls back to home rather than refusing to help.
func (a *CommuteAgent) resolveZone(ctx context.Context, req TriggerRequest) (types.Zone, error) {
	if req.Zone != "" && req.Zone != types.ZoneUnknown && req.Zone.Valid() {
		return req.Zone, nil
	}

	if req.Lat != nil && req.Lon != nil {
		zone := geo.ZoneFor(*req.Lat, *req.Lon)
		if zone == types.ZoneUnknown {
			zone = types.ZoneHome
		}
		return zone, nil
	}

	if a.locations != nil {
		ping, err := a.locations.Latest(ctx)
		if err == nil && ping != nil {
			zone := geo.ZoneFor(ping.Lat, ping.Lon)
			if zone == types.ZoneUnknown {
				zone = types.ZoneHome
			}
			return zone, nil
		}
	}

	return "", types.NewAppError(
		types.ErrCodeValidationMissingField,
		"either a zone or coordinates are required",
		nil,
	)
}

// compose gathers the zone's data and renders the summary message.
func (a *CommuteAgent) compose(ctx context.Context, zone types.Zone, head string) (*TriggerResult, error) {
	var homeWeather, cityWeather types.WeatherReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		homeWeather = a.weather.Current(gctx, geo.Home.Lat, geo.Home.Lon)
		return nil
	})
	g.Go(func() error {
		cityWeather = a.weather.Current(gctx, geo.Office.Lat, geo.Office.Lon)
		return nil
	})
	g.Wait()

	recommendation := weatherRecommendation(homeWeather, cityWeather)

	var body string
	switch zone {
	case types.ZoneHome:
		scheduled, err := a.bus.ScheduleToNYC(ctx, 3)
		if err != nil {
			a.logger.Warn("bus schedule unavailable for summary", "error", err)
		}
		live, err := a.bus.LiveVehicles(ctx)
		if err != nil {
			a.logger.Warn("live vehicles unavailable for summary", "error", err)
		}
		if recommendation == "" {
			recommendation = "🚌 Checking 113X bus from Fanwood..."
		}
		body = formatHomeMessage(scheduled, live, homeWeather, cityWeather)

	case types.ZoneNYC:
		var (
			subways []types.SubwayArrival
			trains  []types.ScheduledTrain
			alerts  []string
		)
		cg, cctx := errgroup.WithContext(ctx)
		cg.Go(func() error {
			var err error
			subways, err = a.subway.UpcomingArrivals(cctx)
			if err != nil {
				a.logger.Warn("subway arrivals unavailable for summary", "error", err)
			}
			return nil
		})
		cg.Go(func() error {
			var err error
			trains, err = a.rail.TrainSchedule(cctx, pennStationCode, 5)
			if err != nil {
				a.logger.Warn("train schedule unavailable for summary", "error", err)
			}
			return nil
		})
		cg.Go(func() error {
			var err error
			alerts, err = a.rail.StationAlerts(cctx, pennStationCode)
			if err != nil {
				a.logger.Warn("station alerts unavailable for summary", "error", err)
			}
			return nil
		})
		cg.Wait()

		if recommendation == "" {
			recommendation = "Proceed to Penn as usual."
			for _, train := range trains {
				if train.Delayed() {
					recommendation = "⚠️ Delay detected. Take PATH."
					break
				}
			}
		}
		body = formatCitySummary(subways, trains, alerts, homeWeather, cityWeather)

	case types.ZoneNewark:
		trains, err := a.rail.TrainSchedule(ctx, newarkStationCode, 3)
		if err != nil {
			a.logger.Warn("newark schedule unavailable for summary", "error", err)
		}
		recommendation = "🚉 Checking train schedule from Newark to Fanwood..."
		body = formatNewarkMessage(trains, homeWeather, cityWeather)

	default:
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidZone,
			fmt.Sprintf("no summary defined for zone %q", zone),
			nil,
		)
	}

	message := body
	if head != "" {
		message = head + "\n\n" + body
	}

	return &TriggerResult{
		Zone:           zone,
		Recommendation: recommendation,
		Message:        message,
	}, nil
}

// weatherRecommendation flags bad conditions at either end of the commute;
// empty when the weather is unremarkable.
func weatherRecommendation(home, city types.WeatherReport) string {
	switch {
	case home.IsBad:
		return "⚠️ Bad weather expected in Fanwood. Consider leaving early."
	case city.IsBad:
		return "⚠️ Bad weather expected in NYC. Consider taking precautions."
	default:
		return ""
	}
}

// triggerKindFor maps the zone onto the pipeline whose audit bucket the
// delivery belongs in: home-side messages are morning-bus traffic, everything
// else is afternoon-rail.
func triggerKindFor(zone types.Zone) types.TriggerKind {
	if zone == types.ZoneHome {
		return types.TriggerMorningBus
	}
	return types.TriggerAfternoonRail
}

// headline summarizes why an auto-trigger fired.
func headline(d types.Decision) string {
	switch d.Reason {
	case types.ReasonConfirmedSignal:
		if n := len(d.Evidence.LiveVehicles); n > 0 {
			return fmt.Sprintf("🚨 *Auto-trigger:* %d tracked bus(es) approaching", n)
		}
		if n := len(d.Evidence.RelevantAlerts) + len(d.Evidence.DelayedTrains); n > 0 {
			return "🚨 *Auto-trigger:* rail disruption detected"
		}
		return "🚨 *Auto-trigger:* commute signal detected"
	case types.ReasonFallbackEscalation:
		return "⏰ *Auto-trigger:* no tracking data, scheduled check"
	default:
		return ""
	}
}
