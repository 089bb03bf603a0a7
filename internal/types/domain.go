// Package types defines the shared domain model for the commutewatch service.
// It has no dependencies on other internal packages so that every layer
// (trigger engine, upstream clients, delivery channels, HTTP surface) can
// exchange values without import cycles.
package types

import (
	"strings"
	"time"
)

// VehicleReport is a live bus position report from the transit provider.
// A report whose VehicleID is blank or the provider's placeholder sentinel
// describes a scheduled trip with no vehicle assigned yet.
type VehicleReport struct {
	VehicleID       string `json:"vehicle_id"`
	Route           string `json:"route"`
	Header          string `json:"header"`
	DepartureTime   string `json:"departure_time"`
	ScheduledTime   string `json:"scheduled_time"`
	Status          string `json:"status"`
	PassengerLoad   string `json:"passenger_load,omitempty"`
	RealtimeArrival string `json:"realtime_arrival,omitempty"` // "min:sec" GPS estimate
	StopStatus      string `json:"stop_status,omitempty"`
	HasRealtime     bool   `json:"has_realtime"`
}

// Confirmed reports whether this report carries a real, tracked vehicle
// identifier rather than a blank or placeholder value.
func (v VehicleReport) Confirmed() bool {
	return IsConfirmedVehicleID(v.VehicleID)
}

// ScheduledArrival is one scheduled bus departure from the origin stop.
type ScheduledArrival struct {
	Route   string `json:"route"`
	Header  string `json:"header"`
	Time    string `json:"time"` // provider clock format, "03:04 PM"
	Remarks string `json:"remarks"`
}

// UpcomingArrival is a scheduled arrival that fell inside the look-ahead
// horizon at evaluation time.
type UpcomingArrival struct {
	Time        string `json:"time"`
	MinutesAway int    `json:"minutes_away"`
	Status      string `json:"status"`
}

// ScheduledTrain is one rail departure row from the station board.
type ScheduledTrain struct {
	Line        string `json:"line"`
	Destination string `json:"destination"`
	Time        string `json:"time"`
	Track       string `json:"track"`
	Status      string `json:"status"`
}

// Delayed reports whether the provider flagged this train as delayed.
func (t ScheduledTrain) Delayed() bool {
	return strings.Contains(strings.ToUpper(t.Status), "DELAY")
}

// Evidence is the upstream data that produced a Decision. It is passed
// through to the notification collaborator for message rendering and is
// never persisted.
type Evidence struct {
	LiveVehicles     []VehicleReport   `json:"live_vehicles,omitempty"`
	UpcomingArrivals []UpcomingArrival `json:"upcoming_arrivals,omitempty"`
	RelevantAlerts   []string          `json:"relevant_alerts,omitempty"`
	DelayedTrains    []ScheduledTrain  `json:"delayed_trains,omitempty"`
	AllTrains        []ScheduledTrain  `json:"all_trains,omitempty"`
}

// Decision is the output of a signal evaluator for a single poll tick.
type Decision struct {
	ShouldNotify bool           `json:"should_notify"`
	Reason       DecisionReason `json:"reason"`
	Evidence     Evidence       `json:"evidence"`
	Err          error          `json:"-"` // set only when Reason is ReasonEvaluationError
}

// WeatherReport is a normalized current-conditions snapshot for one location.
type WeatherReport struct {
	IsBad       bool     `json:"is_bad"`
	Description string   `json:"description"`
	TempCelsius float64  `json:"temp_celsius"`
	Available   bool     `json:"available"`
	Alerts      []string `json:"alerts,omitempty"`
}

// SubwayArrival is one upcoming subway train at the monitored platform.
type SubwayArrival struct {
	Route       string    `json:"route"`
	ArrivalTime time.Time `json:"arrival_time"`
	MinutesAway int       `json:"minutes_away"`
}

// LocationPing is a phone-reported position update.
type LocationPing struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ReportedAt time.Time `json:"reported_at"`
}

// DeliveryResult describes the outcome of one channel delivery attempt.
type DeliveryResult struct {
	Channel           ChannelType    `json:"channel"`
	Status            DeliveryStatus `json:"status"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	FailureReason     string         `json:"failure_reason,omitempty"`
	Retryable         bool           `json:"-"`
}

// placeholderVehicleID is the sentinel the bus provider uses for trips with
// no vehicle assigned yet.
const placeholderVehicleID = "EMPTY"

// IsConfirmedVehicleID reports whether id identifies a real tracked vehicle:
// non-blank after trimming and not the provider's placeholder sentinel.
func IsConfirmedVehicleID(id string) bool {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return false
	}
	return !strings.EqualFold(trimmed, placeholderVehicleID)
}
