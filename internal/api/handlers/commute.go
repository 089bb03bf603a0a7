// Package handlers contains the HTTP handler implementations for the
// commutewatch API: the manual commute trigger, phone location pings, and
// the auto-trigger admin endpoints.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commutewatch/internal/agent"
	"commutewatch/internal/core"
	"commutewatch/internal/geo"
	"commutewatch/internal/types"
)

// CommuteService runs a manual commute check and delivers the summary.
type CommuteService interface {
	Trigger(ctx context.Context, req agent.TriggerRequest) (*agent.TriggerResult, error)
}

// ArrivalMonitor is the switch that arms the afternoon arrival watch after
// a trigger fired close to Penn Station.
type ArrivalMonitor interface {
	Enable()
}

// CommuteHandler serves POST /v1/trigger and POST /v1/location.
type CommuteHandler struct {
	service   CommuteService
	locations types.LocationStore
	monitor   ArrivalMonitor
	validator *core.Validator
	logger    *slog.Logger
}

// NewCommuteHandler creates a CommuteHandler. The monitor may be nil if no
// arrival watch is configured.
func NewCommuteHandler(
	service CommuteService,
	locations types.LocationStore,
	monitor ArrivalMonitor,
	v *core.Validator,
	l *slog.Logger,
) *CommuteHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CommuteHandler{
		service:   service,
		locations: locations,
		monitor:   monitor,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the commute routes on the /v1 router.
func (h *CommuteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/trigger", h.Trigger)
	r.Post("/location", h.UpdateLocation)
}

// TriggerCommuteRequest is the request body for POST /v1/trigger. All fields
// are optional: with no body the zone is resolved from the latest stored
// location ping.
type TriggerCommuteRequest struct {
	Zone string   `json:"zone,omitempty" validate:"omitempty,oneof=home nyc newark"`
	Lat  *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lon  *float64 `json:"lon,omitempty" validate:"omitempty,min=-180,max=180"`
}

// TriggerCommuteResponse is the response body for POST /v1/trigger.
type TriggerCommuteResponse struct {
	Zone              types.Zone `json:"zone"`
	Recommendation    string     `json:"recommendation"`
	Message           string     `json:"message"`
	MonitoringStarted bool       `json:"monitoring_started"`
}

// Trigger handles POST /v1/trigger: run a manual commute check, deliver the
// summary, and arm the arrival monitor when the phone was last seen within
// walking distance of Penn Station.
func (h *CommuteHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerCommuteRequest
	if r.ContentLength != 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat and lon must be provided together",
			nil,
		))
		return
	}

	result, err := h.service.Trigger(r.Context(), agent.TriggerRequest{
		Zone: types.Zone(req.Zone),
		Lat:  req.Lat,
		Lon:  req.Lon,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := TriggerCommuteResponse{
		Zone:           result.Zone,
		Recommendation: result.Recommendation,
		Message:        result.Message,
	}
	resp.MonitoringStarted = h.armMonitor(r.Context(), &resp)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

// armMonitor enables the arrival watch unless the latest stored location
// ping places the phone outside Penn Station proximity. A missing ping does
// not block arming.
func (h *CommuteHandler) armMonitor(ctx context.Context, resp *TriggerCommuteResponse) bool {
	if h.monitor == nil {
		return false
	}

	latest, err := h.locations.Latest(ctx)
	if err != nil {
		var appErr *types.AppError
		if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeNotFoundLocation {
			h.logger.Warn("location lookup failed, arming monitor anyway",
				slog.String("error", err.Error()))
		}
	}
	if latest != nil && !geo.IsNearPennStation(latest.Lat, latest.Lon) {
		resp.Recommendation = "📍 You are too far from Penn Station to start monitoring."
		return false
	}

	h.monitor.Enable()
	h.logger.Info("arrival monitor armed")
	return true
}

// UpdateLocationRequest is the request body for POST /v1/location.
type UpdateLocationRequest struct {
	Lat       *float64   `json:"lat" validate:"required,min=-90,max=90"`
	Lon       *float64   `json:"lon" validate:"required,min=-180,max=180"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// UpdateLocationResponse is the response body for POST /v1/location.
type UpdateLocationResponse struct {
	Status string     `json:"status"`
	Zone   types.Zone `json:"zone"`
}

// UpdateLocation handles POST /v1/location: persist the phone's latest
// position ping.
func (h *CommuteHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req UpdateLocationRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	reportedAt := time.Now()
	if req.Timestamp != nil {
		reportedAt = *req.Timestamp
	}

	ping := types.LocationPing{
		Lat:        *req.Lat,
		Lon:        *req.Lon,
		ReportedAt: reportedAt,
	}
	if err := h.locations.Save(r.Context(), ping); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("location updated",
		slog.Float64("lat", ping.Lat),
		slog.Float64("lon", ping.Lon))

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: UpdateLocationResponse{
		Status: "location updated",
		Zone:   geo.ZoneFor(ping.Lat, ping.Lon),
	}})
}
