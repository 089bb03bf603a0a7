package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"commutewatch/internal/core"
	"commutewatch/internal/types"
)

// TriggerToggle is the enable switch for one auto-trigger pipeline.
type TriggerToggle interface {
	Enabled() bool
	Enable()
	Disable()
}

// TriggerState exposes the window bookkeeping of one auto-trigger pipeline.
type TriggerState interface {
	ConsumedWindows() int
}

// TriggerControl bundles the switch and state for one trigger kind.
type TriggerControl struct {
	Toggle TriggerToggle
	State  TriggerState
}

// TriggerAdminHandler serves the /v1/triggers/{kind} admin endpoints.
type TriggerAdminHandler struct {
	controls map[types.TriggerKind]TriggerControl
	logger   *slog.Logger
}

// NewTriggerAdminHandler creates a TriggerAdminHandler over the registered
// trigger pipelines.
func NewTriggerAdminHandler(controls map[types.TriggerKind]TriggerControl, l *slog.Logger) *TriggerAdminHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TriggerAdminHandler{controls: controls, logger: l}
}

// RegisterRoutes mounts the trigger admin routes on the /v1 router.
func (h *TriggerAdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/triggers/{kind}", func(r chi.Router) {
		r.Get("/", h.Status)
		r.Post("/enable", h.Enable)
		r.Post("/disable", h.Disable)
	})
}

// TriggerStatusResponse is the response body for GET /v1/triggers/{kind}.
type TriggerStatusResponse struct {
	Kind            types.TriggerKind `json:"kind"`
	Enabled         bool              `json:"enabled"`
	ConsumedWindows int               `json:"consumed_windows"`
}

// Status handles GET /v1/triggers/{kind}.
func (h *TriggerAdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	kind, control, ok := h.resolve(w, r)
	if !ok {
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: TriggerStatusResponse{
		Kind:            kind,
		Enabled:         control.Toggle.Enabled(),
		ConsumedWindows: control.State.ConsumedWindows(),
	}})
}

// Enable handles POST /v1/triggers/{kind}/enable.
func (h *TriggerAdminHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// Disable handles POST /v1/triggers/{kind}/disable.
func (h *TriggerAdminHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *TriggerAdminHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	kind, control, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if enabled {
		control.Toggle.Enable()
	} else {
		control.Toggle.Disable()
	}
	h.logger.Info("trigger toggled",
		slog.String("kind", string(kind)),
		slog.Bool("enabled", enabled))

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: TriggerStatusResponse{
		Kind:            kind,
		Enabled:         control.Toggle.Enabled(),
		ConsumedWindows: control.State.ConsumedWindows(),
	}})
}

// resolve parses and looks up the {kind} URL parameter, writing the error
// response itself when the kind is invalid or unregistered.
func (h *TriggerAdminHandler) resolve(w http.ResponseWriter, r *http.Request) (types.TriggerKind, TriggerControl, bool) {
	kind := types.TriggerKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidTrigger,
			"unknown trigger kind",
			nil,
			map[string]any{"kind": string(kind)},
		))
		return "", TriggerControl{}, false
	}

	control, ok := h.controls[kind]
	if !ok {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundTrigger,
			"trigger is not configured",
			nil,
		))
		return "", TriggerControl{}, false
	}
	return kind, control, true
}
