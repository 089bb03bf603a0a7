package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commutewatch/internal/agent"
	"commutewatch/internal/core"
	"commutewatch/internal/geo"
	"commutewatch/internal/types"
)

type mockCommuteService struct {
	triggerFn func(ctx context.Context, req agent.TriggerRequest) (*agent.TriggerResult, error)
	lastReq   agent.TriggerRequest
}

func (m *mockCommuteService) Trigger(ctx context.Context, req agent.TriggerRequest) (*agent.TriggerResult, error) {
	m.lastReq = req
	if m.triggerFn != nil {
		return m.triggerFn(ctx, req)
	}
	return &agent.TriggerResult{
		Zone:           types.ZoneHome,
		Recommendation: "Good weather expected.",
		Message:        "summary",
	}, nil
}

type mockLocationStore struct {
	latest *types.LocationPing
	saved  []types.LocationPing
	err    error
}

func (m *mockLocationStore) Save(ctx context.Context, ping types.LocationPing) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, ping)
	return nil
}

func (m *mockLocationStore) Latest(ctx context.Context) (*types.LocationPing, error) {
	if m.latest == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundLocation, "no location recorded", nil)
	}
	return m.latest, nil
}

type mockMonitor struct {
	enabled bool
}

func (m *mockMonitor) Enable() { m.enabled = true }

func newTestRouter(t *testing.T, register func(chi.Router)) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	register(r)
	return r
}

func newCommuteHandler(service CommuteService, locations types.LocationStore, monitor ArrivalMonitor) *CommuteHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCommuteHandler(service, locations, monitor, core.NewValidator(logger), logger)
}

func decodeData[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope.Data
}

func TestTrigger_ExplicitZone(t *testing.T) {
	service := &mockCommuteService{}
	handler := newCommuteHandler(service, &mockLocationStore{}, nil)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", bytes.NewBufferString(`{"zone":"nyc"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ZoneNYC, service.lastReq.Zone)

	data := decodeData[TriggerCommuteResponse](t, rec.Body)
	assert.Equal(t, "Good weather expected.", data.Recommendation)
	assert.False(t, data.MonitoringStarted)
}

func TestTrigger_EmptyBodyAllowed(t *testing.T) {
	service := &mockCommuteService{}
	handler := newCommuteHandler(service, &mockLocationStore{}, nil)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.Zone(""), service.lastReq.Zone)
}

func TestTrigger_InvalidZoneRejected(t *testing.T) {
	handler := newCommuteHandler(&mockCommuteService{}, &mockLocationStore{}, nil)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", bytes.NewBufferString(`{"zone":"mars"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrigger_LatWithoutLonRejected(t *testing.T) {
	handler := newCommuteHandler(&mockCommuteService{}, &mockLocationStore{}, nil)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", bytes.NewBufferString(`{"lat":40.75}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeValidationMissingField), resp.Error.Code)
}

func TestTrigger_ArmsMonitorNearPenn(t *testing.T) {
	monitor := &mockMonitor{}
	locations := &mockLocationStore{
		latest: &types.LocationPing{Lat: geo.Penn.Lat, Lon: geo.Penn.Lon, ReportedAt: time.Now()},
	}
	handler := newCommuteHandler(&mockCommuteService{}, locations, monitor)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, monitor.enabled)

	data := decodeData[TriggerCommuteResponse](t, rec.Body)
	assert.True(t, data.MonitoringStarted)
}

func TestTrigger_TooFarFromPennSkipsMonitor(t *testing.T) {
	monitor := &mockMonitor{}
	locations := &mockLocationStore{
		latest: &types.LocationPing{Lat: geo.Home.Lat, Lon: geo.Home.Lon, ReportedAt: time.Now()},
	}
	handler := newCommuteHandler(&mockCommuteService{}, locations, monitor)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, monitor.enabled)

	data := decodeData[TriggerCommuteResponse](t, rec.Body)
	assert.False(t, data.MonitoringStarted)
	assert.Contains(t, data.Recommendation, "too far from Penn Station")
}

func TestTrigger_NoStoredLocationStillArms(t *testing.T) {
	monitor := &mockMonitor{}
	handler := newCommuteHandler(&mockCommuteService{}, &mockLocationStore{}, monitor)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, monitor.enabled)
}

func TestTrigger_ServiceErrorMapped(t *testing.T) {
	service := &mockCommuteService{
		triggerFn: func(ctx context.Context, req agent.TriggerRequest) (*agent.TriggerResult, error) {
			return nil, types.NewAppError(types.ErrCodeUpstreamTransit, "provider unavailable", nil)
		},
	}
	handler := newCommuteHandler(service, &mockLocationStore{}, nil)
	router := newTestRouter(t, handler.RegisterRoutes)

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUpdateLocation_SavesPing(t *testing.T) {
	locations := &mockLocationStore{}
	handler := newCommuteHandler(&mockCommuteService{}, locations, nil)
	router := newTestRouter(t, handler.RegisterRoutes)

	body := `{"lat":40.7506,"lon":-73.9935,"timestamp":"2026-08-29T08:15:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/location", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, locations.saved, 1)
	assert.Equal(t, 40.7506, locations.saved[0].Lat)
	assert.Equal(t, time.Date(2026, 8, 29, 8, 15, 0, 0, time.UTC), locations.saved[0].ReportedAt)

	data := decodeData[UpdateLocationResponse](t, rec.Body)
	assert.Equal(t, "location updated", data.Status)
	assert.Equal(t, types.ZoneNYC, data.Zone)
}

func TestUpdateLocation_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing lon", body: `{"lat":40.75}`},
		{name: "latitude out of range", body: `{"lat":91,"lon":0}`},
		{name: "longitude out of range", body: `{"lat":0,"lon":-181}`},
		{name: "empty body", body: ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			locations := &mockLocationStore{}
			handler := newCommuteHandler(&mockCommuteService{}, locations, nil)
			router := newTestRouter(t, handler.RegisterRoutes)

			req := httptest.NewRequest(http.MethodPost, "/location", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, locations.saved)
		})
	}
}

type mockToggle struct {
	enabled bool
}

func (m *mockToggle) Enabled() bool { return m.enabled }
func (m *mockToggle) Enable()       { m.enabled = true }
func (m *mockToggle) Disable()      { m.enabled = false }

type mockWindowState struct {
	consumed int
}

func (m *mockWindowState) ConsumedWindows() int { return m.consumed }

func newTriggerAdminRouter(t *testing.T, controls map[types.TriggerKind]TriggerControl) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewTriggerAdminHandler(controls, logger)
	return newTestRouter(t, handler.RegisterRoutes)
}

func TestTriggerAdmin_Status(t *testing.T) {
	router := newTriggerAdminRouter(t, map[types.TriggerKind]TriggerControl{
		types.TriggerMorningBus: {Toggle: &mockToggle{enabled: true}, State: &mockWindowState{consumed: 1}},
	})

	req := httptest.NewRequest(http.MethodGet, "/triggers/morning_bus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[TriggerStatusResponse](t, rec.Body)
	assert.Equal(t, types.TriggerMorningBus, data.Kind)
	assert.True(t, data.Enabled)
	assert.Equal(t, 1, data.ConsumedWindows)
}

func TestTriggerAdmin_EnableDisable(t *testing.T) {
	toggle := &mockToggle{}
	router := newTriggerAdminRouter(t, map[types.TriggerKind]TriggerControl{
		types.TriggerAfternoonRail: {Toggle: toggle, State: &mockWindowState{}},
	})

	req := httptest.NewRequest(http.MethodPost, "/triggers/afternoon_rail/enable", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, toggle.enabled)

	req = httptest.NewRequest(http.MethodPost, "/triggers/afternoon_rail/disable", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, toggle.enabled)

	data := decodeData[TriggerStatusResponse](t, rec.Body)
	assert.False(t, data.Enabled)
}

func TestTriggerAdmin_UnknownKind(t *testing.T) {
	router := newTriggerAdminRouter(t, map[types.TriggerKind]TriggerControl{})

	req := httptest.NewRequest(http.MethodGet, "/triggers/evening_ferry", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeValidationInvalidTrigger), resp.Error.Code)
}

func TestTriggerAdmin_UnregisteredKind(t *testing.T) {
	router := newTriggerAdminRouter(t, map[types.TriggerKind]TriggerControl{
		types.TriggerMorningBus: {Toggle: &mockToggle{}, State: &mockWindowState{}},
	})

	req := httptest.NewRequest(http.MethodGet, "/triggers/afternoon_rail", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
