package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"commutewatch/internal/trigger"
	"commutewatch/internal/types"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordTick(types.TriggerMorningBus, trigger.OutcomeNotified)
	m.RecordTick(types.TriggerMorningBus, trigger.OutcomeNoSignal)
	m.RecordDecision(types.TriggerMorningBus, types.ReasonConfirmedSignal)
	m.RecordDelivery(types.ChannelTelegram, types.DeliverySent)
	m.RecordRequest("POST", "/v1/trigger", 200, 50*time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`commutewatch_trigger_ticks_total{outcome="notified",trigger="morning_bus"} 1`,
		`commutewatch_trigger_ticks_total{outcome="no_signal",trigger="morning_bus"} 1`,
		`commutewatch_trigger_decisions_total{reason="confirmed_signal",trigger="morning_bus"} 1`,
		`commutewatch_notification_deliveries_total{channel="telegram",status="sent"} 1`,
		`commutewatch_http_requests_total{method="POST",route="/v1/trigger",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordTick(types.TriggerAfternoonRail, trigger.OutcomeNotified)

	if strings.Contains(scrape(t, b), `trigger="afternoon_rail"`) {
		t.Error("registries must not share state")
	}
}
