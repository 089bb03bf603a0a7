package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"commutewatch/internal/types"
)

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		Doer:    http.DefaultClient,
		BaseURL: serverURL,
		APIKey:  types.SecretString("ow-key"),
	})
}

func TestCurrent_GoodConditions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("appid") != "ow-key" {
			t.Errorf("appid = %q", q.Get("appid"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("units = %q", q.Get("units"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"weather": []map[string]string{{"main": "Clouds", "description": "scattered clouds"}},
			"main":    map[string]float64{"temp": 21.4},
		})
	}))
	defer server.Close()

	report := newTestClient(server.URL).Current(context.Background(), 40.64101, -74.38390)

	if !report.Available {
		t.Fatal("report should be available")
	}
	if report.IsBad {
		t.Error("clouds are not a bad condition")
	}
	if report.Description != "scattered clouds" {
		t.Errorf("description = %q", report.Description)
	}
	if report.TempCelsius != 21.4 {
		t.Errorf("temp = %v", report.TempCelsius)
	}
}

func TestCurrent_BadConditionAnyEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"weather": []map[string]string{
				{"main": "Mist", "description": "mist"},
				{"main": "Rain", "description": "light rain"},
			},
			"main": map[string]float64{"temp": 15.0},
		})
	}))
	defer server.Close()

	report := newTestClient(server.URL).Current(context.Background(), 40.75, -73.99)

	if !report.IsBad {
		t.Error("rain anywhere in the condition list should flag the report")
	}
	if report.Description != "mist" {
		t.Errorf("description should come from the first entry, got %q", report.Description)
	}
}

func TestCurrent_DegradesToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	report := newTestClient(server.URL).Current(context.Background(), 40.75, -73.99)

	if report.Available {
		t.Error("failed lookup must not claim availability")
	}
	if report.IsBad {
		t.Error("failed lookup must not flag bad weather")
	}
	if report.Description != "Unavailable" {
		t.Errorf("description = %q, want Unavailable", report.Description)
	}
}

func TestCurrent_EmptyConditionList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"weather": []map[string]string{},
			"main":    map[string]float64{"temp": 28.0},
		})
	}))
	defer server.Close()

	report := newTestClient(server.URL).Current(context.Background(), 40.75, -73.99)

	if report.Description != "Clear" {
		t.Errorf("empty condition list should default to Clear, got %q", report.Description)
	}
	if report.IsBad {
		t.Error("empty condition list is not bad weather")
	}
}
