package agent

import (
	"fmt"
	"strconv"
	"strings"

	"commutewatch/internal/types"
)

// maxMessageLen is the channel-safe message cap. WhatsApp via Twilio rejects
// bodies over 1600 characters; the cap leaves room for the truncation marker.
const maxMessageLen = 1590

// truncationMarker is appended when a message is cut at the cap.
const truncationMarker = "\n...[truncated]"

// truncate enforces the message cap.
func truncate(message string) string {
	if len(message) <= maxMessageLen {
		return message
	}
	return message[:maxMessageLen] + truncationMarker
}

// formatHomeMessage renders the home-side view: the 113X departures, any live
// tracked vehicles with their GPS arrival estimates, and the weather block.
func formatHomeMessage(scheduled []types.ScheduledArrival, live []types.VehicleReport, home, city types.WeatherReport) string {
	lines := []string{"🚌 *113X Bus Departures to Port Authority from Fanwood*"}

	for _, bus := range scheduled {
		header := bus.Header
		if len(header) > 40 {
			header = strings.TrimSpace(header[:40])
		}
		remarks := bus.Remarks
		if remarks == "" {
			remarks = "On time"
		}
		lines = append(lines,
			fmt.Sprintf("• %s → %s", bus.Time, header),
			fmt.Sprintf("  • Route: %s | Status: %s", bus.Route, remarks),
		)
	}
	if len(scheduled) == 0 {
		lines = append(lines, "• No scheduled departures found.")
	}

	if len(live) > 0 {
		lines = append(lines, "", "🛰️ *Live Vehicles (Real-Time Tracking)*")
		for _, trip := range live {
			if trip.HasRealtime {
				lines = append(lines,
					fmt.Sprintf("• Bus #%s → %s", trip.VehicleID, trip.StopStatus),
					fmt.Sprintf("  🎯 Arriving in %s", describeETA(trip.RealtimeArrival)),
				)
			} else {
				lines = append(lines,
					fmt.Sprintf("• Bus #%s → %s at %s (%s)", trip.VehicleID, trip.Header, trip.DepartureTime, trip.Status),
				)
			}
			if trip.PassengerLoad != "" {
				lines = append(lines, fmt.Sprintf("  👥 Load: %s", trip.PassengerLoad))
			}
		}
	}

	lines = append(lines, weatherBlock(home, city)...)
	return strings.Join(lines, "\n")
}

// formatCitySummary renders the city-side view: subway arrivals at 59th &
// Lex, the Penn Station board, relevant alerts, and the weather block.
func formatCitySummary(subways []types.SubwayArrival, trains []types.ScheduledTrain, alerts []string, home, city types.WeatherReport) string {
	lines := []string{"🚇 *Next Subway Trains (59th & Lex)*"}

	if len(subways) == 0 {
		lines = append(lines, "• No subway trains found.")
	}
	for _, train := range subways {
		lines = append(lines, fmt.Sprintf("• %s train at %s (%d min)",
			train.Route, train.ArrivalTime.Format("3:04 PM"), train.MinutesAway))
	}

	lines = append(lines, "", "🚉 *Next NJ Transit Trains to Newark Penn*")
	for _, train := range trains {
		track := "Track unknown"
		if train.Track != "?" && train.Track != "" {
			track = "Track " + train.Track
		}
		lines = append(lines, fmt.Sprintf("• %s → %s (%s, %s)",
			train.Time, train.Destination, track, train.Status))
	}

	if relevant := relevantStationAlerts(alerts); len(relevant) > 0 {
		lines = append(lines, "", "🚨 *Relevant Station Alerts*")
		for _, alert := range relevant {
			lines = append(lines, "• "+alert)
		}
	}

	lines = append(lines, weatherBlock(home, city)...)
	return strings.Join(lines, "\n")
}

// formatNewarkMessage renders the return-leg view: the next trains from
// Newark toward Fanwood and the weather block.
func formatNewarkMessage(trains []types.ScheduledTrain, home, city types.WeatherReport) string {
	lines := []string{"🚉 *Trains from Newark to Fanwood*"}

	if len(trains) == 0 {
		lines = append(lines, "• No trains found.")
	}
	limit := len(trains)
	if limit > 3 {
		limit = 3
	}
	for _, train := range trains[:limit] {
		lines = append(lines, fmt.Sprintf("• %s → %s (%s)", train.Time, train.Destination, train.Status))
	}

	lines = append(lines, weatherBlock(home, city)...)
	return strings.Join(lines, "\n")
}

// relevantStationAlerts keeps advisories that mention a commute line and the
// city origin marker; everything else is station noise.
func relevantStationAlerts(alerts []string) []string {
	var relevant []string
	for _, alert := range alerts {
		upper := strings.ToUpper(alert)
		mentionsLine := strings.Contains(upper, "NEC") ||
			strings.Contains(upper, "NJCL") ||
			strings.Contains(upper, "RARV")
		if mentionsLine && strings.Contains(upper, "FROM PSNY") {
			relevant = append(relevant, alert)
		}
	}
	return relevant
}

// weatherBlock renders the two-city weather footer.
func weatherBlock(home, city types.WeatherReport) []string {
	return []string{
		"",
		fmt.Sprintf("🌤️ *Weather (Home):* %s | %s", capitalize(home.Description), formatTemp(home)),
		fmt.Sprintf("🏙️ *Weather (NYC):* %s | %s", capitalize(city.Description), formatTemp(city)),
	}
}

func formatTemp(report types.WeatherReport) string {
	if !report.Available {
		return "N/A"
	}
	return strconv.FormatFloat(report.TempCelsius, 'f', 1, 64) + "°C"
}

func capitalize(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// describeETA turns the provider's "min:sec" GPS estimate into prose.
func describeETA(raw string) string {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) < 2 {
		return raw
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return raw
	}
	switch {
	case minutes < 1:
		return "Less than 1 minute"
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
