package weather

import "fmt"

type AdvisoryKind string

const (
	AdvisoryFrost          AdvisoryKind = "frost"
	AdvisoryHeat           AdvisoryKind = "heat_stress"
	AdvisoryHeavyRain      AdvisoryKind = "heavy_rain"
	AdvisoryFungalPressure AdvisoryKind = "fungal_pressure"
	AdvisorySprayWindow    AdvisoryKind = "spray_window"
)

// Thresholds for the advisory rules.
const (
	FrostMaxC      = 2.0
	HeatMinC       = 35.0
	HeavyRainMM    = 20.0
	FungalHumidity = 85
	FungalMinC     = 15.0
	FungalMaxC     = 30.0
	SprayMaxPop    = 0.3
	SprayMaxWindMS = 4.0
)

type Advisory struct {
	Kind    AdvisoryKind `json:"kind"`
	Date    string       `json:"date,omitempty"`
	Message string       `json:"message"`
}

// Advisories evaluates the rule set against r's daily forecast. Day-level
// risks are reported per day; the spray window is the first suitable day.
func Advisories(r Report) []Advisory {
	out := []Advisory{}
	for _, d := range r.Daily {
		if d.MinTempC <= FrostMaxC {
			out = append(out, Advisory{Kind: AdvisoryFrost, Date: d.Date,
				Message: fmt.Sprintf("Frost risk: lows of %.1f°C. Cover seedlings and delay irrigation until mid-morning.", d.MinTempC)})
		}
		if d.MaxTempC >= HeatMinC {
			out = append(out, Advisory{Kind: AdvisoryHeat, Date: d.Date,
				Message: fmt.Sprintf("Heat stress: highs of %.1f°C. Irrigate early and avoid spraying in the afternoon.", d.MaxTempC)})
		}
		if d.RainMM >= HeavyRainMM {
			out = append(out, Advisory{Kind: AdvisoryHeavyRain, Date: d.Date,
				Message: fmt.Sprintf("Heavy rain: %.1f mm expected. Clear drainage channels and postpone fertiliser application.", d.RainMM)})
		}
		if fungalRisk(d) {
			out = append(out, Advisory{Kind: AdvisoryFungalPressure, Date: d.Date,
				Message: fmt.Sprintf("High fungal disease pressure: humidity up to %d%% with mild temperatures. Scout for blight and mildew.", d.MaxHumidity)})
		}
	}
	if d, ok := SprayWindow(r.Daily); ok {
		out = append(out, Advisory{Kind: AdvisorySprayWindow, Date: d.Date,
			Message: fmt.Sprintf("Good spraying conditions: %.0f%% chance of rain, wind up to %.1f m/s.", d.MaxPop*100, d.MaxWindMS)})
	}
	return out
}

// SprayWindow returns the first day dry and calm enough for spraying.
func SprayWindow(days []DailySummary) (DailySummary, bool) {
	for _, d := range days {
		if d.MaxPop < SprayMaxPop && d.MaxWindMS < SprayMaxWindMS {
			return d, true
		}
	}
	return DailySummary{}, false
}

func fungalRisk(d DailySummary) bool {
	mean := (d.MinTempC + d.MaxTempC) / 2
	return d.MaxHumidity >= FungalHumidity && mean >= FungalMinC && mean <= FungalMaxC
}
