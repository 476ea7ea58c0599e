package weather

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: coordinates %.4f,%.4f out of range", ErrInvalidRequest, c.Lat, c.Lon)
	}
	return nil
}

func (c Coordinates) query() url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(c.Lat, 'f', 4, 64)},
		"lon": {strconv.FormatFloat(c.Lon, 'f', 4, 64)},
	}
}

type Location struct {
	Name        string `json:"name,omitempty"`
	Country     string `json:"country,omitempty"`
	Coordinates `json:"coordinates"`
}

type Current struct {
	Time          time.Time `json:"time"`
	Place         string    `json:"place,omitempty"`
	TempC         float64   `json:"temp_c"`
	FeelsLikeC    float64   `json:"feels_like_c"`
	Humidity      int       `json:"humidity"`
	WindMS        float64   `json:"wind_ms"`
	RainLastHour  float64   `json:"rain_last_hour_mm"`
	ConditionCode int       `json:"condition_code"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description"`
}

// DailySummary aggregates one local day of 3-hourly forecast slots.
type DailySummary struct {
	Date          string  `json:"date"`
	MinTempC      float64 `json:"min_temp_c"`
	MaxTempC      float64 `json:"max_temp_c"`
	MaxHumidity   int     `json:"max_humidity"`
	MaxWindMS     float64 `json:"max_wind_ms"`
	MaxPop        float64 `json:"max_pop"`
	RainMM        float64 `json:"rain_mm"`
	ConditionCode int     `json:"condition_code"`
	Condition     string  `json:"condition"`
}

// --- OpenWeatherMap wire types ---

type geoHit struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

type condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type mainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
}

type currentResponse struct {
	Dt      int64       `json:"dt"`
	Name    string      `json:"name"`
	Main    mainBlock   `json:"main"`
	Weather []condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

type forecastSlot struct {
	Dt      int64       `json:"dt"`
	Main    mainBlock   `json:"main"`
	Weather []condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Pop  float64 `json:"pop"`
	Rain struct {
		ThreeHours float64 `json:"3h"`
	} `json:"rain"`
}

type forecastResponse struct {
	List []forecastSlot `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}
