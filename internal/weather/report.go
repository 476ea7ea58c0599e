package weather

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Query selects a location by place name or by coordinates.
type Query struct {
	Place string
	Lat   *float64
	Lon   *float64
}

type Report struct {
	Location   Location       `json:"location"`
	Current    Current        `json:"current"`
	Daily      []DailySummary `json:"daily"`
	Advisories []Advisory     `json:"advisories"`
}

// Report geocodes q when needed, then fetches current conditions and the
// forecast concurrently.
func (c *Client) Report(ctx context.Context, q Query) (Report, error) {
	loc, err := c.resolve(ctx, q)
	if err != nil {
		return Report{}, err
	}

	var (
		cur   Current
		daily []DailySummary
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = c.Current(gCtx, loc.Coordinates)
		if err != nil {
			return fmt.Errorf("current conditions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		daily, err = c.Forecast(gCtx, loc.Coordinates)
		if err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if loc.Name == "" {
		loc.Name = cur.Place
	}
	r := Report{Location: loc, Current: cur, Daily: daily}
	r.Advisories = Advisories(r)
	return r, nil
}

func (c *Client) resolve(ctx context.Context, q Query) (Location, error) {
	if q.Lat != nil && q.Lon != nil {
		coord := Coordinates{Lat: *q.Lat, Lon: *q.Lon}
		if err := coord.validate(); err != nil {
			return Location{}, err
		}
		return Location{Name: strings.TrimSpace(q.Place), Coordinates: coord}, nil
	}
	if q.Lat != nil || q.Lon != nil {
		return Location{}, fmt.Errorf("%w: both lat and lon are required", ErrInvalidRequest)
	}
	return c.Geocode(ctx, q.Place)
}

// aggregateDaily groups slots by local calendar date, in chronological order.
func aggregateDaily(slots []forecastSlot, offset time.Duration) []DailySummary {
	out := []DailySummary{}
	index := map[string]int{}
	counts := []map[int]int{}
	names := map[int]string{}

	for _, s := range slots {
		date := time.Unix(s.Dt, 0).UTC().Add(offset).Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			i = len(out)
			index[date] = i
			out = append(out, DailySummary{
				Date:     date,
				MinTempC: math.Inf(1),
				MaxTempC: math.Inf(-1),
			})
			counts = append(counts, map[int]int{})
		}
		d := &out[i]
		d.MinTempC = math.Min(d.MinTempC, math.Min(s.Main.TempMin, s.Main.Temp))
		d.MaxTempC = math.Max(d.MaxTempC, math.Max(s.Main.TempMax, s.Main.Temp))
		d.MaxHumidity = max(d.MaxHumidity, s.Main.Humidity)
		d.MaxWindMS = math.Max(d.MaxWindMS, s.Wind.Speed)
		d.MaxPop = math.Max(d.MaxPop, s.Pop)
		d.RainMM += s.Rain.ThreeHours
		if len(s.Weather) > 0 {
			w := s.Weather[0]
			counts[i][w.ID]++
			if _, ok := names[w.ID]; !ok {
				names[w.ID] = w.Main
			}
			if counts[i][w.ID] > counts[i][d.ConditionCode] || d.ConditionCode == 0 {
				d.ConditionCode = w.ID
			}
		}
	}
	for i := range out {
		out[i].Condition = names[out[i].ConditionCode]
		out[i].RainMM = math.Round(out[i].RainMM*10) / 10
	}
	return out
}
