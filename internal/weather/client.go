// Package weather fetches conditions and forecasts from OpenWeatherMap and
// turns them into farming advisories.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"
	defaultTimeout = 15 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

var (
	ErrNoAPIKey       = errors.New("weather API key is not configured")
	ErrPlaceNotFound  = errors.New("place not found")
	ErrInvalidRequest = errors.New("invalid weather query")
)

// Client talks to the OpenWeatherMap REST API using metric units.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, DefaultBaseURL)
}

// NewClientWithBaseURL points the client at a custom host (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Geocode resolves a free-text place name to coordinates.
func (c *Client) Geocode(ctx context.Context, place string) (Location, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return Location{}, fmt.Errorf("%w: place is empty", ErrInvalidRequest)
	}
	var hits []geoHit
	if err := c.get(ctx, "/geo/1.0/direct", url.Values{"q": {place}, "limit": {"1"}}, &hits); err != nil {
		return Location{}, err
	}
	if len(hits) == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, place)
	}
	h := hits[0]
	return Location{Name: h.Name, Country: h.Country, Coordinates: Coordinates{Lat: h.Lat, Lon: h.Lon}}, nil
}

// Current returns present conditions at coord.
func (c *Client) Current(ctx context.Context, coord Coordinates) (Current, error) {
	if err := coord.validate(); err != nil {
		return Current{}, err
	}
	var r currentResponse
	if err := c.get(ctx, "/data/2.5/weather", coord.query(), &r); err != nil {
		return Current{}, err
	}
	cur := Current{
		Time:         time.Unix(r.Dt, 0).UTC(),
		TempC:        r.Main.Temp,
		FeelsLikeC:   r.Main.FeelsLike,
		Humidity:     r.Main.Humidity,
		WindMS:       r.Wind.Speed,
		RainLastHour: r.Rain.OneHour,
		Place:        r.Name,
	}
	if len(r.Weather) > 0 {
		cur.ConditionCode = r.Weather[0].ID
		cur.Condition = r.Weather[0].Main
		cur.Description = r.Weather[0].Description
	}
	return cur, nil
}

// Forecast returns the 3-hourly forecast aggregated into daily summaries,
// keyed by the location's local date.
func (c *Client) Forecast(ctx context.Context, coord Coordinates) ([]DailySummary, error) {
	if err := coord.validate(); err != nil {
		return nil, err
	}
	var r forecastResponse
	if err := c.get(ctx, "/data/2.5/forecast", coord.query(), &r); err != nil {
		return nil, err
	}
	return aggregateDaily(r.List, time.Duration(r.City.Timezone)*time.Second), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	u := c.baseURL + path + "?" + q.Encode()

	var lastErr error
	for attempt := range maxRetries {
		err := c.doGet(ctx, u, out)
		if err == nil {
			return nil
		}
		if !isRateLimit(err) {
			return err
		}
		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

// StatusError is a non-200, non-429 response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather API status %d: %s", e.Code, e.Message)
}

func (c *Client) doGet(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// redactKey strips the appid value that net/http embeds in URL errors.
func redactKey(err error, key string) error {
	var ue *url.Error
	if key == "" || !errors.As(err, &ue) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
