package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/history"
	"github.com/kalambet/cropdoc/internal/service"
	"github.com/kalambet/cropdoc/internal/treatment"
	"github.com/kalambet/cropdoc/internal/weather"
)

// Photos arrive base64-encoded in JSON, so the body limit is generous.
const maxRequestBodySize = 32 << 20

// Analyzer runs analyses. *service.Service satisfies it.
type Analyzer interface {
	AnalyzeDisease(ctx context.Context, session string, req service.DiseaseRequest) (service.Outcome[analysis.DiseaseResult], error)
	AnalyzeSoil(ctx context.Context, session string, req service.SoilRequest) (service.Outcome[analysis.SoilResult], error)
	AnalyzeYield(ctx context.Context, session string, req service.YieldRequest) (service.Outcome[analysis.YieldResult], error)
	AnalyzeGitError(ctx context.Context, session string, req service.GitErrorRequest) (service.Outcome[analysis.GitErrorResult], error)
}

// HistoryReader reads persisted analyses. *history.Store satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, recordType string, limit int) ([]history.Record, error)
	Get(ctx context.Context, id string) (history.Record, error)
}

// WeatherReporter fetches weather reports. *weather.Client satisfies it.
type WeatherReporter interface {
	Report(ctx context.Context, q weather.Query) (weather.Report, error)
}

type Deps struct {
	Analyzer Analyzer
	History  HistoryReader
	Weather  WeatherReporter // optional; weather routes return 503 when nil
	Profile  ProfileStore    // optional; requests then use only their own values
	Token    string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Use(Session)

		r.Post("/v1/analyses/{kind}", handleAnalyze(deps))
		r.Get("/v1/history", handleListHistory(deps))
		r.Get("/v1/history/{id}", handleGetHistory(deps))
		r.Get("/v1/weather", handleWeather(deps))
		r.Post("/v1/treatments/plan", handlePlan(deps))
		r.Get("/v1/treatments/resources", handleResources)
		r.Get("/v1/profile", handleGetProfile(deps))
		r.Put("/v1/profile/{key}", handleSetProfile(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := analysis.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		ctx, session := r.Context(), SessionFrom(r.Context())

		var (
			out    any
			runErr error
		)
		switch kind {
		case analysis.KindDisease:
			var req service.DiseaseRequest
			if !decodeBody(w, r, &req) {
				return
			}
			withDiseaseDefaults(ctx, deps.Profile, &req)
			out, runErr = deps.Analyzer.AnalyzeDisease(ctx, session, req)
		case analysis.KindSoil:
			var req service.SoilRequest
			if !decodeBody(w, r, &req) {
				return
			}
			withSoilDefaults(ctx, deps.Profile, &req)
			out, runErr = deps.Analyzer.AnalyzeSoil(ctx, session, req)
		case analysis.KindYield:
			var req service.YieldRequest
			if !decodeBody(w, r, &req) {
				return
			}
			withYieldDefaults(ctx, deps.Profile, &req)
			out, runErr = deps.Analyzer.AnalyzeYield(ctx, session, req)
		case analysis.KindGitError:
			var req service.GitErrorRequest
			if !decodeBody(w, r, &req) {
				return
			}
			out, runErr = deps.Analyzer.AnalyzeGitError(ctx, session, req)
		}
		if runErr != nil {
			writeError(w, r, runErr)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordType := r.URL.Query().Get("type")
		if recordType != "" {
			if _, err := analysis.ParseKind(recordType); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
		}
		limit := parseIntParam(r, "limit", 0, 100)

		recs, err := deps.History.Recent(r.Context(), recordType, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleGetHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.History.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleWeather(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Weather == nil {
			httpError(w, http.StatusServiceUnavailable, "service_unavailable", "weather service is not configured")
			return
		}
		q, err := weatherQuery(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if emptyQuery(q) {
			q = profileQuery(farmProfile(r.Context(), deps.Profile))
		}
		report, err := deps.Weather.Report(r.Context(), q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func weatherQuery(r *http.Request) (weather.Query, error) {
	v := r.URL.Query()
	q := weather.Query{Place: v.Get("place")}
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"lat", &q.Lat}, {"lon", &q.Lon}} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return weather.Query{}, err
		}
		*p.dst = &f
	}
	return q, nil
}

// PlanRequest is a treatment request plus an optional location whose
// forecast schedules spraying.
type PlanRequest struct {
	treatment.Request
	Place string   `json:"place,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
}

func handlePlan(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlanRequest
		if !decodeBody(w, r, &req) {
			return
		}
		withPlanDefaults(r.Context(), deps.Profile, &req)

		hasLocation := req.Place != "" || req.Lat != nil || req.Lon != nil
		if hasLocation && deps.Weather != nil && len(req.Forecast) == 0 {
			report, err := deps.Weather.Report(r.Context(), weather.Query{Place: req.Place, Lat: req.Lat, Lon: req.Lon})
			if err != nil {
				log.Warn().Err(err).Msg("forecast unavailable, planning without spray window")
			} else {
				req.Forecast = report.Daily
			}
		}

		plan, err := treatment.Optimize(req.Request)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func handleResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, treatment.Catalog())
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
