package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kalambet/cropdoc/internal/profile"
	"github.com/kalambet/cropdoc/internal/service"
	"github.com/kalambet/cropdoc/internal/weather"
)

// ProfileStore reads and updates the farm profile. *profile.Manager
// satisfies it.
type ProfileStore interface {
	Get(ctx context.Context) (profile.Profile, error)
	Set(ctx context.Context, key, value string) error
}

// farmProfile returns the stored profile, or a zero one when none is
// configured or it cannot be read.
func farmProfile(ctx context.Context, ps ProfileStore) profile.Profile {
	if ps == nil {
		return profile.Profile{}
	}
	p, err := ps.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("farm profile unavailable, using request values only")
		return profile.Profile{}
	}
	return p
}

func emptyQuery(q weather.Query) bool {
	return q.Place == "" && q.Lat == nil && q.Lon == nil
}

// profileQuery is the weather query for the farm's own location.
func profileQuery(p profile.Profile) weather.Query {
	return weather.Query{Place: p.Place, Lat: p.Lat, Lon: p.Lon}
}

func withDiseaseDefaults(ctx context.Context, ps ProfileStore, req *service.DiseaseRequest) {
	if req.CropHint == "" {
		req.CropHint = farmProfile(ctx, ps).PrimaryCrop()
	}
}

func withSoilDefaults(ctx context.Context, ps ProfileStore, req *service.SoilRequest) {
	if req.Location == "" {
		req.Location = farmProfile(ctx, ps).Place
	}
}

func withYieldDefaults(ctx context.Context, ps ProfileStore, req *service.YieldRequest) {
	if req.Crop != "" && req.AreaHectares > 0 {
		return
	}
	p := farmProfile(ctx, ps)
	if req.Crop == "" {
		req.Crop = p.PrimaryCrop()
	}
	if req.AreaHectares <= 0 {
		req.AreaHectares = p.AreaHectares
	}
}

func withPlanDefaults(ctx context.Context, ps ProfileStore, req *PlanRequest) {
	p := farmProfile(ctx, ps)
	if req.AreaHectares <= 0 {
		req.AreaHectares = p.AreaHectares
	}
	req.PreferOrganic = req.PreferOrganic || p.PreferOrganic
	if req.Place == "" && req.Lat == nil && req.Lon == nil && p.HasLocation() {
		req.Place, req.Lat, req.Lon = p.Place, p.Lat, p.Lon
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Profile == nil {
			httpError(w, http.StatusServiceUnavailable, "service_unavailable", "farm profile is not configured")
			return
		}
		p, err := deps.Profile.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type setProfileRequest struct {
	Value string `json:"value"`
}

func handleSetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Profile == nil {
			httpError(w, http.StatusServiceUnavailable, "service_unavailable", "farm profile is not configured")
			return
		}
		var req setProfileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Profile.Set(r.Context(), chi.URLParam(r, "key"), req.Value); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := deps.Profile.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
