package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kalambet/cropdoc/internal/imagecodec"
	"github.com/kalambet/cropdoc/internal/profile"
	"github.com/kalambet/cropdoc/internal/service"
	"github.com/kalambet/cropdoc/internal/storage"
	"github.com/kalambet/cropdoc/internal/treatment"
	"github.com/kalambet/cropdoc/internal/weather"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("writing response")
	}
}

// writeError maps domain errors onto the error envelope. Messages for
// unexpected errors are generic; details go to the log only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *service.UnavailableError
	var weatherStatus *weather.StatusError

	switch {
	case errors.Is(err, imagecodec.ErrInvalidInput),
		errors.Is(err, treatment.ErrInvalidRequest),
		errors.Is(err, weather.ErrInvalidRequest),
		errors.Is(err, profile.ErrUnknownKey),
		errors.Is(err, profile.ErrInvalidValue):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, service.ErrSuperseded):
		httpError(w, http.StatusConflict, "superseded", "%v", err)
	case errors.As(err, &unavailable):
		w.Header().Set("Retry-After", "30")
		httpError(w, http.StatusServiceUnavailable, "service_unavailable", "%s", unavailable.Error())
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, weather.ErrPlaceNotFound):
		httpError(w, http.StatusNotFound, "not_found", "place not found")
	case errors.Is(err, weather.ErrNoAPIKey):
		httpError(w, http.StatusServiceUnavailable, "service_unavailable", "weather service is not configured")
	case errors.As(err, &weatherStatus):
		httpError(w, http.StatusBadGateway, "api_error", "weather service returned status %d", weatherStatus.Code)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpError(w, http.StatusServiceUnavailable, "service_unavailable", "request cancelled")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}
