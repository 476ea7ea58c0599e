package service

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/kalambet/cropdoc/internal/extract"
	"github.com/kalambet/cropdoc/internal/model"
	"github.com/kalambet/cropdoc/internal/ollama"
)

// ErrSuperseded means a newer request for the same session replaced this one.
var ErrSuperseded = errors.New("request superseded by a newer request")

type Reason string

const (
	ReasonImageQuality Reason = "image_quality"
	ReasonConnectivity Reason = "connectivity"
	ReasonAccessDenied Reason = "access_denied"
	ReasonUnknown      Reason = "unknown"
)

// UnavailableError is returned when every credential failed for a kind that
// has no offline analyzer. Its message is safe to show to farmers.
type UnavailableError struct {
	Reason   Reason
	Attempts int
	cause    error
}

func (e *UnavailableError) Error() string {
	switch e.Reason {
	case ReasonImageQuality:
		return "The analysis service could not read this photo. Try a sharper, well-lit picture."
	case ReasonConnectivity:
		return "The analysis service could not be reached. Check your connection and try again."
	case ReasonAccessDenied:
		return "The analysis service refused the request. Try again later or contact support."
	default:
		return "The analysis could not be completed. Please try again."
	}
}

func (e *UnavailableError) Unwrap() error { return e.cause }

// classify maps the last attempt error onto a user-facing reason.
func classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		if r := classifyStatus(apiErr.Code); r != ReasonUnknown {
			return r
		}
	}
	var statusErr *ollama.StatusError
	if errors.As(err, &statusErr) {
		if r := classifyStatus(statusErr.Code); r != ReasonUnknown {
			return r
		}
	}
	if errors.Is(err, extract.ErrMalformedResponse) || errors.Is(err, model.ErrEmptyResponse) {
		return ReasonImageQuality
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonConnectivity
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "api key", "api_key", "permission", "unauthorized", "forbidden", "quota", "resource exhausted", "rate limit"):
		return ReasonAccessDenied
	case containsAny(msg, "image", "mime", "unsupported", "invalid argument", "safety", "blocked"):
		return ReasonImageQuality
	case containsAny(msg, "connection", "network", "timeout", "dial", "no such host", "unreachable", "eof"):
		return ReasonConnectivity
	}
	return ReasonUnknown
}

func classifyStatus(code int) Reason {
	switch {
	case code == 400 || code == 413 || code == 415:
		return ReasonImageQuality
	case code == 401 || code == 403 || code == 429:
		return ReasonAccessDenied
	case code >= 500:
		return ReasonConnectivity
	}
	return ReasonUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
