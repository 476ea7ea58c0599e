package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalambet/cropdoc/internal/extract"
	"github.com/kalambet/cropdoc/internal/model"
	"github.com/kalambet/cropdoc/internal/ollama"
	"github.com/kalambet/cropdoc/internal/rotation"
)

func TestClassify(t *testing.T) {
	wrap := func(err error) error {
		return &rotation.AttemptError{Index: 0, Label: "gemini:****abcd", Err: err}
	}
	cases := []struct {
		err  error
		want Reason
	}{
		{nil, ReasonUnknown},
		{wrap(errors.New("API key not valid. Please pass a valid API key.")), ReasonAccessDenied},
		{wrap(errors.New("Error 429, Message: Resource has been exhausted (e.g. check quota)")), ReasonAccessDenied},
		{wrap(&ollama.StatusError{Op: "chat", Code: 401}), ReasonAccessDenied},
		{wrap(&ollama.StatusError{Op: "chat", Code: 503}), ReasonConnectivity},
		{wrap(&ollama.StatusError{Op: "chat", Code: 400}), ReasonImageQuality},
		{wrap(fmt.Errorf("attempt abandoned: %w", context.DeadlineExceeded)), ReasonConnectivity},
		{wrap(errors.New("dial tcp 10.0.0.1:443: connection refused")), ReasonConnectivity},
		{wrap(fmt.Errorf("%w: no parseable JSON object", extract.ErrMalformedResponse)), ReasonImageQuality},
		{wrap(model.ErrEmptyResponse), ReasonImageQuality},
		{wrap(errors.New("Unsupported MIME type: image/heic")), ReasonImageQuality},
		{wrap(errors.New("something odd happened")), ReasonUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.err), "%v", tc.err)
	}
}

func TestUnavailableError_PlainLanguage(t *testing.T) {
	cause := errors.New("googleapi: Error 403: PERMISSION_DENIED raw provider text")
	for _, r := range []Reason{ReasonImageQuality, ReasonConnectivity, ReasonAccessDenied, ReasonUnknown} {
		e := &UnavailableError{Reason: r, cause: cause}
		assert.NotEmpty(t, e.Error())
		assert.NotContains(t, e.Error(), "PERMISSION_DENIED")
		assert.ErrorIs(t, e, cause)
	}
}
