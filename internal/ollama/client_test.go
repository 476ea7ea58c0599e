package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagsJSON(names ...string) []byte {
	r := tagsResponse{}
	for _, n := range names {
		r.Models = append(r.Models, modelEntry{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestIsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llava:latest"))
	}))
	defer srv.Close()
	assert.True(t, New(srv.URL).IsRunning(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()
	assert.False(t, New(down.URL).IsRunning(context.Background()))
}

func TestHasModel_MatchesWithoutTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llava:latest", "moondream:1.8b"))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	assert.True(t, c.HasModel(context.Background(), "llava"))
	assert.True(t, c.HasModel(context.Background(), "moondream:1.8b"))
	assert.False(t, c.HasModel(context.Background(), "bakllava"))
}

func TestChat_SendsImagesAndJSONFormat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: `{"soil_type":"Sandy"}`}})
	}))
	defer srv.Close()

	out, err := New(srv.URL).Chat(context.Background(), "llava", []Message{
		{Role: "user", Content: "assess", Images: []string{"QUJD"}},
	}, &Options{Temperature: 0.4, TopK: 32}, true)
	require.NoError(t, err)

	assert.Equal(t, `{"soil_type":"Sandy"}`, out)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Equal(t, []string{"QUJD"}, got.Messages[0].Images)
	require.NotNil(t, got.Options)
	assert.Equal(t, 32, got.Options.TopK)
}

func TestChat_SendsZeroTemperature(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "{}"}})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "llava", nil, &Options{Temperature: 0, TopK: 1}, true)
	require.NoError(t, err)

	opts, ok := raw["options"].(map[string]any)
	require.True(t, ok)
	temp, ok := opts["temperature"]
	require.True(t, ok, "temperature must be sent even when zero")
	assert.Equal(t, 0.0, temp)
}

func TestChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "missing", nil, nil, false)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Error(), "model not found")
}

func TestEnsureVisionModel_PullsMissing(t *testing.T) {
	var pulled atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			if pulled.Load() {
				w.Write(tagsJSON("llava:latest"))
				return
			}
			w.Write(tagsJSON())
		case "/api/pull":
			pulled.Store(true)
			w.Write([]byte(`{"status":"pulling manifest"}` + "\n" + `{"status":"downloading","total":10,"completed":5}` + "\n" + `{"status":"success"}` + "\n"))
		}
	}))
	defer srv.Close()

	require.NoError(t, EnsureVisionModel(context.Background(), New(srv.URL), "llava"))
	assert.True(t, pulled.Load())
}

func TestEnsureVisionModel_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	assert.Error(t, EnsureVisionModel(context.Background(), New(srv.URL), "llava"))
}
