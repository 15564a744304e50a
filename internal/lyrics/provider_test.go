// ABOUTME: Tests for the LRCLIB lyrics provider
// ABOUTME: Covers synced, plain-only, not-found and transport failure lookups
package lyrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewProvider(ProviderConfig{
		BaseURL:   server.URL,
		UserAgent: "visualizer-test",
		Logger:    logger.NewTestLogger(),
	})
}

func TestLookupSynced(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get", r.URL.Path)
		assert.Equal(t, "Artist One", r.URL.Query().Get("artist_name"))
		assert.Equal(t, "Song", r.URL.Query().Get("track_name"))
		assert.Equal(t, "Album", r.URL.Query().Get("album_name"))
		assert.Equal(t, "200", r.URL.Query().Get("duration"))
		assert.Equal(t, "visualizer-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"trackName":"Song","artistName":"Artist One","albumName":"Album",
			"duration":200,"instrumental":false,"plainLyrics":"Hello\nWorld",
			"syncedLyrics":"[00:12.50]Hello\n[01:02.003]World"}`))
	})

	lyr, err := p.Lookup(context.Background(), Query{Artist: "Artist One", Track: "Song", Album: "Album", DurationSeconds: 200})
	require.NoError(t, err)
	require.True(t, lyr.HasSynced())
	assert.Equal(t, []Line{{12500, "Hello"}, {62003, "World"}}, lyr.Synced)
	assert.Equal(t, "Hello\nWorld", lyr.Plain)
}

func TestLookupPlainOnly(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":2,"trackName":"Song","artistName":"A","albumName":"B",
			"duration":100,"instrumental":false,"plainLyrics":"just words","syncedLyrics":null}`))
	})

	lyr, err := p.Lookup(context.Background(), Query{Track: "Song"})
	require.NoError(t, err)
	assert.False(t, lyr.HasSynced())
	assert.Equal(t, "just words", lyr.Plain)
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantName string
	}{
		{"provider error", http.StatusNotFound, `{"code":404,"name":"TrackNotFound","message":"Failed to find specified track"}`, 404, "TrackNotFound"},
		{"status code field", http.StatusBadRequest, `{"statusCode":400,"name":"ValidationError","message":"bad duration"}`, 400, "ValidationError"},
		{"garbage body", http.StatusBadGateway, `<html>oops</html>`, 500, "DeserializationError"},
		{"success status with unknown shape", http.StatusOK, `{"hello":"world"}`, 500, "DeserializationError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Lookup(context.Background(), Query{Track: "x"})
			var lerr *LookupError
			require.True(t, errors.As(err, &lerr), "expected LookupError, got %v", err)
			assert.Equal(t, tt.wantCode, lerr.Code)
			assert.Equal(t, tt.wantName, lerr.Name)
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewProvider(ProviderConfig{BaseURL: url, Logger: logger.NewTestLogger()})
	_, err := p.Lookup(context.Background(), Query{Track: "x"})

	var lerr *LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "RequestError", lerr.Name)
	assert.NotNil(t, errors.Unwrap(err))
}
