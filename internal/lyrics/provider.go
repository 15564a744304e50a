// ABOUTME: LRCLIB lyric provider client
// ABOUTME: Looks up synced or plain lyrics by artist, track, album and duration
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
)

// DefaultBaseURL is the public LRCLIB endpoint
const DefaultBaseURL = "https://lrclib.net"

// Query identifies the track to look up
type Query struct {
	Artist          string
	Track           string
	Album           string
	DurationSeconds int
}

// LookupError is the typed failure of a lookup
type LookupError struct {
	Code    int
	Name    string
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lyrics lookup failed: %s (%d): %s", e.Name, e.Code, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// ProviderConfig holds provider configuration
type ProviderConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *observe.Metrics
}

// Provider fetches lyrics from an LRCLIB-compatible server
type Provider struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       *slog.Logger
	metrics   *observe.Metrics
}

// NewProvider creates a provider
func NewProvider(config ProviderConfig) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	if config.UserAgent == "" {
		config.UserAgent = "resonate-visualizer"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	return &Provider{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		userAgent: config.UserAgent,
		client:    config.HTTPClient,
		log:       config.Logger.With("component", "lyrics"),
		metrics:   config.Metrics,
	}
}

type successResponse struct {
	ID           *int64  `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics *string `json:"syncedLyrics"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Name       string `json:"name"`
}

// Lookup fetches lyrics for q. Every failure is a *LookupError.
func (p *Provider) Lookup(ctx context.Context, q Query) (Lyrics, error) {
	lyr, err := p.lookup(ctx, q)
	status := "ok"
	if err != nil {
		status = "error"
	} else if !lyr.HasSynced() {
		status = "plain"
	}
	p.metrics.RecordLyricsLookup(ctx, status)
	return lyr, err
}

func (p *Provider) lookup(ctx context.Context, q Query) (Lyrics, error) {
	params := url.Values{}
	params.Set("artist_name", q.Artist)
	params.Set("track_name", q.Track)
	params.Set("album_name", q.Album)
	params.Set("duration", strconv.Itoa(q.DurationSeconds))

	endpoint := p.baseURL + "/api/get?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Lyrics{}, &LookupError{Code: 0, Name: "RequestError", Message: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", p.userAgent)

	p.log.Debug("looking up lyrics", "artist", q.Artist, "track", q.Track)

	resp, err := p.client.Do(req)
	if err != nil {
		return Lyrics{}, &LookupError{Code: 0, Name: "RequestError", Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Lyrics{}, &LookupError{Code: resp.StatusCode, Name: "RequestError", Message: err.Error(), Err: err}
	}

	if resp.StatusCode == http.StatusOK {
		var ok successResponse
		if err := json.Unmarshal(body, &ok); err == nil && ok.ID != nil {
			lyr := Lyrics{
				Plain:        ok.PlainLyrics,
				Instrumental: ok.Instrumental,
			}
			if ok.SyncedLyrics != nil {
				lyr.Synced = ParseLRC(*ok.SyncedLyrics)
			}
			return lyr, nil
		}
	}

	var fail errorResponse
	if err := json.Unmarshal(body, &fail); err == nil && (fail.StatusCode != 0 || fail.Code != 0) {
		code := fail.StatusCode
		if code == 0 {
			code = fail.Code
		}
		return Lyrics{}, &LookupError{Code: code, Name: fail.Name, Message: fail.Message}
	}

	return Lyrics{}, &LookupError{
		Code:    500,
		Name:    "DeserializationError",
		Message: fmt.Sprintf("Failed to deserialize response (HTTP %d)", resp.StatusCode),
	}
}
