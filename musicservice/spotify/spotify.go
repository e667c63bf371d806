// Package spotify implements musicservice.Client over the Spotify Web API.
//
// Authentication uses a long-lived refresh token; access tokens are
// refreshed automatically. Calls are rate limited and guarded by a circuit
// breaker. Failed calls are not retried.
package spotify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/heavenlydemon269/vibelist/musicservice"
)

// Compile-time check to ensure Client satisfies musicservice.Client.
var _ musicservice.Client = (*Client)(nil)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// resolveBatch is the most IDs GET /tracks accepts.
	resolveBatch = 50
)

// Scopes are the OAuth scopes the client needs.
var Scopes = []string{"playlist-modify-public", "playlist-modify-private"}

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("spotify unavailable")

// Config configures the client.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	BaseURL  string
	TokenURL string

	// Market restricts Resolve to tracks playable in a country (ISO 3166-1).
	Market string

	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: %d %s", e.Status, e.Message)
}

// Client is a Spotify Web API client.
type Client struct {
	http    *http.Client
	baseURL string
	market  string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger

	mu     sync.Mutex
	userID string
}

// New creates a client. ctx carries the HTTP client used for token refreshes
// (see oauth2.HTTPClient).
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify: client id and refresh token are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInHeader},
		Scopes:       Scopes,
	}
	hc := oc.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	hc.Timeout = cfg.Timeout

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		market:  cfg.Market,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		logger:  logger,
	}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "spotify",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("music service circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c, nil
}

// isSuccessful counts client errors as successful calls: the service is up.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
	}
	return false
}

// do sends a request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	data, err := c.cb.Execute(func() ([]byte, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, decodeError(resp.StatusCode, data)
		}
		return data, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return data, nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := http.StatusText(status)
	if json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return &APIError{Status: status, Message: msg}
}

// currentUser returns the ID of the authenticated user.
func (c *Client) currentUser(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != "" {
		return c.userID, nil
	}

	data, err := c.do(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return "", err
	}
	var me struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	c.userID = me.ID
	return me.ID, nil
}

// Resolve implements musicservice.Client. Catalog IDs are Spotify track IDs;
// tracks the API reports as unknown, or unplayable in the configured market,
// are left out.
func (c *Client) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for batch := range musicservice.Batches(ids, resolveBatch) {
		q := url.Values{"ids": {strings.Join(batch, ",")}}
		if c.market != "" {
			q.Set("market", c.market)
		}
		data, err := c.do(ctx, http.MethodGet, "/tracks?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Tracks []*struct {
				ID         string `json:"id"`
				URI        string `json:"uri"`
				IsPlayable *bool  `json:"is_playable"`
			} `json:"tracks"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode tracks: %w", err)
		}
		for i, t := range resp.Tracks {
			if t == nil || i >= len(batch) {
				continue
			}
			if t.IsPlayable != nil && !*t.IsPlayable {
				continue
			}
			out[batch[i]] = t.URI
		}
	}
	return out, nil
}

// CreatePlaylist implements musicservice.Client.
func (c *Client) CreatePlaylist(ctx context.Context, title, description string, public bool) (musicservice.Playlist, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return musicservice.Playlist{}, err
	}

	data, err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(user)+"/playlists", map[string]any{
		"name":        title,
		"description": description,
		"public":      public,
	})
	if err != nil {
		return musicservice.Playlist{}, err
	}

	var p struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return musicservice.Playlist{}, fmt.Errorf("decode playlist: %w", err)
	}
	c.logger.Info("created playlist", "playlist_id", p.ID, "title", p.Name)
	return musicservice.Playlist{ID: p.ID, URL: p.ExternalURLs.Spotify, Title: p.Name}, nil
}

// AddTracks implements musicservice.Client.
func (c *Client) AddTracks(ctx context.Context, playlistID string, refs []string) error {
	for batch := range musicservice.Batches(refs, musicservice.MaxBatch) {
		_, err := c.do(ctx, http.MethodPost, "/playlists/"+url.PathEscape(playlistID)+"/tracks", map[string]any{
			"uris": batch,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveTracks implements musicservice.Client.
func (c *Client) RemoveTracks(ctx context.Context, playlistID string, refs []string) error {
	type trackRef struct {
		URI string `json:"uri"`
	}
	for batch := range musicservice.Batches(refs, musicservice.MaxBatch) {
		tracks := make([]trackRef, len(batch))
		for i, r := range batch {
			tracks[i] = trackRef{URI: r}
		}
		_, err := c.do(ctx, http.MethodDelete, "/playlists/"+url.PathEscape(playlistID)+"/tracks", map[string]any{
			"tracks": tracks,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
