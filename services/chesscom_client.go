// services/chesscom_client.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"player-monitor-system/config"
	"player-monitor-system/logging"
	"player-monitor-system/metrics"
	"player-monitor-system/utils"
)

var ErrPlayerNotFound = errors.New("player not found")

// ChessComClient reads player presence from the public Chess.com API.
type ChessComClient struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	OnlineWindow time.Duration
	Client       *http.Client

	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	now     func() time.Time
}

type chessComProfile struct {
	Username   string `json:"username"`
	LastOnline int64  `json:"last_online"`
}

type chessComToMove struct {
	Games []struct {
		URL     string `json:"url"`
		MoveBy  int64  `json:"move_by"`
		Turn    string `json:"turn"`
		Control string `json:"time_control"`
	} `json:"games"`
}

func NewChessComClient(cfg config.ChessComConfig) *ChessComClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	metrics.UpstreamCircuitState.Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "chesscom-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[CHESSCOM] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CHESSCOM] Circuit state transition")
			metrics.UpstreamCircuitState.Set(circuitStateValue(to))
		},
		// an unknown player is a valid answer, not an upstream fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrPlayerNotFound)
		},
	})

	return &ChessComClient{
		BaseURL:      cfg.BaseURL,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.Timeout,
		OnlineWindow: cfg.OnlineWindow,
		Client:       utils.NewHTTPClient(cfg.Timeout + 5*time.Second),
		limiter:      rate.NewLimiter(limit, 1),
		cb:           cb,
		now:          time.Now,
	}
}

func circuitStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// FetchStatus combines the profile (last_online) with the daily games awaiting
// a move. A game counts as live when it has both move_by and turn.
func (c *ChessComClient) FetchStatus(ctx context.Context, username string) (*FetchedStatus, error) {
	username = utils.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("empty username")
	}
	escaped := url.PathEscape(username)

	var profile chessComProfile
	if err := c.getJSON(ctx, "/pub/player/"+escaped, &profile); err != nil {
		return nil, err
	}

	var toMove chessComToMove
	if err := c.getJSON(ctx, "/pub/player/"+escaped+"/games/to-move", &toMove); err != nil {
		return nil, err
	}

	status := &FetchedStatus{Username: username}
	for _, g := range toMove.Games {
		if g.MoveBy == 0 || g.Turn == "" {
			continue
		}
		if !status.IsPlaying {
			status.IsPlaying = true
			gameURL := g.URL
			status.CurrentGameURL = &gameURL
			status.TimeControl = g.Control
		}
	}

	var lastOnline time.Time
	if profile.LastOnline > 0 {
		lastOnline = time.Unix(profile.LastOnline, 0).UTC()
	}
	recentlyOnline := !lastOnline.IsZero() && c.now().Sub(lastOnline) <= c.OnlineWindow
	status.IsOnline = status.IsPlaying || recentlyOnline
	if status.IsOnline && !lastOnline.IsZero() {
		status.LastSeen = &lastOnline
	}

	return status, nil
}

func (c *ChessComClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.get(ctx, path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("chess.com unavailable: %w", err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *ChessComClient) get(ctx context.Context, path string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPlayerNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logging.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("[CHESSCOM] Unexpected response")
		return nil, fmt.Errorf("chess.com %s returned %d: %s", path, resp.StatusCode, string(b))
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
