package battlefy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/frostleaf/frost-leaderboard/internal/platform/cache"
	"github.com/frostleaf/frost-leaderboard/internal/platform/logging"
	"github.com/frostleaf/frost-leaderboard/internal/platform/resilience"
)

// ErrTransport marks network-level failures (connect errors, timeouts,
// retryable status codes that stayed bad after retries).
var ErrTransport = crerr.New("battlefy transport failure")

const (
	defaultBaseURL = "https://api.battlefy.com"
	defaultTimeout = 20 * time.Second
	retryBaseDelay = 500 * time.Millisecond
	maxBodyBytes   = 16 << 20
)

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	CircuitBreaker resilience.CircuitBreakerConfig
	RosterCacheTTL time.Duration
}

// Client talks to the Battlefy stage API. It is the only component that
// performs network I/O; everything it returns has already passed schema
// validation.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	rosterCache    *cache.Store
	rosterCacheTTL time.Duration
}

func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		rosterCache:    cache.NewStore(cfg.RosterCacheTTL),
		rosterCacheTTL: cfg.RosterCacheTTL,
	}
}

// FetchBracket retrieves the stage document.
func (c *Client) FetchBracket(ctx context.Context, stageID string) (*Bracket, error) {
	body, err := c.getJSON(ctx, "/stages/"+url.PathEscape(stageID))
	if err != nil {
		return nil, err
	}
	return ParseBracket(body)
}

// FetchMatchList retrieves the ordered list of series for a stage. The
// provider's document order is the canonical processing order downstream.
func (c *Client) FetchMatchList(ctx context.Context, stageID string) ([]MatchSummary, error) {
	body, err := c.getJSON(ctx, "/stages/"+url.PathEscape(stageID)+"/matches")
	if err != nil {
		return nil, err
	}
	return ParseMatchList(body)
}

// FetchMatchDetail retrieves one series with its nested per-game stats.
func (c *Client) FetchMatchDetail(ctx context.Context, stageID, matchID string) (*MatchDetail, error) {
	body, err := c.getJSON(ctx, "/stages/"+url.PathEscape(stageID)+"/matches/"+url.PathEscape(matchID))
	if err != nil {
		return nil, err
	}
	return ParseMatchDetail(body)
}

// FetchTeams retrieves the stage roster. Rosters rarely change mid-stage,
// so responses are cached per stage when a cache TTL is configured.
func (c *Client) FetchTeams(ctx context.Context, stageID string) ([]RosterTeam, error) {
	load := func(ctx context.Context) (any, error) {
		body, err := c.getJSON(ctx, "/stages/"+url.PathEscape(stageID)+"/teams")
		if err != nil {
			return nil, err
		}
		return ParseTeamList(body)
	}

	if c.rosterCacheTTL <= 0 {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return loaded.([]RosterTeam), nil
	}

	loaded, err := c.rosterCache.GetOrLoad(ctx, "roster:"+stageID, load)
	if err != nil {
		return nil, err
	}

	roster, ok := loaded.([]RosterTeam)
	if !ok {
		return nil, fmt.Errorf("unexpected roster cache entry type %T", loaded)
	}
	return roster, nil
}

// getJSON performs one logical GET with retries. Concurrent callers asking
// for the same path share a single request.
func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "battlefy circuit breaker rejected request", "path", path, "state", c.breaker.State())
			return nil, crerr.Wrapf(ErrTransport, "battlefy is temporarily unavailable: %v", err)
		}
	}

	value, err, shared := c.flight.Do(path, func() (any, error) {
		return c.executeRequest(ctx, path)
	})
	if shared {
		c.logger.DebugContext(ctx, "battlefy request deduplicated", "path", path)
	}
	c.recordCircuitResult(err)
	if err != nil {
		return nil, err
	}

	body, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", value)
	}
	return body, nil
}

func (c *Client) executeRequest(ctx context.Context, path string) ([]byte, error) {
	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, crerr.Wrapf(ErrTransport, "GET %s canceled: %v", path, ctx.Err())
			case <-time.After(delay):
			}
			c.logger.WarnContext(ctx, "battlefy request retry", "path", path, "attempt", attempt, "error", lastErr)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrapf(ErrTransport, "create request GET %s: %v", path, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(ErrTransport, "GET %s: %v", path, err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				lastErr = crerr.Wrapf(ErrTransport, "read body GET %s: %v", path, readErr)
				continue
			}
			return body, nil
		}

		if !isRetryableStatus(resp.StatusCode) {
			return nil, crerr.Wrapf(ErrTransport, "GET %s: status=%d body=%s", path, resp.StatusCode, truncate(string(body), 512))
		}
		lastErr = crerr.Wrapf(ErrTransport, "GET %s: status=%d", path, resp.StatusCode)
	}

	return nil, lastErr
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled || c.breaker == nil {
		return
	}
	if err != nil && crerr.Is(err, ErrTransport) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}
