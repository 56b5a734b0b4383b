// Package steam is the HTTP client for the Steam Web API and store
// endpoints.
package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"SteamPM/internal/catalog"
)

const (
	DefaultAppListURL    = "https://api.steampowered.com/IStoreService/GetAppList/v1/"
	DefaultAppDetailsURL = "https://store.steampowered.com/api/appdetails"
	DefaultWishlistURL   = "https://api.steampowered.com/IWishlistService/GetWishlist/v1/"

	appListPageSize = 50000
	maxAppListPages = 1000
)

var (
	ErrRateLimited      = errors.New("steam rate limit exceeded")
	ErrAppNotFound      = errors.New("steam app not found")
	ErrWishlistNotFound = errors.New("steam wishlist not found")
	ErrBadStatus        = errors.New("steam bad status")
	ErrUnavailable      = errors.New("steam unavailable")
	ErrMalformed        = errors.New("steam malformed response")
)

type Config struct {
	APIKey        string
	AppListURL    string
	AppDetailsURL string
	WishlistURL   string
	Timeout       time.Duration

	// RequestsPerSecond paces outbound calls, 0 means unpaced. Burst lets a
	// full regional price sweep start without waiting.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	cfg     Config
	Client  *http.Client
	Log     *zap.Logger
	limiter *rate.Limiter
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.AppListURL == "" {
		cfg.AppListURL = DefaultAppListURL
	}
	if cfg.AppDetailsURL == "" {
		cfg.AppDetailsURL = DefaultAppDetailsURL
	}
	if cfg.WishlistURL == "" {
		cfg.WishlistURL = DefaultWishlistURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		Client: &http.Client{Timeout: cfg.Timeout},
		Log:    log,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	return c
}

// FetchAll walks every page of IStoreService/GetAppList.
func (c *Client) FetchAll(ctx context.Context) ([]catalog.Entry, error) {
	var (
		out  []catalog.Entry
		last int
	)

	for page := 0; page < maxAppListPages; page++ {
		q := url.Values{}
		q.Set("key", c.cfg.APIKey)
		q.Set("max_results", strconv.Itoa(appListPageSize))
		q.Set("include_games", "true")
		if last > 0 {
			q.Set("last_appid", strconv.Itoa(last))
		}

		var body appListResponse
		if err := c.getJSON(ctx, c.cfg.AppListURL, q, &body); err != nil {
			return nil, fmt.Errorf("fetch app list page %d: %w", page, err)
		}

		for _, a := range body.Response.Apps {
			out = append(out, catalog.Entry{ID: a.AppID, Name: a.Name})
		}

		if !body.Response.HaveMoreResults {
			c.Log.Info("steam app list fetched", zap.Int("games", len(out)), zap.Int("pages", page+1))
			return out, nil
		}
		if body.Response.LastAppID <= last {
			return nil, fmt.Errorf("%w: app list cursor did not advance at %d", ErrMalformed, last)
		}
		last = body.Response.LastAppID
	}
	return nil, fmt.Errorf("%w: app list exceeded %d pages", ErrMalformed, maxAppListPages)
}

// FetchAppDetails returns store metadata for id as seen from country cc.
func (c *Client) FetchAppDetails(ctx context.Context, id int, cc string) (AppDetails, error) {
	listed, data, err := c.appDetails(ctx, id, cc, "")
	if err != nil {
		return AppDetails{}, err
	}
	if !listed {
		return AppDetails{}, fmt.Errorf("%w: appid=%d", ErrAppNotFound, id)
	}

	var d AppDetails
	if err := json.Unmarshal(data, &d); err != nil {
		return AppDetails{}, fmt.Errorf("%w: app details %d: %v", ErrMalformed, id, err)
	}
	return d, nil
}

// FetchPrices returns one Quote per country code, in the order given. The
// first code is the baseline: when the app is not listed there, only that
// quote is returned and the other regions are not queried.
func (c *Client) FetchPrices(ctx context.Context, id int, ccs []string) ([]Quote, error) {
	out := make([]Quote, 0, len(ccs))
	for i, cc := range ccs {
		q, err := c.fetchPrice(ctx, id, cc)
		if err != nil {
			return nil, fmt.Errorf("fetch price %d/%s: %w", id, cc, err)
		}
		out = append(out, q)
		if i == 0 && !q.Listed {
			break
		}
	}
	return out, nil
}

func (c *Client) fetchPrice(ctx context.Context, id int, cc string) (Quote, error) {
	q := Quote{Region: cc}

	listed, data, err := c.appDetails(ctx, id, cc, "price_overview")
	if err != nil {
		return q, err
	}
	if !listed {
		c.Log.Debug("app not listed in region", zap.Int("appid", id), zap.String("cc", cc))
		return q, nil
	}
	q.Listed = true

	// Steam sends [] instead of an object when the filter matched nothing.
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return q, nil
	}

	var body struct {
		PriceOverview *PriceOverview `json:"price_overview"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return q, fmt.Errorf("%w: price overview: %v", ErrMalformed, err)
	}
	q.Price = body.PriceOverview
	return q, nil
}

// appDetails unwraps the {"<id>": {"success": bool, "data": ...}} envelope.
func (c *Client) appDetails(ctx context.Context, id int, cc, filters string) (bool, json.RawMessage, error) {
	q := url.Values{}
	q.Set("appids", strconv.Itoa(id))
	q.Set("cc", cc)
	q.Set("l", "english")
	if filters != "" {
		q.Set("filters", filters)
	}

	var body map[string]struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, c.cfg.AppDetailsURL, q, &body); err != nil {
		return false, nil, err
	}

	item, ok := body[strconv.Itoa(id)]
	if !ok || !item.Success {
		return false, nil, nil
	}
	if len(item.Data) == 0 {
		return false, nil, fmt.Errorf("%w: app details %d without data", ErrMalformed, id)
	}
	return true, item.Data, nil
}

// FetchWishlist returns the user's wishlist ordered by descending priority.
func (c *Client) FetchWishlist(ctx context.Context, steamID string) ([]WishlistItem, error) {
	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	q.Set("steamid", steamID)

	var body struct {
		Response map[string]json.RawMessage `json:"response"`
	}
	if err := c.getJSON(ctx, c.cfg.WishlistURL, q, &body); err != nil {
		return nil, fmt.Errorf("fetch wishlist: %w", err)
	}
	if len(body.Response) == 0 {
		return nil, ErrWishlistNotFound
	}

	raw, ok := body.Response["items"]
	if !ok {
		return nil, fmt.Errorf("%w: wishlist without items", ErrMalformed)
	}
	var items []WishlistItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: wishlist items: %v", ErrMalformed, err)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Priority > items[j].Priority })
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, base string, q url.Values, v any) error {
	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("steam request pacing: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.Log.Warn("steam rate limit hit", zap.String("endpoint", redactedPath(u)))
		return ErrRateLimited
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// redactedPath keeps api keys out of logs.
func redactedPath(u *url.URL) string {
	return strings.TrimSuffix(u.Host+u.Path, "/")
}
