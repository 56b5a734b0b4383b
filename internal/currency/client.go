// Package currency fetches exchange-rate tables and converts Steam prices
// into a requested currency.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

var (
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrQuotaReached    = errors.New("currency api quota reached")
	ErrBadStatus       = errors.New("currency api bad status")
	ErrUnavailable     = errors.New("currency api unavailable")
)

// RateTable maps currency codes to units per one BaseCurrency.
type RateTable struct {
	BaseCurrency string                     `json:"base_code"`
	Rates        map[string]decimal.Decimal `json:"conversion_rates"`
}

type apiError struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
}

type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Log     *zap.Logger
}

func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Log:     log,
	}
}

// FetchRates returns the latest table based on code.
func (c *Client) FetchRates(ctx context.Context, code string) (RateTable, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.BaseURL, c.APIKey, code)
	log := c.Log.With(zap.String("currency", code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RateTable{}, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return RateTable{}, ctx.Err()
		}
		log.Warn("currency api unreachable", zap.Error(err))
		return RateTable{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return RateTable{}, fmt.Errorf("%w: %s", ErrInvalidCurrency, code)
	default:
		var apiErr apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		switch {
		case apiErr.ErrorType == "quota-reached":
			log.Warn("currency api quota reached")
			return RateTable{}, ErrQuotaReached
		case apiErr.ErrorType == "unsupported-code":
			return RateTable{}, fmt.Errorf("%w: %s", ErrInvalidCurrency, code)
		}
		log.Warn("currency api bad status",
			zap.Int("status", resp.StatusCode),
			zap.String("error_type", apiErr.ErrorType),
		)
		return RateTable{}, fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	var t RateTable
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		log.Warn("currency api malformed response", zap.Error(err))
		return RateTable{}, err
	}
	if t.BaseCurrency == "" {
		return RateTable{}, fmt.Errorf("%w: %s", ErrInvalidCurrency, code)
	}
	return t, nil
}
