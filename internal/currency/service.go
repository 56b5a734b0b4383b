package currency

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"SteamPM/internal/apperr"
	"SteamPM/internal/cache"
)

const fetchTimeout = 30 * time.Second

type RateFetcher interface {
	FetchRates(ctx context.Context, code string) (RateTable, error)
}

// Service serves rate tables from the cache, fetching at most once per code
// at a time on a miss.
type Service struct {
	Fetcher RateFetcher
	Cache   *cache.Cache[RateTable]
	Log     *zap.Logger

	group singleflight.Group
}

func NewService(f RateFetcher, c *cache.Cache[RateTable], log *zap.Logger) *Service {
	if c == nil {
		c = cache.New[RateTable]()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Fetcher: f, Cache: c, Log: log}
}

// Table returns the rate table based on target.
func (s *Service) Table(ctx context.Context, target string) (RateTable, error) {
	code := strings.ToUpper(strings.TrimSpace(target))
	key := cache.CurrencyKey(code)

	if t, ok := s.Cache.Get(key); ok {
		return t, nil
	}

	ch := s.group.DoChan(code, func() (any, error) {
		if t, ok := s.Cache.Get(key); ok {
			return t, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		t, err := s.Fetcher.FetchRates(fctx, code)
		if err != nil {
			return RateTable{}, err
		}
		s.Cache.Set(key, t, cache.DefaultTTL)
		s.Log.Info("currency rates cached", zap.String("currency", code), zap.Int("rates", len(t.Rates)))
		return t, nil
	})

	select {
	case <-ctx.Done():
		return RateTable{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return RateTable{}, s.translate(code, res.Err)
		}
		return res.Val.(RateTable), nil
	}
}

// ConvertError maps a RateTable.Convert failure to an invalid-argument error.
func ConvertError(target string, err error) error {
	if errors.Is(err, ErrRateMissing) || errors.Is(err, ErrRateInvalid) {
		return apperr.Wrap(apperr.KindInvalidArgument, "unable to convert prices",
			map[string]any{"currency": target}, err)
	}
	return apperr.Internal("currency conversion failed", err)
}

func (s *Service) translate(code string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCurrency):
		s.Log.Warn("invalid currency code", zap.String("currency", code))
		return apperr.Wrap(apperr.KindInvalidArgument, "unsupported currency",
			map[string]any{"currency": code}, err)
	case errors.Is(err, ErrQuotaReached):
		s.Log.Warn("currency api quota reached")
		return apperr.Wrap(apperr.KindUnavailable, "currency rates temporarily unavailable", nil, err)
	default:
		s.Log.Error("currency rates fetch failed", zap.String("currency", code), zap.Error(err))
		return apperr.Internal("currency rates fetch failed", err)
	}
}
