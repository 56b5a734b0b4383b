package pricemap

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"SteamPM/internal/apperr"
	"SteamPM/internal/cache"
	"SteamPM/internal/currency"
	"SteamPM/internal/steam"
)

const (
	DefaultReferenceRegion = "cz"
	DefaultCurrency        = "EUR"

	assembleTimeout = 2 * time.Minute
)

// DefaultRegions is the ordered region list quotes are fetched for. The
// first entry is the baseline: an app Steam does not list there is treated
// as unknown everywhere.
var DefaultRegions = []string{
	"us", "cz", "gb", "pl", "br", "ru", "tr", "ua", "ar", "dz", "np", "am",
	"in", "cn", "jp", "kr", "au", "ca", "mx", "za",
}

type StoreAPI interface {
	FetchAppDetails(ctx context.Context, id int, cc string) (steam.AppDetails, error)
	FetchPrices(ctx context.Context, id int, ccs []string) ([]steam.Quote, error)
}

type RateSource interface {
	Table(ctx context.Context, target string) (currency.RateTable, error)
}

type Service struct {
	Store           StoreAPI
	Rates           RateSource
	Cache           *cache.Cache[GameInfo]
	ReferenceRegion string
	Regions         []string
	Log             *zap.Logger

	group singleflight.Group
}

func NewService(store StoreAPI, rates RateSource, c *cache.Cache[GameInfo], log *zap.Logger) *Service {
	if c == nil {
		c = cache.New[GameInfo]()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:           store,
		Rates:           rates,
		Cache:           c,
		ReferenceRegion: DefaultReferenceRegion,
		Regions:         DefaultRegions,
		Log:             log,
	}
}

// GetGameInfoAndPrices returns the game's metadata and regional prices with
// converted amounts in targetCurrency.
func (s *Service) GetGameInfoAndPrices(ctx context.Context, id int, targetCurrency string) (GameInfo, error) {
	info, err := s.gameInfo(ctx, id)
	if err != nil {
		return GameInfo{}, err
	}

	tbl, err := s.Rates.Table(ctx, targetCurrency)
	if err != nil {
		return GameInfo{}, passThrough(err, "failed to load currency rates")
	}

	out := info.clone()
	out.Currency = tbl.BaseCurrency
	for key, p := range out.Prices {
		ci, err := tbl.Convert(key, p.initialMinor)
		if err != nil {
			return GameInfo{}, currency.ConvertError(targetCurrency, err)
		}
		cf, err := tbl.Convert(key, p.finalMinor)
		if err != nil {
			return GameInfo{}, currency.ConvertError(targetCurrency, err)
		}
		p.ConvertedInitial = decimal.NewNullDecimal(ci)
		p.ConvertedFinal = decimal.NewNullDecimal(cf)
		out.Prices[key] = p
	}
	return out, nil
}

func (s *Service) gameInfo(ctx context.Context, id int) (GameInfo, error) {
	key := cache.GameKey(id)
	if g, ok := s.Cache.Get(key); ok {
		return g, nil
	}

	// The shared lookup is detached from the caller that started it, so a
	// client going away does not fail everyone waiting on the same app.
	ch := s.group.DoChan(strconv.Itoa(id), func() (any, error) {
		if g, ok := s.Cache.Get(key); ok {
			return g, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), assembleTimeout)
		defer cancel()

		g, err := s.assemble(lctx, id)
		if err != nil {
			return GameInfo{}, err
		}
		s.Cache.Set(key, g, cache.DefaultTTL)
		return g, nil
	})

	select {
	case <-ctx.Done():
		return GameInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return GameInfo{}, res.Err
		}
		return res.Val.(GameInfo), nil
	}
}

func (s *Service) assemble(ctx context.Context, id int) (GameInfo, error) {
	log := s.Log.With(zap.Int("appid", id))

	details, err := s.Store.FetchAppDetails(ctx, id, s.ReferenceRegion)
	if err != nil {
		return GameInfo{}, s.storeError(log, id, err)
	}

	quotes, err := s.Store.FetchPrices(ctx, id, s.Regions)
	if err != nil {
		return GameInfo{}, s.storeError(log, id, err)
	}

	g := GameInfo{
		AppID:            details.AppID,
		Name:             details.Name,
		ShortDescription: details.ShortDescription,
		ReleaseDate:      details.ReleaseDate.Date,
		Developers:       details.Developers,
		Publishers:       details.Publishers,
		Categories:       descriptions(details.Categories),
		Genres:           descriptions(details.Genres),
		HeaderImage:      details.HeaderImage,
		Prices:           make(map[string]Price, len(quotes)),
	}
	if g.AppID == 0 {
		g.AppID = id
	}

	for i, q := range quotes {
		if !q.Listed {
			if i == 0 {
				log.Warn("game not listed in baseline region", zap.String("region", q.Region))
				return GameInfo{}, notFound(id)
			}
			log.Debug("game not available in region, skipping", zap.String("region", q.Region))
			continue
		}
		if q.Price == nil {
			log.Debug("no price in region, skipping", zap.String("region", q.Region))
			continue
		}

		key := priceKey(q)
		if _, dup := g.Prices[key]; dup {
			log.Debug("duplicate price key, keeping first", zap.String("key", key), zap.String("region", q.Region))
			continue
		}
		g.Prices[key] = newPrice(*q.Price)
	}

	log.Info("game prices assembled", zap.Int("prices", len(g.Prices)))
	return g, nil
}

// priceKey is the currency code, or the regional bucket for USD regions.
func priceKey(q steam.Quote) string {
	if bucket, ok := currency.RegionalBuckets[q.Region]; ok {
		return bucket
	}
	return q.Price.Currency
}

func (s *Service) storeError(log *zap.Logger, id int, err error) error {
	switch {
	case errors.Is(err, steam.ErrAppNotFound):
		log.Warn("game not found in store")
		return notFound(id)
	case errors.Is(err, steam.ErrRateLimited):
		return apperr.Wrap(apperr.KindRateLimited, "steam rate limit exceeded", nil, err)
	default:
		log.Error("failed to fetch game info and prices", zap.Error(err))
		return apperr.Internal("failed to fetch game info and prices", err)
	}
}

func notFound(id int) error {
	return apperr.NotFound("game not found", map[string]any{"appId": id})
}

func passThrough(err error, msg string) error {
	if apperr.IsPassThrough(err) {
		return err
	}
	return apperr.Internal(msg, err)
}
