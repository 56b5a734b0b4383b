// Package wishlist pages through a Steam user's wishlist, resolving each
// item's display metadata through a shared cache.
package wishlist

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"SteamPM/internal/apperr"
	"SteamPM/internal/cache"
	"SteamPM/internal/steam"
)

const (
	DefaultPageSize        = 10
	DefaultReferenceRegion = "cz"

	steamIDLength = 17
	steamIDPrefix = "7656119"
)

type Item struct {
	Name     string `json:"name"`
	ImageURL string `json:"imgUrl"`
	AppID    int    `json:"appId"`
}

type Page struct {
	Page         int    `json:"page"`
	WishlistSize int    `json:"wishlistSize"`
	Games        []Item `json:"games"`
}

type StoreAPI interface {
	FetchWishlist(ctx context.Context, steamID string) ([]steam.WishlistItem, error)
	FetchAppDetails(ctx context.Context, id int, cc string) (steam.AppDetails, error)
}

type Service struct {
	Store           StoreAPI
	Cache           *cache.Cache[Item]
	PageSize        int
	ReferenceRegion string
	Log             *zap.Logger
}

func NewService(store StoreAPI, c *cache.Cache[Item], pageSize int, log *zap.Logger) *Service {
	if c == nil {
		c = cache.New[Item]()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:           store,
		Cache:           c,
		PageSize:        pageSize,
		ReferenceRegion: DefaultReferenceRegion,
		Log:             log,
	}
}

// ValidSteamID reports whether s is a 17-digit individual SteamID64.
func ValidSteamID(s string) bool {
	if len(s) != steamIDLength || !strings.HasPrefix(s, steamIDPrefix) {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// GetPage returns the 1-based page of userID's wishlist, highest priority
// first. Items Steam no longer lists are left out of the page.
func (s *Service) GetPage(ctx context.Context, userID string, page int) (Page, error) {
	if !ValidSteamID(userID) {
		return Page{}, apperr.Invalid("invalid steam id", map[string]any{"steamId": userID})
	}
	if page < 1 {
		return Page{}, apperr.Invalid("page must be at least 1", map[string]any{"page": page})
	}

	log := s.Log.With(zap.String("steam_id", userID), zap.Int("page", page))

	items, err := s.Store.FetchWishlist(ctx, userID)
	if err != nil {
		return Page{}, s.storeError(log, err)
	}

	out := Page{Page: page, WishlistSize: len(items), Games: []Item{}}
	if len(items) == 0 {
		return out, nil
	}

	start := (page - 1) * s.PageSize
	if start >= len(items) {
		return out, nil
	}
	end := min(start+s.PageSize, len(items))

	for _, it := range items[start:end] {
		game, ok, err := s.item(ctx, log, it.AppID)
		if err != nil {
			return Page{}, err
		}
		if ok {
			out.Games = append(out.Games, game)
		}
	}
	return out, nil
}

func (s *Service) item(ctx context.Context, log *zap.Logger, id int) (Item, bool, error) {
	key := cache.WishlistKey(id)
	if it, ok := s.Cache.Get(key); ok {
		return it, true, nil
	}

	d, err := s.Store.FetchAppDetails(ctx, id, s.ReferenceRegion)
	if errors.Is(err, steam.ErrAppNotFound) {
		log.Warn("wishlist item not listed, skipping", zap.Int("appid", id))
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, s.storeError(log, err)
	}

	it := Item{Name: d.Name, ImageURL: d.CapsuleImage, AppID: id}
	s.Cache.Set(key, it, cache.DefaultTTL)
	return it, true, nil
}

func (s *Service) storeError(log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, steam.ErrWishlistNotFound):
		return apperr.Wrap(apperr.KindNotFound, "wishlist not found", nil, err)
	case errors.Is(err, steam.ErrRateLimited):
		return apperr.Wrap(apperr.KindRateLimited, "steam rate limit exceeded", nil, err)
	default:
		log.Error("failed to build wishlist page", zap.Error(err))
		return apperr.Internal("failed to build wishlist page", err)
	}
}
