package kit

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SteamAPIKey          string        `env:"STEAM_API_KEY"`
	SteamAppListURL      string        `env:"STEAM_APP_LIST_URL" envDefault:"https://api.steampowered.com/IStoreService/GetAppList/v1/"`
	SteamAppDetailsURL   string        `env:"STEAM_APP_DETAILS_URL" envDefault:"https://store.steampowered.com/api/appdetails"`
	SteamWishlistURL     string        `env:"STEAM_WISHLIST_URL" envDefault:"https://api.steampowered.com/IWishlistService/GetWishlist/v1/"`
	SteamCountryCodes    []string      `env:"STEAM_COUNTRY_CODES" envSeparator:","`
	SteamReferenceRegion string        `env:"STEAM_REFERENCE_REGION" envDefault:"cz"`
	SteamTimeout         time.Duration `env:"STEAM_TIMEOUT" envDefault:"30s"`
	SteamRequestsPerSec  float64       `env:"STEAM_REQUESTS_PER_SEC" envDefault:"5"`
	SteamBurst           int           `env:"STEAM_BURST" envDefault:"20"`

	CurrencyAPIURL string `env:"CURRENCY_API_URL" envDefault:"https://v6.exchangerate-api.com/v6"`
	CurrencyAPIKey string `env:"CURRENCY_API_KEY"`

	WishlistPageSize int    `env:"WISHLIST_PAGE_SIZE" envDefault:"10"`
	RefreshAt        string `env:"REFRESH_AT" envDefault:"03:00"`

	SnapshotDriver string `env:"SNAPSHOT_DRIVER" envDefault:"none"`
	SnapshotDSN    string `env:"SNAPSHOT_DSN"`

	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsToken   string `env:"METRICS_TOKEN"`

	RateLimitPerMin int `env:"RATE_LIMIT_PER_MIN" envDefault:"10"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.WishlistPageSize <= 0 {
		return Config{}, fmt.Errorf("WISHLIST_PAGE_SIZE must be positive, got %d", c.WishlistPageSize)
	}
	if c.RateLimitPerMin < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative, got %d", c.RateLimitPerMin)
	}
	if c.SteamRequestsPerSec < 0 {
		return Config{}, fmt.Errorf("STEAM_REQUESTS_PER_SEC must not be negative, got %v", c.SteamRequestsPerSec)
	}
	return c, nil
}
