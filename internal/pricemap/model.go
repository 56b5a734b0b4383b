// Package pricemap assembles a game's store metadata with its regional
// prices and converts them into a requested currency.
package pricemap

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"SteamPM/internal/steam"
)

// Price is one regional price. Initial and Final are in major units of the
// region's currency; the Converted fields are only set on responses.
type Price struct {
	DiscountPercent  int                 `json:"discountPercent"`
	Initial          decimal.Decimal     `json:"initial"`
	Final            decimal.Decimal     `json:"final"`
	ConvertedInitial decimal.NullDecimal `json:"convertedInitial"`
	ConvertedFinal   decimal.NullDecimal `json:"convertedFinal"`

	initialMinor int64
	finalMinor   int64
}

func newPrice(p steam.PriceOverview) Price {
	return Price{
		DiscountPercent: p.DiscountPercent,
		Initial:         decimal.New(p.Initial, -2),
		Final:           decimal.New(p.Final, -2),
		initialMinor:    p.Initial,
		finalMinor:      p.Final,
	}
}

type GameInfo struct {
	AppID            int              `json:"appId"`
	Name             string           `json:"name"`
	ShortDescription string           `json:"shortDescription"`
	ReleaseDate      string           `json:"releaseDate"`
	Developers       []string         `json:"developers"`
	Publishers       []string         `json:"publishers"`
	Categories       []string         `json:"categories"`
	Genres           []string         `json:"genres"`
	HeaderImage      string           `json:"headerImage"`
	Currency         string           `json:"currency,omitempty"`
	Prices           map[string]Price `json:"priceOverview"`
}

// clone copies g deeply enough that conversions on the copy never reach
// the cached value.
func (g GameInfo) clone() GameInfo {
	out := g
	out.Developers = slices.Clone(g.Developers)
	out.Publishers = slices.Clone(g.Publishers)
	out.Categories = slices.Clone(g.Categories)
	out.Genres = slices.Clone(g.Genres)
	out.Prices = maps.Clone(g.Prices)
	if out.Prices == nil {
		out.Prices = map[string]Price{}
	}
	return out
}

func descriptions(ds []steam.Described) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Description)
	}
	return out
}
