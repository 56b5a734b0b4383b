package steam

// Described is Steam's {"description": "..."} wrapper for categories and genres.
type Described struct {
	Description string `json:"description"`
}

type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// PriceOverview amounts are minor currency units.
type PriceOverview struct {
	Currency        string `json:"currency"`
	Initial         int64  `json:"initial"`
	Final           int64  `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

type AppDetails struct {
	AppID            int            `json:"steam_appid"`
	Name             string         `json:"name"`
	ShortDescription string         `json:"short_description"`
	ReleaseDate      ReleaseDate    `json:"release_date"`
	Developers       []string       `json:"developers"`
	Publishers       []string       `json:"publishers"`
	Categories       []Described    `json:"categories"`
	Genres           []Described    `json:"genres"`
	HeaderImage      string         `json:"header_image"`
	CapsuleImage     string         `json:"capsule_image"`
	PriceOverview    *PriceOverview `json:"price_overview,omitempty"`
}

// Quote is the outcome of one regional price lookup. Listed is false when
// Steam does not know the app in that region; Price is nil when the app is
// listed but has no price there.
type Quote struct {
	Region string
	Listed bool
	Price  *PriceOverview
}

type WishlistItem struct {
	AppID     int   `json:"appid"`
	Priority  int   `json:"priority"`
	DateAdded int64 `json:"date_added"`
}

type appListResponse struct {
	Response struct {
		Apps []struct {
			AppID int    `json:"appid"`
			Name  string `json:"name"`
		} `json:"apps"`
		HaveMoreResults bool `json:"have_more_results"`
		LastAppID       int  `json:"last_appid"`
	} `json:"response"`
}
