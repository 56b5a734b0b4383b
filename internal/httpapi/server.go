package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"SteamPM/internal/catalog"
	"SteamPM/internal/pricemap"
	"SteamPM/internal/wishlist"
	"SteamPM/pkg/kit"
)

const (
	maxSearchLength = 200
	defaultCurrency = "EUR"
	refreshTimeout  = 5 * time.Minute
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type PriceMapper interface {
	GetGameInfoAndPrices(ctx context.Context, id int, targetCurrency string) (pricemap.GameInfo, error)
}

type WishlistPager interface {
	GetPage(ctx context.Context, userID string, page int) (wishlist.Page, error)
}

type Clearer interface {
	Clear()
}

type Server struct {
	State     *catalog.StateStore
	Refresher catalog.Refreshable
	Prices    PriceMapper
	Wishlist  WishlistPager
	Caches    []Clearer
	Log       *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	st, err := s.State.Snapshot()
	if err != nil || st.Status != catalog.StatusReady {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type statusResp struct {
	Status         string     `json:"status"`
	LastUpdated    *time.Time `json:"lastUpdated"`
	GameCount      int        `json:"gameCount"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	UpdateAttempts int        `json:"updateAttempts"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st, err := s.State.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := statusResp{
		Status:         st.Status.String(),
		GameCount:      st.Index.Len(),
		ErrorMessage:   st.ErrorMessage,
		UpdateAttempts: st.UpdateAttempts,
	}
	if !st.LastUpdated.IsZero() {
		t := st.LastUpdated
		resp.LastUpdated = &t
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

type messageResp struct {
	Message string `json:"message"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.logger().Info("manual refresh requested")

	// The refresh outlives a dropped client connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), refreshTimeout)
	defer cancel()

	if !s.Refresher.Refresh(ctx) {
		kit.WriteError(w, r, http.StatusInternalServerError, "refresh failed after all attempts", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, messageResp{Message: "refresh completed successfully"})
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.Caches {
		c.Clear()
	}
	s.logger().Info("caches cleared", zap.Int("caches", len(s.Caches)))
	kit.WriteJSON(w, http.StatusOK, messageResp{Message: "cache cleared successfully"})
}

type searchResp struct {
	Games      []catalog.Entry `json:"games"`
	TotalCount int             `json:"totalCount"`
	SearchTerm string          `json:"searchTerm"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	if utf8.RuneCountInString(term) > maxSearchLength {
		kit.WriteError(w, r, http.StatusBadRequest, "search term must be between 1 and 200 characters", nil)
		return
	}

	st, err := s.State.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if strings.TrimSpace(term) == "" {
		kit.WriteJSON(w, http.StatusOK, searchResp{Games: []catalog.Entry{}})
		return
	}

	games := st.Index.Search(term)
	s.logger().Debug("search", zap.String("term", term), zap.Int("results", len(games)))
	kit.WriteJSON(w, http.StatusOK, searchResp{
		Games:      games,
		TotalCount: len(games),
		SearchTerm: term,
	})
}

func (s *Server) priceMap(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "appId"))
	if err != nil || id < 1 {
		kit.WriteError(w, r, http.StatusBadRequest, "appId must be a positive integer", nil)
		return
	}

	cur := r.URL.Query().Get("currency")
	if cur == "" {
		cur = defaultCurrency
	}
	if !currencyPattern.MatchString(cur) {
		kit.WriteError(w, r, http.StatusBadRequest, "currency code must be exactly 3 uppercase letters", map[string]any{"currency": cur})
		return
	}

	g, err := s.Prices.GetGameInfoAndPrices(r.Context(), id, cur)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, g)
}

func (s *Server) wishlist(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		kit.WriteError(w, r, http.StatusBadRequest, "page must be a positive integer", nil)
		return
	}

	steamID := strings.TrimSpace(r.URL.Query().Get("steamId"))
	if steamID == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "steamId required", nil)
		return
	}

	p, err := s.Wishlist.GetPage(r.Context(), steamID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}
