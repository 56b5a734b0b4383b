package steam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey:        "k",
		AppListURL:    srv.URL + "/applist",
		AppDetailsURL: srv.URL + "/appdetails",
		WishlistURL:   srv.URL + "/wishlist",
	}, zap.NewNop())
}

func TestFetchAll_Paginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("last_appid") {
		case "":
			fmt.Fprint(w, `{"response":{"apps":[{"appid":10,"name":"Counter-Strike"},{"appid":20,"name":"TFC"}],"have_more_results":true,"last_appid":20}}`)
		case "20":
			fmt.Fprint(w, `{"response":{"apps":[{"appid":30,"name":"Day of Defeat"}]}}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("last_appid"))
		}
	})

	got, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 3 || got[2].ID != 30 || got[2].Name != "Day of Defeat" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestFetchAll_StuckCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"apps":[],"have_more_results":true,"last_appid":0}}`)
	})

	_, err := c.FetchAll(context.Background())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFetchAll_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrBadStatus},
		{http.StatusForbidden, ErrBadStatus},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := c.FetchAll(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFetchAppDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cc") != "cz" {
			t.Errorf("expected cc=cz, got %q", r.URL.Query().Get("cc"))
		}
		switch r.URL.Query().Get("appids") {
		case "730":
			fmt.Fprint(w, `{"730":{"success":true,"data":{"steam_appid":730,"name":"Counter-Strike 2",
				"short_description":"shooter","release_date":{"coming_soon":false,"date":"21 Aug, 2012"},
				"developers":["Valve"],"publishers":["Valve"],
				"categories":[{"id":1,"description":"Multi-player"}],"genres":[{"id":"1","description":"Action"}],
				"header_image":"https://h","capsule_image":"https://c"}}}`)
		default:
			fmt.Fprintf(w, `{"%s":{"success":false}}`, r.URL.Query().Get("appids"))
		}
	})

	d, err := c.FetchAppDetails(context.Background(), 730, "cz")
	if err != nil {
		t.Fatalf("FetchAppDetails: %v", err)
	}
	if d.Name != "Counter-Strike 2" || d.ReleaseDate.Date != "21 Aug, 2012" || d.CapsuleImage != "https://c" {
		t.Fatalf("unexpected details: %+v", d)
	}
	if len(d.Genres) != 1 || d.Genres[0].Description != "Action" {
		t.Fatalf("unexpected genres: %+v", d.Genres)
	}

	_, err = c.FetchAppDetails(context.Background(), 1, "cz")
	if !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("expected ErrAppNotFound, got %v", err)
	}
}

func TestFetchPrices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filters") != "price_overview" {
			t.Errorf("expected price filter")
		}
		switch r.URL.Query().Get("cc") {
		case "us":
			fmt.Fprint(w, `{"400":{"success":true,"data":{"price_overview":{"currency":"USD","initial":999,"final":499,"discount_percent":50}}}}`)
		case "ar":
			fmt.Fprint(w, `{"400":{"success":true,"data":[]}}`)
		default:
			fmt.Fprint(w, `{"400":{"success":false}}`)
		}
	})

	quotes, err := c.FetchPrices(context.Background(), 400, []string{"us", "ar", "cn"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}
	if !quotes[0].Listed || quotes[0].Price == nil || quotes[0].Price.Final != 499 {
		t.Fatalf("unexpected us quote: %+v", quotes[0])
	}
	if !quotes[1].Listed || quotes[1].Price != nil {
		t.Fatalf("unexpected ar quote: %+v", quotes[1])
	}
	if quotes[2].Listed || quotes[2].Region != "cn" {
		t.Fatalf("unexpected cn quote: %+v", quotes[2])
	}
}

func TestFetchPrices_StopsWhenBaselineUnlisted(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if cc := r.URL.Query().Get("cc"); cc != "us" {
			t.Errorf("unexpected region %q queried", cc)
		}
		fmt.Fprint(w, `{"999999":{"success":false}}`)
	})

	quotes, err := c.FetchPrices(context.Background(), 999999, []string{"us", "cz", "gb"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Listed || quotes[0].Region != "us" {
		t.Fatalf("expected a single unlisted us quote, got %+v", quotes)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}

func TestFetchWishlist(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("steamid") {
		case "76561197960287930":
			fmt.Fprint(w, `{"response":{"items":[{"appid":1,"priority":2},{"appid":2,"priority":5},{"appid":3,"priority":0}]}}`)
		default:
			fmt.Fprint(w, `{"response":{}}`)
		}
	})

	items, err := c.FetchWishlist(context.Background(), "76561197960287930")
	if err != nil {
		t.Fatalf("FetchWishlist: %v", err)
	}
	if len(items) != 3 || items[0].AppID != 2 || items[1].AppID != 1 || items[2].AppID != 3 {
		t.Fatalf("expected descending priority, got %+v", items)
	}

	_, err = c.FetchWishlist(context.Background(), "76561197960287931")
	if !errors.Is(err, ErrWishlistNotFound) {
		t.Fatalf("expected ErrWishlistNotFound, got %v", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{AppListURL: url}, nil)
	_, err := c.FetchAll(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_PacesRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"400":{"success":true,"data":[]}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		AppDetailsURL:     srv.URL,
		RequestsPerSecond: 0.01,
		Burst:             2,
	}, zap.NewNop())

	if _, err := c.FetchPrices(context.Background(), 400, []string{"us", "cz"}); err != nil {
		t.Fatalf("burst should pass unpaced: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.FetchPrices(ctx, 400, []string{"gb"}); err == nil {
		t.Fatalf("expected pacing to refuse a call past the deadline")
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
}
