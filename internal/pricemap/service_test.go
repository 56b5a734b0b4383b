package pricemap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SteamPM/internal/apperr"
	"SteamPM/internal/cache"
	"SteamPM/internal/currency"
	"SteamPM/internal/steam"
)

type fakeStore struct {
	mu           sync.Mutex
	detailsCalls int
	priceCalls   int
	detailsErr   error
	pricesErr    error
	quotes       []steam.Quote
}

func (f *fakeStore) FetchAppDetails(ctx context.Context, id int, cc string) (steam.AppDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsCalls++
	if f.detailsErr != nil {
		return steam.AppDetails{}, f.detailsErr
	}
	return steam.AppDetails{
		AppID:       id,
		Name:        "Half-Life",
		ReleaseDate: steam.ReleaseDate{Date: "8 Nov, 1998"},
		Developers:  []string{"Valve"},
		Genres:      []steam.Described{{Description: "Action"}},
		Categories:  []steam.Described{{Description: "Single-player"}},
	}, nil
}

func (f *fakeStore) FetchPrices(ctx context.Context, id int, ccs []string) ([]steam.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.pricesErr != nil {
		return nil, f.pricesErr
	}
	return f.quotes, nil
}

type fakeRates struct {
	tables map[string]currency.RateTable
	err    error
}

func (f *fakeRates) Table(ctx context.Context, target string) (currency.RateTable, error) {
	if f.err != nil {
		return currency.RateTable{}, f.err
	}
	t, ok := f.tables[target]
	if !ok {
		return currency.RateTable{}, apperr.Invalid("unsupported currency", nil)
	}
	return t, nil
}

func quote(region, cur string, initial, final int64, discount int) steam.Quote {
	return steam.Quote{
		Region: region,
		Listed: true,
		Price:  &steam.PriceOverview{Currency: cur, Initial: initial, Final: final, DiscountPercent: discount},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(store *fakeStore) *Service {
	rates := &fakeRates{tables: map[string]currency.RateTable{
		"EUR": {BaseCurrency: "EUR", Rates: map[string]decimal.Decimal{
			"EUR": dec("1"), "USD": dec("1.25"), "CZK": dec("25"),
		}},
		"USD": {BaseCurrency: "USD", Rates: map[string]decimal.Decimal{
			"USD": dec("1"), "CZK": dec("20"),
		}},
	}}
	return NewService(store, rates, cache.New[GameInfo](), nil)
}

func defaultQuotes() []steam.Quote {
	return []steam.Quote{
		quote("us", "USD", 1999, 999, 50),
		quote("cz", "CZK", 49900, 49900, 0),
		{Region: "gb", Listed: false},
		{Region: "pl", Listed: true},
		quote("ar", "USD", 500, 500, 0),
	}
}

func TestGetGameInfoAndPrices_AssemblesAndConverts(t *testing.T) {
	store := &fakeStore{quotes: defaultQuotes()}
	s := newTestService(store)

	g, err := s.GetGameInfoAndPrices(context.Background(), 70, "EUR")
	require.NoError(t, err)

	assert.Equal(t, 70, g.AppID)
	assert.Equal(t, "Half-Life", g.Name)
	assert.Equal(t, "8 Nov, 1998", g.ReleaseDate)
	assert.Equal(t, []string{"Action"}, g.Genres)
	assert.Equal(t, "EUR", g.Currency)
	require.Len(t, g.Prices, 3)

	usd := g.Prices["USD"]
	assert.True(t, dec("19.99").Equal(usd.Initial))
	assert.True(t, dec("9.99").Equal(usd.Final))
	assert.Equal(t, 50, usd.DiscountPercent)
	require.True(t, usd.ConvertedInitial.Valid)
	assert.True(t, dec("15.992").Equal(usd.ConvertedInitial.Decimal))
	assert.True(t, dec("7.992").Equal(usd.ConvertedFinal.Decimal))

	czk := g.Prices["CZK"]
	assert.True(t, dec("19.96").Equal(czk.ConvertedFinal.Decimal))

	latam, ok := g.Prices["USD-LATAM"]
	require.True(t, ok, "ar must be stored under its regional bucket")
	assert.True(t, dec("4").Equal(latam.ConvertedInitial.Decimal))
}

func TestGetGameInfoAndPrices_CachesUnconvertedForm(t *testing.T) {
	store := &fakeStore{quotes: defaultQuotes()}
	s := newTestService(store)
	ctx := context.Background()

	eur, err := s.GetGameInfoAndPrices(ctx, 70, "EUR")
	require.NoError(t, err)
	usd, err := s.GetGameInfoAndPrices(ctx, 70, "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", usd.Currency)

	assert.Equal(t, 1, store.detailsCalls)
	assert.Equal(t, 1, store.priceCalls)

	cached, ok := s.Cache.Get(cache.GameKey(70))
	require.True(t, ok)
	for key, p := range cached.Prices {
		assert.False(t, p.ConvertedInitial.Valid, key)
		assert.False(t, p.ConvertedFinal.Valid, key)
	}
	assert.Empty(t, cached.Currency)
	assert.True(t, eur.Prices["USD"].ConvertedInitial.Valid)
}

func TestGetGameInfoAndPrices_ConversionPerTarget(t *testing.T) {
	store := &fakeStore{quotes: []steam.Quote{
		quote("us", "USD", 1000, 1000, 0),
		quote("cz", "CZK", 40000, 20000, 50),
	}}
	s := newTestService(store)
	ctx := context.Background()

	eur, err := s.GetGameInfoAndPrices(ctx, 10, "EUR")
	require.NoError(t, err)
	usd, err := s.GetGameInfoAndPrices(ctx, 10, "USD")
	require.NoError(t, err)

	assert.True(t, dec("8").Equal(eur.Prices["USD"].ConvertedInitial.Decimal))
	assert.True(t, dec("10").Equal(usd.Prices["USD"].ConvertedInitial.Decimal))
	assert.True(t, dec("10").Equal(usd.Prices["CZK"].ConvertedFinal.Decimal))
	assert.Equal(t, 1, store.priceCalls)
}

func TestGetGameInfoAndPrices_ZeroPrice(t *testing.T) {
	store := &fakeStore{quotes: []steam.Quote{quote("us", "USD", 0, 0, 0)}}
	s := newTestService(store)

	g, err := s.GetGameInfoAndPrices(context.Background(), 10, "EUR")
	require.NoError(t, err)
	assert.True(t, g.Prices["USD"].ConvertedFinal.Decimal.IsZero())
	assert.True(t, g.Prices["USD"].ConvertedFinal.Valid)
}

func TestGetGameInfoAndPrices_FreeGameHasNoPrices(t *testing.T) {
	store := &fakeStore{quotes: []steam.Quote{{Region: "us", Listed: true}, {Region: "cz", Listed: true}}}
	s := newTestService(store)

	g, err := s.GetGameInfoAndPrices(context.Background(), 570, "EUR")
	require.NoError(t, err)
	assert.Empty(t, g.Prices)
}

func TestGetGameInfoAndPrices_Errors(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		cur   string
		want  apperr.Kind
	}{
		{"metadata missing", &fakeStore{detailsErr: steam.ErrAppNotFound}, "EUR", apperr.KindNotFound},
		{"baseline missing", &fakeStore{quotes: []steam.Quote{{Region: "us"}, quote("cz", "CZK", 1, 1, 0)}}, "EUR", apperr.KindNotFound},
		{"rate limited", &fakeStore{pricesErr: steam.ErrRateLimited}, "EUR", apperr.KindRateLimited},
		{"upstream broken", &fakeStore{detailsErr: steam.ErrBadStatus}, "EUR", apperr.KindInternal},
		{"unknown currency", &fakeStore{quotes: defaultQuotes()}, "XYZ", apperr.KindInvalidArgument},
		{"rate missing for source", &fakeStore{quotes: []steam.Quote{quote("us", "USD", 1, 1, 0), quote("gb", "GBP", 1, 1, 0)}}, "EUR", apperr.KindInvalidArgument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService(tc.store)
			_, err := s.GetGameInfoAndPrices(context.Background(), 1, tc.cur)
			require.Error(t, err)
			assert.Equal(t, tc.want, apperr.KindOf(err))
		})
	}
}

func TestGetGameInfoAndPrices_FailuresAreNotCached(t *testing.T) {
	store := &fakeStore{pricesErr: steam.ErrRateLimited}
	s := newTestService(store)
	ctx := context.Background()

	_, err := s.GetGameInfoAndPrices(ctx, 1, "EUR")
	require.Error(t, err)

	store.pricesErr = nil
	store.quotes = defaultQuotes()
	_, err = s.GetGameInfoAndPrices(ctx, 1, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 2, store.priceCalls)
}

func TestGetGameInfoAndPrices_RatesErrorPassThrough(t *testing.T) {
	s := NewService(&fakeStore{quotes: defaultQuotes()}, &fakeRates{err: errors.New("dial tcp")}, nil, nil)

	_, err := s.GetGameInfoAndPrices(context.Background(), 1, "EUR")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

// gatedStore blocks every details fetch until release is closed, failing
// only if its own context ends first.
type gatedStore struct {
	fakeStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) FetchAppDetails(ctx context.Context, id int, cc string) (steam.AppDetails, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return steam.AppDetails{}, ctx.Err()
	}
	return g.fakeStore.FetchAppDetails(ctx, id, cc)
}

func TestGetGameInfoAndPrices_CanceledCallerDoesNotFailOthers(t *testing.T) {
	store := &gatedStore{
		fakeStore: fakeStore{quotes: defaultQuotes()},
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	s := newTestService(&store.fakeStore)
	s.Store = store

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.GetGameInfoAndPrices(ctxA, 70, "EUR")
		errA <- err
	}()
	<-store.started

	type result struct {
		g   GameInfo
		err error
	}
	resB := make(chan result, 1)
	go func() {
		g, err := s.GetGameInfoAndPrices(context.Background(), 70, "EUR")
		resB <- result{g, err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(store.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "Half-Life", b.g.Name)
	assert.Equal(t, 1, store.detailsCalls)

	_, ok := s.Cache.Get(cache.GameKey(70))
	assert.True(t, ok, "shared lookup should still fill the cache")
}
