package wishlist

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SteamPM/internal/apperr"
	"SteamPM/internal/steam"
)

const testSteamID = "76561197960287930"

type fakeStore struct {
	mu          sync.Mutex
	items       []steam.WishlistItem
	wishlistErr error
	missing     map[int]bool
	detailCalls map[int]int
}

func (f *fakeStore) FetchWishlist(ctx context.Context, steamID string) ([]steam.WishlistItem, error) {
	return f.items, f.wishlistErr
}

func (f *fakeStore) FetchAppDetails(ctx context.Context, id int, cc string) (steam.AppDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailCalls == nil {
		f.detailCalls = map[int]int{}
	}
	f.detailCalls[id]++
	if f.missing[id] {
		return steam.AppDetails{}, steam.ErrAppNotFound
	}
	return steam.AppDetails{
		AppID:        id,
		Name:         fmt.Sprintf("Game %d", id),
		CapsuleImage: fmt.Sprintf("https://cdn/%d.jpg", id),
	}, nil
}

func sevenItems() []steam.WishlistItem {
	var out []steam.WishlistItem
	for i := 1; i <= 7; i++ {
		out = append(out, steam.WishlistItem{AppID: i, Priority: 8 - i})
	}
	return out
}

func appIDs(p Page) []int {
	out := []int{}
	for _, g := range p.Games {
		out = append(out, g.AppID)
	}
	return out
}

func TestGetPage_Boundaries(t *testing.T) {
	s := NewService(&fakeStore{items: sevenItems()}, nil, 5, nil)
	ctx := context.Background()

	tests := []struct {
		page int
		want []int
	}{
		{1, []int{1, 2, 3, 4, 5}},
		{2, []int{6, 7}},
		{3, []int{}},
	}

	for _, tc := range tests {
		p, err := s.GetPage(ctx, testSteamID, tc.page)
		require.NoError(t, err)
		assert.Equal(t, tc.page, p.Page)
		assert.Equal(t, 7, p.WishlistSize)
		assert.Equal(t, tc.want, appIDs(p), "page %d", tc.page)
	}
}

func TestGetPage_EmptyWishlist(t *testing.T) {
	s := NewService(&fakeStore{items: nil}, nil, 5, nil)

	p, err := s.GetPage(context.Background(), testSteamID, 4)
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 4, WishlistSize: 0, Games: []Item{}}, p)
}

func TestGetPage_CachesItems(t *testing.T) {
	store := &fakeStore{items: sevenItems()}
	s := NewService(store, nil, 5, nil)
	ctx := context.Background()

	_, err := s.GetPage(ctx, testSteamID, 1)
	require.NoError(t, err)
	p, err := s.GetPage(ctx, testSteamID, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, store.detailCalls[1])
	assert.Equal(t, "Game 1", p.Games[0].Name)
	assert.Equal(t, "https://cdn/1.jpg", p.Games[0].ImageURL)
}

func TestGetPage_SkipsDelistedItems(t *testing.T) {
	s := NewService(&fakeStore{items: sevenItems(), missing: map[int]bool{2: true}}, nil, 5, nil)

	p, err := s.GetPage(context.Background(), testSteamID, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 5}, appIDs(p))
	assert.Equal(t, 7, p.WishlistSize)
}

func TestGetPage_Errors(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		id    string
		page  int
		want  apperr.Kind
	}{
		{"bad steam id", &fakeStore{}, "12345", 1, apperr.KindInvalidArgument},
		{"bad prefix", &fakeStore{}, "86561197960287930", 1, apperr.KindInvalidArgument},
		{"page zero", &fakeStore{}, testSteamID, 0, apperr.KindInvalidArgument},
		{"no wishlist", &fakeStore{wishlistErr: steam.ErrWishlistNotFound}, testSteamID, 1, apperr.KindNotFound},
		{"rate limited", &fakeStore{wishlistErr: steam.ErrRateLimited}, testSteamID, 1, apperr.KindRateLimited},
		{"upstream down", &fakeStore{wishlistErr: steam.ErrUnavailable}, testSteamID, 1, apperr.KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(tc.store, nil, 5, nil)
			_, err := s.GetPage(context.Background(), tc.id, tc.page)
			require.Error(t, err)
			assert.Equal(t, tc.want, apperr.KindOf(err))
		})
	}
}

func TestValidSteamID(t *testing.T) {
	assert.True(t, ValidSteamID("76561197960287930"))
	assert.False(t, ValidSteamID("7656119796028793"))
	assert.False(t, ValidSteamID("765611979602879300"))
	assert.False(t, ValidSteamID("7656119796028793a"))
	assert.False(t, ValidSteamID(""))
}
