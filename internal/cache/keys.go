package cache

import (
	"strconv"
	"strings"
)

// Category separates the kinds of values sharing the cache key space.
type Category string

const (
	CategoryGame     Category = "game"
	CategoryCurrency Category = "currency"
	CategoryWishlist Category = "wishlist"
)

// Key identifies a cached value. The fields are unexported so keys can only
// be built through the constructors below, which keeps categories apart.
type Key struct {
	category Category
	id       string
}

func GameKey(appID int) Key {
	return Key{category: CategoryGame, id: strconv.Itoa(appID)}
}

func CurrencyKey(code string) Key {
	return Key{category: CategoryCurrency, id: strings.ToUpper(strings.TrimSpace(code))}
}

func WishlistKey(appID int) Key {
	return Key{category: CategoryWishlist, id: strconv.Itoa(appID)}
}

func (k Key) Category() Category { return k.category }

// String renders the key as "<category>:<id>".
func (k Key) String() string { return string(k.category) + ":" + k.id }
