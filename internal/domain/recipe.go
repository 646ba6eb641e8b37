package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const recipeKeySeparator = " + "

// Recipe is an admin-managed crafting combination
type Recipe struct {
	ID        string    `json:"id"`
	ItemA     string    `json:"item_a"`
	ItemB     string    `json:"item_b"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether every field is filled in
func (r Recipe) Valid() bool {
	return strings.TrimSpace(r.ItemA) != "" &&
		strings.TrimSpace(r.ItemB) != "" &&
		strings.TrimSpace(r.Result) != ""
}

// NormalizeItems builds the order-independent lookup key for two items
func NormalizeItems(a, b string) string {
	pair := []string{
		strings.ToLower(strings.TrimSpace(a)),
		strings.ToLower(strings.TrimSpace(b)),
	}
	sort.Strings(pair)
	return strings.Join(pair, recipeKeySeparator)
}

// RecipeBook maps normalized item pairs to crafted results
type RecipeBook map[string]string

// NewRecipeBook indexes recipes, skipping incomplete ones
func NewRecipeBook(recipes []Recipe) RecipeBook {
	book := make(RecipeBook, len(recipes))
	for _, r := range recipes {
		if !r.Valid() {
			continue
		}
		book[NormalizeItems(r.ItemA, r.ItemB)] = strings.TrimSpace(r.Result)
	}
	return book
}

// Lookup finds the result for two items in either order
func (b RecipeBook) Lookup(itemA, itemB string) (string, bool) {
	result, ok := b[NormalizeItems(itemA, itemB)]
	return result, ok
}

// CraftResult is the outcome shown after a crafting attempt
type CraftResult struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
	Result  string `json:"result,omitempty"`
}

// ResolveCraft maps two raw item names to a success or side-flavoured failure text
func ResolveCraft(side Side, itemA, itemB string, book RecipeBook) CraftResult {
	if result, ok := book.Lookup(itemA, itemB); ok {
		return CraftResult{
			Text:    fmt.Sprintf("%s + %s → %s", itemA, itemB, result),
			Matched: true,
			Result:  result,
		}
	}

	if side == SideNice {
		return CraftResult{
			Text: fmt.Sprintf("%s + %s → The workshop elves stare in silence... that combo totally flopped 💔 Try something more Christmassy!", itemA, itemB),
		}
	}
	return CraftResult{
		Text: fmt.Sprintf("%s + %s → Even Team Naughty thinks this was a fail 😬 Try a different mischief combo!", itemA, itemB),
	}
}
