package domain

import "fmt"

// Category groups cosmetics that are owned and equipped independently
type Category string

const (
	CategoryTheme  Category = "theme"
	CategoryEffect Category = "effect"
)

// Categories lists every cosmetic category
var Categories = []Category{CategoryTheme, CategoryEffect}

// DefaultCosmetic returns the always-owned free item of a category
func DefaultCosmetic(c Category) string {
	switch c {
	case CategoryTheme:
		return "default"
	case CategoryEffect:
		return "none"
	default:
		return ""
	}
}

// ParseCategory validates a category name
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryTheme, CategoryEffect:
		return Category(s), nil
	default:
		return "", fmt.Errorf("%w: category %q", ErrUnknownItem, s)
	}
}

// CosmeticItem is a static catalog entry
type CosmeticItem struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Category    Category `json:"category"`
	Price       int64    `json:"price"`
	Description string   `json:"description"`
}

type catalogKey struct {
	category Category
	id       string
}

// Catalog is the read-only list of purchasable cosmetics
type Catalog struct {
	items []CosmeticItem
	index map[catalogKey]CosmeticItem
}

// NewCatalog indexes items by category and id
func NewCatalog(items []CosmeticItem) *Catalog {
	c := &Catalog{
		items: items,
		index: make(map[catalogKey]CosmeticItem, len(items)),
	}
	for _, it := range items {
		c.index[catalogKey{it.Category, it.ID}] = it
	}
	return c
}

// DefaultCatalog returns the season's themes and effects
func DefaultCatalog() *Catalog {
	return NewCatalog([]CosmeticItem{
		{ID: "default", DisplayName: "Snowfall Classic", Category: CategoryTheme, Price: 0, Description: "Original Winter Magic look."},
		{ID: "frost", DisplayName: "Frozen Lake", Category: CategoryTheme, Price: 1000, Description: "Cool icy blues and silver highlights."},
		{ID: "aurora", DisplayName: "Aurora Sky", Category: CategoryTheme, Price: 1000, Description: "Purple and teal aurora glow."},
		{ID: "gingerbread", DisplayName: "Gingerbread House", Category: CategoryTheme, Price: 1000, Description: "Warm cocoa-and-cookie vibes."},
		{ID: "none", DisplayName: "No Special Effect", Category: CategoryEffect, Price: 0, Description: "Turn off all special effects."},
		{ID: "snowfall", DisplayName: "Falling Snow", Category: CategoryEffect, Price: 800, Description: "Magical snowflakes drift across the whole village."},
		{ID: "starlight", DisplayName: "Starlight Skies", Category: CategoryEffect, Price: 1200, Description: "Soft twinkling stars shimmer behind the village."},
		{ID: "aurora", DisplayName: "Aurora Glow", Category: CategoryEffect, Price: 1500, Description: "A gentle aurora dances across the top of the screen."},
		{ID: "sparkles", DisplayName: "Sparkle Trail", Category: CategoryEffect, Price: 1000, Description: "Shimmering sparkles drift down like tiny bits of magic."},
	})
}

// Items returns every entry in catalog order
func (c *Catalog) Items() []CosmeticItem {
	out := make([]CosmeticItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item looks up one entry
func (c *Catalog) Item(category Category, id string) (CosmeticItem, error) {
	it, ok := c.index[catalogKey{category, id}]
	if !ok {
		return CosmeticItem{}, fmt.Errorf("%w: %s/%s", ErrUnknownItem, category, id)
	}
	return it, nil
}

// PriceOf returns the price of an item, 0 for free defaults
func (c *Catalog) PriceOf(category Category, id string) (int64, error) {
	it, err := c.Item(category, id)
	if err != nil {
		return 0, err
	}
	return it.Price, nil
}

// PurchaseOutcome describes what a purchase request did
type PurchaseOutcome string

const (
	OutcomeEquipped  PurchaseOutcome = "equipped"
	OutcomeClaimed   PurchaseOutcome = "claimed"
	OutcomePurchased PurchaseOutcome = "purchased"
)

// PurchaseResult is returned by PurchaseAndEquip
type PurchaseResult struct {
	Outcome  PurchaseOutcome `json:"outcome"`
	Item     CosmeticItem    `json:"item"`
	Spent    int64           `json:"spent"`
	Currency int64           `json:"currency"`
}

// Confirm is a yes/no gate shown to the user before spending currency
type Confirm func() bool

// AlwaysConfirm accepts every prompt
func AlwaysConfirm() bool { return true }

// EnsureCosmetics enforces that each category owns its default and that the
// active item is owned. It returns true when anything changed.
func (p *UserProfile) EnsureCosmetics() bool {
	changed := false
	if p.OwnedCosmetics == nil {
		p.OwnedCosmetics = make(map[Category]map[string]bool)
		changed = true
	}
	if p.ActiveCosmetic == nil {
		p.ActiveCosmetic = make(map[Category]string)
		changed = true
	}
	for _, c := range Categories {
		def := DefaultCosmetic(c)
		if p.OwnedCosmetics[c] == nil {
			p.OwnedCosmetics[c] = make(map[string]bool)
			changed = true
		}
		if !p.OwnedCosmetics[c][def] {
			p.OwnedCosmetics[c][def] = true
			changed = true
		}
		if active := p.ActiveCosmetic[c]; active == "" || !p.OwnedCosmetics[c][active] {
			p.ActiveCosmetic[c] = def
			changed = true
		}
	}
	return changed
}

// Owns reports whether the profile owns an item
func (p *UserProfile) Owns(category Category, id string) bool {
	return p.OwnedCosmetics[category][id]
}

// PurchaseAndEquip equips an owned item, or buys then equips an unowned one.
// Nothing is mutated unless the whole operation succeeds.
func (p *UserProfile) PurchaseAndEquip(item CosmeticItem, confirm Confirm) (PurchaseResult, error) {
	p.EnsureCosmetics()

	if p.Owns(item.Category, item.ID) {
		p.ActiveCosmetic[item.Category] = item.ID
		return PurchaseResult{Outcome: OutcomeEquipped, Item: item, Currency: p.Currency}, nil
	}

	outcome := OutcomeClaimed
	if item.Price > 0 {
		if p.Currency < item.Price {
			return PurchaseResult{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, item.Price, p.Currency)
		}
		if confirm == nil || !confirm() {
			return PurchaseResult{}, ErrCancelled
		}
		p.Currency -= item.Price
		outcome = OutcomePurchased
	}

	p.OwnedCosmetics[item.Category][item.ID] = true
	p.ActiveCosmetic[item.Category] = item.ID

	return PurchaseResult{
		Outcome:  outcome,
		Item:     item,
		Spent:    item.Price,
		Currency: p.Currency,
	}, nil
}
