package service

import (
	"context"

	"github.com/season-tracker/internal/domain"
)

// ShopItem is a catalog entry with the caller's ownership state
type ShopItem struct {
	domain.CosmeticItem
	Owned    bool `json:"owned"`
	Equipped bool `json:"equipped"`
}

// Shop lists the catalog annotated for the session's profile
func (ss *Session) Shop(ctx context.Context) ([]ShopItem, int64, error) {
	p, err := ss.svc.readProfile(ctx, ss.identityID)
	if err != nil {
		return nil, 0, err
	}

	items := ss.svc.catalog.Items()
	out := make([]ShopItem, 0, len(items))
	for _, it := range items {
		out = append(out, ShopItem{
			CosmeticItem: it,
			Owned:        p.Owns(it.Category, it.ID),
			Equipped:     p.ActiveCosmetic[it.Category] == it.ID,
		})
	}
	return out, p.Currency, nil
}

// Purchase equips an owned item or buys and equips an unowned one. confirm
// is asked once against the current profile; the price check, decrement,
// grant and equip then commit as one atomic update.
func (ss *Session) Purchase(ctx context.Context, category domain.Category, itemID string, confirm domain.Confirm) (domain.PurchaseResult, error) {
	s := ss.svc
	item, err := s.catalog.Item(category, itemID)
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	// dry run on a throwaway copy so the prompt only appears when it matters
	preview, err := s.readProfile(ctx, ss.identityID)
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	if _, err := preview.PurchaseAndEquip(item, confirm); err != nil {
		return domain.PurchaseResult{}, err
	}

	var res domain.PurchaseResult
	_, err = s.updateProfile(ctx, ss.identityID, func(p *domain.UserProfile) error {
		var err error
		res, err = p.PurchaseAndEquip(item, domain.AlwaysConfirm)
		return err
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	if res.Outcome == domain.OutcomePurchased {
		s.logger.Info("cosmetic purchased",
			"identity_id", ss.identityID,
			"category", category,
			"item_id", itemID,
			"price", item.Price,
		)
	}
	return res, nil
}
