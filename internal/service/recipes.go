package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// RecipeCatalog is the admin-managed list of crafting recipes
type RecipeCatalog interface {
	ListRecipes(ctx context.Context) ([]domain.Recipe, error)
	AddRecipe(ctx context.Context, recipe domain.Recipe) error
	DeleteRecipe(ctx context.Context, recipeID string) error
}

// StoreRecipeCatalog keeps recipes as documents under recipes/
type StoreRecipeCatalog struct {
	store store.Store
}

// NewStoreRecipeCatalog creates a catalog backed by st
func NewStoreRecipeCatalog(st store.Store) *StoreRecipeCatalog {
	return &StoreRecipeCatalog{store: st}
}

// ListRecipes returns recipes oldest first
func (c *StoreRecipeCatalog) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	docs, err := c.store.List(ctx, pathRecipes)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recipe, 0, len(docs))
	for id, raw := range docs {
		if string(raw) == "null" {
			continue
		}
		var r domain.Recipe
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decoding recipe %s: %w", id, err)
		}
		r.ID = id
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AddRecipe stores a recipe under its id
func (c *StoreRecipeCatalog) AddRecipe(ctx context.Context, recipe domain.Recipe) error {
	return c.store.Write(ctx, store.Join(pathRecipes, recipe.ID), recipe)
}

// DeleteRecipe removes a recipe. The store has no delete, so the document is
// replaced by null and skipped on list.
func (c *StoreRecipeCatalog) DeleteRecipe(ctx context.Context, recipeID string) error {
	path := store.Join(pathRecipes, recipeID)
	raw, err := c.store.Read(ctx, path)
	if err != nil {
		return err
	}
	if string(raw) == "null" {
		return domain.ErrNotFound
	}
	return c.store.Write(ctx, path, nil)
}

// ListRecipes returns every recipe for the admin panel
func (s *SeasonService) ListRecipes(ctx context.Context, adminID string) ([]domain.Recipe, error) {
	if !s.IsAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	recipes, err := s.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	return recipes, nil
}

// AddRecipe registers a new combination
func (s *SeasonService) AddRecipe(ctx context.Context, adminID, itemA, itemB, result string) (domain.Recipe, error) {
	if !s.IsAdmin(adminID) {
		return domain.Recipe{}, domain.ErrForbidden
	}
	r := domain.Recipe{
		ID:        uuid.New().String(),
		ItemA:     strings.TrimSpace(itemA),
		ItemB:     strings.TrimSpace(itemB),
		Result:    strings.TrimSpace(result),
		CreatedAt: s.now().UTC(),
	}
	if !r.Valid() {
		return domain.Recipe{}, fmt.Errorf("%w: item_a, item_b and result are required", domain.ErrInvalidRequest)
	}
	if err := s.recipes.AddRecipe(ctx, r); err != nil {
		return domain.Recipe{}, fmt.Errorf("adding recipe: %w", err)
	}
	s.logger.Info("recipe added", "recipe_id", r.ID, "key", domain.NormalizeItems(r.ItemA, r.ItemB))
	return r, nil
}

// DeleteRecipe removes a combination
func (s *SeasonService) DeleteRecipe(ctx context.Context, adminID, recipeID string) error {
	if !s.IsAdmin(adminID) {
		return domain.ErrForbidden
	}
	if err := s.recipes.DeleteRecipe(ctx, recipeID); err != nil {
		return fmt.Errorf("deleting recipe: %w", err)
	}
	return nil
}
