package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/service"
)

type addRecipeRequest struct {
	ItemA  string `json:"item_a"`
	ItemB  string `json:"item_b"`
	Result string `json:"result"`
}

type awardRequest struct {
	XP      int64  `json:"xp"`
	Coins   int64  `json:"coins"`
	Comment string `json:"comment"`
}

// ListRecipes returns every crafting recipe
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListRecipes(r.Context(), identityFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "list recipes", err)
		return
	}
	h.writeSuccess(w, recipes)
}

// AddRecipe creates a recipe
func (h *Handler) AddRecipe(w http.ResponseWriter, r *http.Request) {
	var req addRecipeRequest
	if !h.decode(w, r, &req) {
		return
	}

	recipe, err := h.service.AddRecipe(r.Context(), identityFrom(r.Context()), req.ItemA, req.ItemB, req.Result)
	if err != nil {
		h.fail(w, r, "add recipe", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: recipe})
}

// DeleteRecipe removes a recipe
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipeID")
	if err := h.service.DeleteRecipe(r.Context(), identityFrom(r.Context()), recipeID); err != nil {
		h.fail(w, r, "delete recipe", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// SetPassCodes replaces the magic pass code table
func (h *Handler) SetPassCodes(w http.ResponseWriter, r *http.Request) {
	var codes domain.PassCodes
	if !h.decode(w, r, &codes) {
		return
	}
	if err := h.service.SetPassCodes(r.Context(), identityFrom(r.Context()), codes); err != nil {
		h.fail(w, r, "set pass codes", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "updated"})
}

// ListSubmissionsFor returns one player's submissions for review
func (h *Handler) ListSubmissionsFor(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.SubmissionsFor(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "identityID"))
	if err != nil {
		h.fail(w, r, "list submissions", err)
		return
	}
	h.writeSuccess(w, subs)
}

// Award grants points for a submission
func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	award, err := h.service.Award(r.Context(), identityFrom(r.Context()), service.AwardRequest{
		IdentityID:   chi.URLParam(r, "identityID"),
		SubmissionID: chi.URLParam(r, "submissionID"),
		Points:       domain.Points{Experience: req.XP, Currency: req.Coins},
		Comment:      req.Comment,
	})
	if err != nil {
		h.fail(w, r, "award submission", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: award})
}

// UndoAward reverts an award inside its undo window
func (h *Handler) UndoAward(w http.ResponseWriter, r *http.Request) {
	award, err := h.service.UndoAward(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "awardID"))
	if err != nil {
		h.fail(w, r, "undo award", err)
		return
	}
	h.writeSuccess(w, award)
}
