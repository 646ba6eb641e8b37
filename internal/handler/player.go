package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/service"
)

type startSessionRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type lockTeamRequest struct {
	Team string `json:"team"`
}

type activatePassRequest struct {
	Code string `json:"code"`
}

type craftRequest struct {
	ItemA string `json:"item_a"`
	ItemB string `json:"item_b"`
}

type purchaseRequest struct {
	Confirm bool `json:"confirm"`
}

type submitRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ShopResponse lists the catalog with the caller's balance
type ShopResponse struct {
	Items    []service.ShopItem `json:"items"`
	Currency int64              `json:"currency"`
}

// StartSession loads or creates the caller's profile and marks them online
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	p, err := h.session(r).Start(r.Context(), req.DisplayName, req.Email)
	if err != nil {
		h.fail(w, r, "start session", err)
		return
	}
	h.writeSuccess(w, p)
}

// EndSession marks the caller offline
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).End(r.Context()); err != nil {
		h.fail(w, r, "end session", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "offline"})
}

// GetProfile returns the caller's profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.session(r).Profile(r.Context())
	if err != nil {
		h.fail(w, r, "get profile", err)
		return
	}
	h.writeSuccess(w, p)
}

// LockTeam chooses the caller's team once
func (h *Handler) LockTeam(w http.ResponseWriter, r *http.Request) {
	var req lockTeamRequest
	if !h.decode(w, r, &req) {
		return
	}
	side, err := domain.ParseSide(req.Team)
	if err != nil {
		h.fail(w, r, "lock team", err)
		return
	}

	res, err := h.session(r).LockTeam(r.Context(), side)
	if err != nil {
		h.fail(w, r, "lock team", err)
		return
	}
	if !res.Applied {
		h.writeJSON(w, http.StatusConflict, APIResponse{
			Success: false,
			Data:    res,
			Error:   domain.ErrAlreadyLocked.Error(),
		})
		return
	}
	h.writeSuccess(w, res)
}

// GetPass returns the caller's magic pass status
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	status, err := h.session(r).PassStatus(r.Context())
	if err != nil {
		h.fail(w, r, "get pass", err)
		return
	}
	h.writeSuccess(w, status)
}

// ActivatePass redeems a magic pass code
func (h *Handler) ActivatePass(w http.ResponseWriter, r *http.Request) {
	var req activatePassRequest
	if !h.decode(w, r, &req) {
		return
	}

	act, err := h.session(r).ActivatePass(r.Context(), req.Code)
	if err != nil {
		h.fail(w, r, "activate pass", err)
		return
	}
	h.writeSuccess(w, act)
}

// GetCraftStatus returns today's crafting allowance
func (h *Handler) GetCraftStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.session(r).CraftStatus(r.Context())
	if err != nil {
		h.fail(w, r, "get craft status", err)
		return
	}
	h.writeSuccess(w, status)
}

// Craft combines two items
func (h *Handler) Craft(w http.ResponseWriter, r *http.Request) {
	var req craftRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.session(r).Craft(r.Context(), req.ItemA, req.ItemB)
	if err != nil {
		h.fail(w, r, "craft", err)
		return
	}
	h.writeSuccess(w, out)
}

// GetShop lists the cosmetic catalog
func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	items, currency, err := h.session(r).Shop(r.Context())
	if err != nil {
		h.fail(w, r, "get shop", err)
		return
	}
	h.writeSuccess(w, ShopResponse{Items: items, Currency: currency})
}

// Purchase equips or buys a cosmetic. The client's confirm flag answers the
// spending prompt.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		h.fail(w, r, "purchase", err)
		return
	}
	var req purchaseRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	confirm := func() bool { return req.Confirm }
	res, err := h.session(r).Purchase(r.Context(), category, chi.URLParam(r, "itemID"), confirm)
	if err != nil {
		h.fail(w, r, "purchase", err)
		return
	}
	h.writeSuccess(w, res)
}

// GetTodayQuest returns the quest location for the current anchored day
func (h *Handler) GetTodayQuest(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.TodayQuest())
}

// ClaimTeamBonus claims the daily team quest bonus
func (h *Handler) ClaimTeamBonus(w http.ResponseWriter, r *http.Request) {
	res, err := h.session(r).ClaimTeamBonus(r.Context())
	if err != nil {
		h.fail(w, r, "claim team bonus", err)
		return
	}
	h.writeSuccess(w, res)
}

// GetTeams returns both team records
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.Teams(r.Context())
	if err != nil {
		h.fail(w, r, "get teams", err)
		return
	}
	h.writeSuccess(w, teams)
}

// ListSubmissions returns the caller's submissions, newest first
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.session(r).Submissions(r.Context())
	if err != nil {
		h.fail(w, r, "list submissions", err)
		return
	}
	h.writeSuccess(w, subs)
}

// Submit stores a writing sample
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	kind, err := domain.ParseSubmissionType(req.Type)
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}

	sub, err := h.session(r).Submit(r.Context(), kind, req.Text)
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: sub})
}
