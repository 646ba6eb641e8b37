package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/service"
	"github.com/season-tracker/internal/store"
	"github.com/season-tracker/internal/websocket"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testAPI struct {
	t       *testing.T
	svc     *service.SeasonService
	handler *Handler
	router  http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig().Season
	cfg.Admins = []string{"admin"}

	svc := service.NewSeasonService(store.NewMemory(), nil, nil, &cfg, logger)
	h := NewHandler(svc, websocket.NewHub(logger), logger)
	return &testAPI{t: t, svc: svc, handler: h, router: h.Router()}
}

func (a *testAPI) do(method, path, identity string, body any) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if identity != "" {
		req.Header.Set(IdentityHeader, identity)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testAPI) start(identity string) {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/session", identity, startSessionRequest{DisplayName: identity})
	require.Equal(a.t, http.StatusOK, code, env.Error)
}

func dataAs[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	api.handler.AddReadinessCheck("redis", func(context.Context) error { return nil })
	code, _ = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	api.handler.AddReadinessCheck("postgres", func(context.Context) error { return errors.New("down") })
	code, env = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", dataAs[map[string]string](t, env)["postgres"])
}

func TestAPI_RequiresIdentity(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, domain.ErrUnauthenticated.Error(), env.Error)

	code, _ = api.do(http.MethodGet, "/api/v1/profile", "ana", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_SessionProfileAndTeam(t *testing.T) {
	api := newTestAPI(t)
	api.start("ana")

	code, env := api.do(http.MethodGet, "/api/v1/profile", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	p := dataAs[domain.UserProfile](t, env)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, int64(600), p.Ceiling)
	assert.Equal(t, domain.SideNone, p.Team)

	code, _ = api.do(http.MethodPost, "/api/v1/profile/team", "ana", lockTeamRequest{Team: "elves"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPost, "/api/v1/profile/team", "ana", lockTeamRequest{Team: "nice"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, dataAs[service.LockResult](t, env).Applied)

	code, env = api.do(http.MethodPost, "/api/v1/profile/team", "ana", lockTeamRequest{Team: "naughty"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.SideNice, dataAs[service.LockResult](t, env).Team)

	code, _ = api.do(http.MethodDelete, "/api/v1/session", "ana", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_PassActivation(t *testing.T) {
	api := newTestAPI(t)
	api.start("ana")

	code, _ := api.do(http.MethodPut, "/api/v1/admin/pass-codes", "ana", domain.PassCodes{OneDay: "X"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodPut, "/api/v1/admin/pass-codes", "admin", domain.PassCodes{OneDay: "ELF-1", SevenDay: "ELF-7", EventFull: "ELF-ALL"})
	require.Equal(t, http.StatusOK, code)

	code, env := api.do(http.MethodGet, "/api/v1/pass", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, dataAs[domain.PassStatus](t, env).Active)

	code, _ = api.do(http.MethodPost, "/api/v1/pass/activate", "ana", activatePassRequest{Code: "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPost, "/api/v1/pass/activate", "ana", activatePassRequest{Code: "ELF-7"})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/api/v1/pass/activate", "ana", activatePassRequest{Code: "ELF-1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, env.Error, domain.ErrAlreadyActive.Error())
}

func TestAPI_ShopPurchase(t *testing.T) {
	api := newTestAPI(t)
	api.start("ana")

	code, env := api.do(http.MethodGet, "/api/v1/shop", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	shop := dataAs[ShopResponse](t, env)
	assert.Len(t, shop.Items, 9)
	assert.Equal(t, int64(0), shop.Currency)

	path := "/api/v1/shop/effect/snowfall/purchase"
	code, _ = api.do(http.MethodPost, path, "ana", purchaseRequest{Confirm: true})
	assert.Equal(t, http.StatusPaymentRequired, code)

	_, err := api.svc.ApplyReward(context.Background(), domain.RewardEvent{IdentityID: "ana", Currency: 1000})
	require.NoError(t, err)

	code, _ = api.do(http.MethodPost, path, "ana", purchaseRequest{Confirm: false})
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodPost, path, "ana", purchaseRequest{Confirm: true})
	require.Equal(t, http.StatusOK, code)
	res := dataAs[domain.PurchaseResult](t, env)
	assert.Equal(t, domain.OutcomePurchased, res.Outcome)
	assert.Equal(t, int64(200), res.Currency)

	code, _ = api.do(http.MethodPost, "/api/v1/shop/hats/top/purchase", "ana", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do(http.MethodPost, "/api/v1/shop/theme/nope/purchase", "ana", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_RecipesAndCrafting(t *testing.T) {
	api := newTestAPI(t)
	api.start("ana")

	code, _ := api.do(http.MethodPost, "/api/v1/crafts", "ana", craftRequest{ItemA: "Cocoa", ItemB: "Mug"})
	assert.Equal(t, http.StatusConflict, code, "no team yet")

	code, _ = api.do(http.MethodPost, "/api/v1/admin/recipes", "ana", addRecipeRequest{ItemA: "Cocoa", ItemB: "Mug", Result: "Hot Chocolate"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env := api.do(http.MethodPost, "/api/v1/admin/recipes", "admin", addRecipeRequest{ItemA: "Cocoa", ItemB: "Mug", Result: "Hot Chocolate"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	recipe := dataAs[domain.Recipe](t, env)

	code, _ = api.do(http.MethodPost, "/api/v1/profile/team", "ana", lockTeamRequest{Team: "naughty"})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/api/v1/crafts", "ana", craftRequest{ItemA: " mug", ItemB: "COCOA "})
	require.Equal(t, http.StatusOK, code, env.Error)
	out := dataAs[service.CraftOutcome](t, env)
	assert.True(t, out.Matched)
	assert.Equal(t, "Hot Chocolate", out.Result)
	assert.Equal(t, 0, out.Status.Remaining)

	code, _ = api.do(http.MethodPost, "/api/v1/crafts", "ana", craftRequest{ItemA: "Cocoa", ItemB: "Mug"})
	assert.Equal(t, http.StatusConflict, code, "daily limit")

	code, env = api.do(http.MethodGet, "/api/v1/admin/recipes", "admin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataAs[[]domain.Recipe](t, env), 1)

	code, _ = api.do(http.MethodDelete, "/api/v1/admin/recipes/"+recipe.ID, "admin", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodDelete, "/api/v1/admin/recipes/"+recipe.ID, "admin", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_SubmissionAwardAndUndo(t *testing.T) {
	api := newTestAPI(t)
	api.start("ana")

	code, _ := api.do(http.MethodPost, "/api/v1/submissions", "ana", submitRequest{Type: "poem", Text: "hi"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := api.do(http.MethodPost, "/api/v1/submissions", "ana", submitRequest{Type: "sentence", Text: "Snow falls softly."})
	require.Equal(t, http.StatusCreated, code, env.Error)
	sub := dataAs[domain.Submission](t, env)

	code, _ = api.do(http.MethodGet, "/api/v1/admin/submissions/ana", "ana", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = api.do(http.MethodGet, "/api/v1/admin/submissions/ana", "admin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataAs[[]domain.Submission](t, env), 1)

	awardPath := fmt.Sprintf("/api/v1/admin/submissions/ana/%s/award", sub.ID)
	code, env = api.do(http.MethodPost, awardPath, "admin", awardRequest{XP: 40, Coins: 12, Comment: "lovely"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	award := dataAs[domain.Award](t, env)

	code, _ = api.do(http.MethodPost, awardPath, "admin", awardRequest{XP: 1})
	assert.Equal(t, http.StatusConflict, code, "already reviewed")

	code, env = api.do(http.MethodGet, "/api/v1/profile", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(12), dataAs[domain.UserProfile](t, env).Currency)

	code, _ = api.do(http.MethodPost, "/api/v1/admin/awards/"+award.ID+"/undo", "admin", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodPost, "/api/v1/admin/awards/"+award.ID+"/undo", "admin", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodGet, "/api/v1/submissions", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	subs := dataAs[[]domain.Submission](t, env)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].Reviewed)
}

func TestAPI_QuestsAndTeams(t *testing.T) {
	api := newTestAPI(t)
	api.start("ana")

	code, env := api.do(http.MethodGet, "/api/v1/quests/today", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, dataAs[domain.DailyQuest](t, env).Location.ID)

	code, _ = api.do(http.MethodPost, "/api/v1/quests/team-bonus", "ana", nil)
	assert.Equal(t, http.StatusConflict, code, "no team")

	code, _ = api.do(http.MethodPost, "/api/v1/profile/team", "ana", lockTeamRequest{Team: "nice"})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/api/v1/quests/team-bonus", "ana", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, domain.SideNice, dataAs[service.TeamBonusResult](t, env).Side)

	code, _ = api.do(http.MethodPost, "/api/v1/quests/team-bonus", "ana", nil)
	assert.Equal(t, http.StatusConflict, code, "cooldown")

	code, env = api.do(http.MethodGet, "/api/v1/teams", "ana", nil)
	require.Equal(t, http.StatusOK, code)
	teams := dataAs[[]domain.TeamRecord](t, env)
	require.Len(t, teams, 2)
	assert.Equal(t, int64(20), teams[0].Experience)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrInvalidSide, http.StatusBadRequest},
		{domain.ErrInvalidCode, http.StatusBadRequest},
		{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
		{domain.ErrLimitReached, http.StatusConflict},
		{domain.ErrCancelled, http.StatusConflict},
		{domain.ErrUndoExpired, http.StatusConflict},
		{fmt.Errorf("read: %w: %w", domain.ErrStoreUnavailable, errors.New("dial")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
