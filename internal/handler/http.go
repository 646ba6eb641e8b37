package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/service"
	"github.com/season-tracker/internal/websocket"
)

// IdentityHeader carries the identity resolved by the external auth layer
const IdentityHeader = "X-Identity-ID"

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Handler provides HTTP handlers for the season API
type Handler struct {
	service *service.SeasonService
	hub     *websocket.Hub
	logger  *slog.Logger
	checks  map[string]ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.SeasonService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
		checks:  make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.requireIdentity)

		r.Post("/session", h.StartSession)
		r.Delete("/session", h.EndSession)

		r.Get("/profile", h.GetProfile)
		r.Post("/profile/team", h.LockTeam)

		r.Get("/pass", h.GetPass)
		r.Post("/pass/activate", h.ActivatePass)

		r.Get("/crafts", h.GetCraftStatus)
		r.Post("/crafts", h.Craft)

		r.Get("/shop", h.GetShop)
		r.Post("/shop/{category}/{itemID}/purchase", h.Purchase)

		r.Get("/quests/today", h.GetTodayQuest)
		r.Post("/quests/team-bonus", h.ClaimTeamBonus)

		r.Get("/teams", h.GetTeams)

		r.Get("/submissions", h.ListSubmissions)
		r.Post("/submissions", h.Submit)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)

			r.Get("/recipes", h.ListRecipes)
			r.Post("/recipes", h.AddRecipe)
			r.Delete("/recipes/{recipeID}", h.DeleteRecipe)

			r.Put("/pass-codes", h.SetPassCodes)

			r.Get("/submissions/{identityID}", h.ListSubmissionsFor)
			r.Post("/submissions/{identityID}/{submissionID}/award", h.Award)
			r.Post("/awards/{awardID}/undo", h.UndoAward)
		})

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, "+IdentityHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type identityKey struct{}

func identityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

// requireIdentity rejects requests without an identity header
func (h *Handler) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(IdentityHeader)
		if id == "" {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// requireAdmin rejects identities outside the configured admin list
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.service.IsAdmin(identityFrom(r.Context())) {
			h.writeError(w, http.StatusForbidden, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the progression session of the calling identity
func (h *Handler) session(r *http.Request) *service.Session {
	return h.service.For(identityFrom(r.Context()))
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case domain.IsRefusal(err),
		errors.Is(err, domain.ErrCancelled),
		errors.Is(err, domain.ErrNoTeam),
		errors.Is(err, domain.ErrUndoExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail reports err to the client. Server-side failures are logged and
// replaced by a generic error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("failed to "+action, "identity_id", identityFrom(r.Context()), "error", err)
		h.writeError(w, status, domain.ErrInternalError)
	case http.StatusServiceUnavailable:
		h.logger.Error("failed to "+action, "identity_id", identityFrom(r.Context()), "error", err)
		h.writeError(w, status, domain.ErrStoreUnavailable)
	default:
		h.logger.Debug("request refused", "action", action, "identity_id", identityFrom(r.Context()), "error", err)
		h.writeError(w, status, err)
	}
}

// decode reads a JSON body into v
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return false
	}
	return true
}

// HandleWebSocket handles WebSocket upgrade requests. Browsers cannot set
// headers on the upgrade, so the identity may also come as a query param.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(IdentityHeader)
	if id == "" {
		id = r.URL.Query().Get("identity")
	}
	websocket.ServeWs(h.hub, h.logger, w, r, id)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
		"team_subscribers":  h.hub.GetSubscriberCount(websocket.TopicTeams),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck probes every registered dependency
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}

	if !ready {
		status["status"] = "not_ready"
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Data: status, Error: "not ready"})
		return
	}
	h.writeSuccess(w, status)
}
