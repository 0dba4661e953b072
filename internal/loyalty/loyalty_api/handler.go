package loyalty_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/utils"
)

const defaultHistoryLimit = 20

type Handler struct {
	Store  *store.Store
	Engine *loyalty.Engine
	Logger *logger.Logger
}

func NewHandler(st *store.Store, engine *loyalty.Engine, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{Store: st, Engine: engine, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/loyalty", func(r chi.Router) {
		r.Get("/me", h.GetMySummary)
		r.Get("/tiers", h.ListTiers)
		r.Get("/users/{id}", h.GetUserSummary)
		r.Post("/users/{id}/adjust", h.AdjustPoints)
		r.Put("/users/{id}/tier", h.SetTierOverride)
	})
}

type adjustRequest struct {
	Points int64  `json:"points" validate:"required"`
	Reason string `json:"reason" validate:"required,max=255"`
}

type tierOverrideRequest struct {
	// Empty clears the override.
	Tier models.Tier `json:"tier" validate:"omitempty,oneof=STANDARD SILVER GOLD PLATINUM VIP"`
}

// GetMySummary returns the caller's profile, benefits and recent points history.
func (h *Handler) GetMySummary(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "GetMySummary", err)
		return
	}
	h.writeSummary(w, r, "GetMySummary", user.ID)
}

// ListTiers returns the benefits of every tier.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserFrom(r.Context()); err != nil {
		utils.WriteError(w, h.Logger, "ListTiers", err)
		return
	}
	benefits, err := h.Engine.Benefits(r.Context(), h.Store.Repo())
	if err != nil {
		utils.WriteError(w, h.Logger, "ListTiers", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, benefits)
}

func (h *Handler) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.adminTarget(w, r, "GetUserSummary")
	if !ok {
		return
	}
	h.writeSummary(w, r, "GetUserSummary", targetID)
}

func (h *Handler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.adminTarget(w, r, "AdjustPoints")
	if !ok {
		return
	}
	var req adjustRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "AdjustPoints", err)
		return
	}

	var tx *models.PointsTransaction
	err := h.Store.RunInTx(r.Context(), func(ctx context.Context, repo *store.Repo) error {
		if _, err := repo.GetUser(ctx, targetID); err != nil {
			return err
		}
		var err error
		tx, err = h.Engine.AdjustPoints(ctx, repo, targetID, req.Points, req.Reason)
		return err
	})
	if err != nil {
		utils.WriteError(w, h.Logger, "AdjustPoints", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) SetTierOverride(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.adminTarget(w, r, "SetTierOverride")
	if !ok {
		return
	}
	var req tierOverrideRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "SetTierOverride", err)
		return
	}

	var profile *models.CustomerProfile
	err := h.Store.RunInTx(r.Context(), func(ctx context.Context, repo *store.Repo) error {
		if _, err := repo.GetUser(ctx, targetID); err != nil {
			return err
		}
		var err error
		profile, err = h.Engine.SetOverride(ctx, repo, targetID, req.Tier)
		return err
	})
	if err != nil {
		utils.WriteError(w, h.Logger, "SetTierOverride", err)
		return
	}
	h.Logger.Info("LOYALTY", fmt.Sprintf("Tier override for user %d set to %q", targetID, req.Tier))
	utils.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) writeSummary(w http.ResponseWriter, r *http.Request, op string, userID int64) {
	limit, err := utils.QueryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		utils.WriteError(w, h.Logger, op, err)
		return
	}

	// EnsureProfile locks the profile row, so even reads run in a transaction.
	var summary *loyalty.Summary
	err = h.Store.RunInTx(r.Context(), func(ctx context.Context, repo *store.Repo) error {
		var err error
		summary, err = h.Engine.Summary(ctx, repo, userID, limit)
		return err
	})
	if err != nil {
		utils.WriteError(w, h.Logger, op, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) adminTarget(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	user, err := auth.UserFrom(r.Context())
	if err == nil {
		err = auth.RequireAdmin(user)
	}
	if err != nil {
		utils.WriteError(w, h.Logger, op, err)
		return 0, false
	}
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, h.Logger, op, err)
		return 0, false
	}
	return id, true
}
