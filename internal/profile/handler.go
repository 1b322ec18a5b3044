package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/auth"
	"github.com/HerbHall/palette/internal/event"
	"github.com/HerbHall/palette/internal/remote"
	"github.com/HerbHall/palette/internal/server"
	"github.com/HerbHall/palette/internal/theme"
	"github.com/HerbHall/palette/pkg/preset"
)

const maxBodyBytes = 64 << 10

// PremiumResponse is the entitlement endpoint's body.
// @Description Premium entitlement flag for the authenticated user.
type PremiumResponse struct {
	IsPremium bool `json:"is_premium" example:"true"`
}

// UpdatedPayload is published on event.TopicPreferencesUpdated.
type UpdatedPayload struct {
	UserID     string
	Preference remote.Preference
}

// Handler serves the theme preference and entitlement endpoints.
type Handler struct {
	repo    Repository
	catalog *preset.Catalog
	bus     event.Publisher
	logger  *zap.Logger
}

// NewHandler creates a Handler. A nil catalog means the built-in presets.
func NewHandler(repo Repository, catalog *preset.Catalog, bus event.Publisher, logger *zap.Logger) *Handler {
	if catalog == nil {
		catalog = preset.Builtin()
	}
	return &Handler{repo: repo, catalog: catalog, bus: bus, logger: logger}
}

// RegisterRoutes registers profile routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/theme/preferences", h.handleGetPreferences)
	mux.HandleFunc("PUT /api/v1/theme/preferences", h.handlePutPreferences)
	mux.HandleFunc("GET /api/v1/subscription/premium", h.handleGetPremium)
}

// handleGetPreferences returns the caller's stored preference.
//
//	@Summary		Get theme preference
//	@Description	Returns the stored theme preference for the authenticated user.
//	@Tags			theme
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	remote.Preference
//	@Failure		401	{object}	server.Problem
//	@Failure		404	{object}	server.Problem
//	@Failure		500	{object}	server.Problem
//	@Router			/theme/preferences [get]
func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	p, err := h.repo.GetPreference(r.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		server.NotFound(w, "no theme preference stored", r.URL.Path)
		return
	}
	if err != nil {
		h.logger.Error("failed to load preference", zap.String("user_id", userID), zap.Error(err))
		server.InternalError(w, "failed to load preference", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, p)
}

// handlePutPreferences validates and stores the caller's preference.
//
//	@Summary		Save theme preference
//	@Description	Replaces the stored theme preference. Premium presets and custom colors require a premium entitlement.
//	@Tags			theme
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		remote.Preference	true	"Theme preference"
//	@Success		200		{object}	remote.Preference
//	@Failure		400		{object}	server.Problem
//	@Failure		401		{object}	server.Problem
//	@Failure		403		{object}	server.Problem
//	@Failure		500		{object}	server.Problem
//	@Router			/theme/preferences [put]
func (h *Handler) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var wire remote.Preference
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&wire); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	pref, err := wire.Theme()
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	needsPremium, err := h.requiresPremium(pref)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if needsPremium {
		premium, err := h.repo.IsPremium(r.Context(), userID)
		if err != nil {
			h.logger.Error("failed to check entitlement", zap.String("user_id", userID), zap.Error(err))
			server.InternalError(w, "failed to check entitlement", r.URL.Path)
			return
		}
		if !premium {
			server.PremiumRequired(w, "this palette requires a premium subscription", r.URL.Path)
			return
		}
	}

	stored := remote.FromTheme(pref)
	if err := h.repo.PutPreference(r.Context(), userID, stored); err != nil {
		h.logger.Error("failed to store preference", zap.String("user_id", userID), zap.Error(err))
		server.InternalError(w, "failed to store preference", r.URL.Path)
		return
	}
	h.logger.Debug("preference stored",
		zap.String("user_id", userID),
		zap.String("theme_type", stored.ThemeType),
	)

	if h.bus != nil {
		h.bus.PublishAsync(context.WithoutCancel(r.Context()), event.Event{
			Topic:   event.TopicPreferencesUpdated,
			Source:  "profile",
			Payload: UpdatedPayload{UserID: userID, Preference: stored},
		})
	}
	server.WriteJSON(w, http.StatusOK, stored)
}

// handleGetPremium reports the caller's entitlement.
//
//	@Summary		Get premium entitlement
//	@Description	Reports whether the authenticated user holds a premium subscription.
//	@Tags			subscription
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	PremiumResponse
//	@Failure		401	{object}	server.Problem
//	@Failure		500	{object}	server.Problem
//	@Router			/subscription/premium [get]
func (h *Handler) handleGetPremium(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	premium, err := h.repo.IsPremium(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to check entitlement", zap.String("user_id", userID), zap.Error(err))
		server.InternalError(w, "failed to check entitlement", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, PremiumResponse{IsPremium: premium})
}

// requiresPremium reports whether storing pref needs an entitlement.
// Retained custom colors outside custom mode do not.
func (h *Handler) requiresPremium(pref theme.Preference) (bool, error) {
	switch pref.PaletteMode {
	case theme.ModeCustom:
		return true, nil
	case theme.ModePreset:
		if pref.PresetID == preset.DefaultID {
			return false, nil
		}
		p, ok := h.catalog.Get(pref.PresetID)
		if !ok {
			return false, fmt.Errorf("unknown preset %q", pref.PresetID)
		}
		return !p.IsFree, nil
	default:
		return false, nil
	}
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		server.WriteProblem(w, server.Problem{
			Type:     server.ProblemTypeUnauthorized,
			Status:   http.StatusUnauthorized,
			Detail:   "authentication required",
			Instance: r.URL.Path,
		})
		return "", false
	}
	return claims.UserID, true
}
