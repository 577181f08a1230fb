package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/recipe-console/internal/catalog"
	"github.com/msomdec/recipe-console/internal/domain"
	"github.com/msomdec/recipe-console/internal/view"
)

// ProfileHandler serves the account profile page.
type ProfileHandler struct {
	catalog *catalog.Service
	view    *view.Renderer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *catalog.Service, renderer *view.Renderer) *ProfileHandler {
	return &ProfileHandler{catalog: svc, view: renderer}
}

// HandleProfile renders the current account's profile, fetched through
// the cache.
// GET /profile
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.catalog.Profile(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) || errors.Is(err, domain.ErrUnauthorized) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		slog.Error("load profile", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.view.ProfilePage(w, view.ProfileData{
		Base:    view.Base{Title: "Profile", Authenticated: true, User: UserFromContext(r.Context())},
		Profile: profile,
	})
}
