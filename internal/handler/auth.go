package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/recipe-console/internal/catalog"
	"github.com/msomdec/recipe-console/internal/domain"
	"github.com/msomdec/recipe-console/internal/upstream"
	"github.com/msomdec/recipe-console/internal/view"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	catalog *catalog.Service
	guard   *Guard
	view    *view.Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *catalog.Service, guard *Guard, renderer *view.Renderer) *AuthHandler {
	return &AuthHandler{catalog: svc, guard: guard, view: renderer}
}

// HandleLoginPage renders the login form.
// GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.view.LoginPage(w, view.LoginData{Base: view.Base{Title: "Login"}})
}

// HandleLogin processes the login form. A failed login always shows the
// same generic message, whatever the upstream rejection said.
// POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")

	sess, err := h.catalog.Login(r.Context(), username, password)
	if err != nil {
		if loginRejected(err) {
			h.view.LoginPage(w, view.LoginData{
				Base:     view.Base{Title: "Login", Error: "Invalid username or password."},
				Username: username,
			})
			return
		}
		slog.Error("login", "error", err)
		h.view.LoginPage(w, view.LoginData{
			Base:     view.Base{Title: "Login", Error: "An unexpected error occurred. Please try again."},
			Username: username,
		})
		return
	}

	if err := h.guard.IssueCookie(w, sess.ID); err != nil {
		slog.Error("issue auth cookie", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// loginRejected reports whether a login failure means the credentials were
// turned down, as opposed to the upstream being unreachable or broken. The
// remote service answers bad credentials with 400, not 401, so every 4xx
// counts as a rejection here.
func loginRejected(err error) bool {
	if errors.Is(err, domain.ErrInvalidInput) {
		return true
	}
	var ue *upstream.Error
	return errors.As(err, &ue) && ue.Status >= 400 && ue.Status < 500
}

// HandleLogout clears the session and the cookie. Logging out while
// already logged out succeeds quietly.
// POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Logout(r.Context()); err != nil {
		slog.Error("logout", "error", err)
	}
	h.guard.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
