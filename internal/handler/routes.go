package handler

import (
	"net/http"

	"github.com/msomdec/recipe-console/internal/catalog"
	"github.com/msomdec/recipe-console/internal/view"
)

// RegisterRoutes sets up all HTTP routes on the given mux. metricsHandler
// may be nil to leave /metrics unregistered.
func RegisterRoutes(mux *http.ServeMux, svc *catalog.Service, guard *Guard, renderer *view.Renderer, metricsHandler http.Handler) {
	home := NewHomeHandler(svc, renderer)
	auth := NewAuthHandler(svc, guard, renderer)
	dashboard := NewDashboardHandler(svc, renderer)
	profile := NewProfileHandler(svc, renderer)

	mux.HandleFunc("GET /healthz", HandleHealthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	mux.Handle("GET /{$}", guard.OptionalAuth(http.HandlerFunc(home.HandleHome)))
	mux.Handle("GET /recipes/{id}", guard.OptionalAuth(http.HandlerFunc(home.HandleRecipe)))

	mux.Handle("GET /login", guard.OptionalAuth(http.HandlerFunc(auth.HandleLoginPage)))
	mux.HandleFunc("POST /login", auth.HandleLogin)
	mux.HandleFunc("POST /logout", auth.HandleLogout)

	mux.Handle("GET /dashboard", guard.RequireAuth(http.HandlerFunc(dashboard.HandleDashboard)))
	mux.Handle("GET /dashboard/live", guard.RequireAuth(http.HandlerFunc(dashboard.HandleLive)))
	mux.Handle("GET /dashboard/recipes/new", guard.RequireAuth(http.HandlerFunc(dashboard.HandleNew)))
	mux.Handle("POST /dashboard/recipes", guard.RequireAuth(http.HandlerFunc(dashboard.HandleCreate)))
	mux.Handle("GET /dashboard/recipes/{id}/edit", guard.RequireAuth(http.HandlerFunc(dashboard.HandleEdit)))
	mux.Handle("POST /dashboard/recipes/{id}", guard.RequireAuth(http.HandlerFunc(dashboard.HandleUpdate)))
	mux.Handle("POST /dashboard/recipes/{id}/delete", guard.RequireAuth(http.HandlerFunc(dashboard.HandleDelete)))

	mux.Handle("GET /profile", guard.RequireAuth(http.HandlerFunc(profile.HandleProfile)))
}
