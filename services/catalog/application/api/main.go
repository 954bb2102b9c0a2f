package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/productcatalog/pkg/app"
	"github.com/ghuser/productcatalog/pkg/auth"
	"github.com/ghuser/productcatalog/services/catalog/application/handlers"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

// CatalogRoutes registers catalog endpoints on the provided chi router.
// POST /workspaces is open; every other route requires a workspace session.
func CatalogRoutes(r chi.Router, a *app.Application, svcs *appsvcs.Services) {
	workspaces := handlers.NewWorkspaceHandler(svcs, a.SessionStore, a.Logger)
	items := handlers.NewItemHandler(svcs)
	bundles := handlers.NewBundleHandler(svcs)
	discounts := handlers.NewDiscountHandler(svcs)

	r.Post("/workspaces", workspaces.Create)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireWorkspace(a.SessionStore, a.Logger))

		r.Get("/workspaces/current", workspaces.Current)

		r.Route("/items", func(r chi.Router) {
			r.Post("/", items.Create)
			r.Get("/", items.List)
			r.Get("/{code}", items.Get)
			r.Delete("/{code}", items.Delete)
		})

		r.Route("/bundles", func(r chi.Router) {
			r.Post("/", bundles.Create)
			r.Get("/", bundles.List)
			r.Get("/{code}", bundles.Get)
			r.Delete("/{code}", bundles.Delete)
			r.Post("/{code}/items", bundles.AttachItem)
			r.Post("/{code}/bundles", bundles.AttachBundle)
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/", discounts.Create)
			r.Get("/", discounts.List)
			r.Get("/{code}", discounts.Get)
			r.Delete("/{code}", discounts.Delete)
		})
	})
}
