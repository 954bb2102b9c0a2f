// Package handlers exposes the catalog facade over HTTP.
package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/productcatalog/pkg/auth"
	"github.com/ghuser/productcatalog/pkg/errhttp"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
)

// ListingResponse is the JSON form of one catalog entry.
type ListingResponse struct {
	Kind     string   `json:"kind"               example:"bundle"`
	Code     string   `json:"code"               example:"B1"`
	Name     string   `json:"name"               example:"Starter Pack"`
	Display  string   `json:"display"            example:"Bundle: Starter Pack\n  Product: Widget (Price: $10)"`
	Price    string   `json:"price"              example:"10"`
	Children []string `json:"children,omitempty" example:"W1"`
} // @name ListingResponse

// ListingsResponse wraps a list of catalog entries.
type ListingsResponse struct {
	Data  []ListingResponse `json:"data"`
	Total int               `json:"total" example:"1"`
} // @name ListingsResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"bundle not found"`
} // @name ErrorResponse

func toResponse(l models.Listing) ListingResponse {
	return ListingResponse{
		Kind:     string(l.Kind),
		Code:     l.Code,
		Name:     l.Name,
		Display:  l.Display,
		Price:    l.Price.String(),
		Children: l.Children,
	}
}

func toListResponse(ls []models.Listing) ListingsResponse {
	out := ListingsResponse{Data: make([]ListingResponse, 0, len(ls)), Total: len(ls)}
	for _, l := range ls {
		out.Data = append(out.Data, toResponse(l))
	}
	return out
}

// facadeFor resolves the caller's workspace. Writes a 401 and returns false
// when the request carries no workspace.
func facadeFor(svcs *appsvcs.Services, w http.ResponseWriter, r *http.Request) (*appsvcs.CatalogFacade, bool) {
	id, err := auth.WorkspaceIDFromCtx(r.Context())
	if err != nil {
		errhttp.WriteError(w, r, err)
		return nil, false
	}
	return svcs.Workspaces.Open(id), true
}

// codeParam returns the decoded {code} segment. chi routes on URL.RawPath
// when the request has one, which leaves escapes such as %2F in the value.
func codeParam(r *http.Request) string {
	code := chi.URLParam(r, "code")
	if r.URL.RawPath == "" {
		return code
	}
	if decoded, err := url.PathUnescape(code); err == nil {
		return decoded
	}
	return code
}
