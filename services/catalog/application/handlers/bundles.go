package handlers

import (
	"net/http"

	"github.com/ghuser/productcatalog/pkg/errhttp"
	"github.com/ghuser/productcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/productcatalog/pkg/validator"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

// CreateBundleRequest is the request body for POST /bundles.
type CreateBundleRequest struct {
	Code string `json:"code" validate:"required,max=64"  example:"B1"`
	Name string `json:"name" validate:"required,max=255" example:"Starter Pack"`
} // @name CreateBundleRequest

// AttachItemRequest is the request body for POST /bundles/{code}/items.
type AttachItemRequest struct {
	ItemCode string `json:"item_code" validate:"required,max=64" example:"W1"`
} // @name AttachItemRequest

// AttachBundleRequest is the request body for POST /bundles/{code}/bundles.
type AttachBundleRequest struct {
	BundleCode string `json:"bundle_code" validate:"required,max=64" example:"B2"`
} // @name AttachBundleRequest

// BundleHandler handles /bundles requests.
type BundleHandler struct {
	svc *appsvcs.Services
}

// NewBundleHandler returns a BundleHandler backed by the given services.
func NewBundleHandler(svc *appsvcs.Services) *BundleHandler {
	return &BundleHandler{svc: svc}
}

// Create registers a new, empty bundle.
//
//	@Summary	Create bundle
//	@Tags		bundles
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateBundleRequest	true	"Bundle creation request"
//	@Success	201		{object}	ListingResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/bundles [post]
func (h *BundleHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[CreateBundleRequest](w, r)
	if !ok {
		return
	}

	l, err := f.AddBundle(r.Context(), req.Code, req.Name)
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(l))
}

// List returns every bundle in insertion order.
//
//	@Summary	List bundles
//	@Tags		bundles
//	@Produce	json
//	@Success	200	{object}	ListingsResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/bundles [get]
func (h *BundleHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toListResponse(f.Bundles(r.Context())))
}

// Get returns one bundle with its current total price.
//
//	@Summary	Get bundle
//	@Tags		bundles
//	@Produce	json
//	@Param		code	path		string	true	"Bundle code"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/bundles/{code} [get]
func (h *BundleHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	l, err := f.Bundle(r.Context(), codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}

// Delete unregisters a bundle.
//
//	@Summary	Delete bundle
//	@Tags		bundles
//	@Produce	json
//	@Param		code	path		string	true	"Bundle code"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/bundles/{code} [delete]
func (h *BundleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	l, err := f.RemoveBundle(r.Context(), codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}

// AttachItem appends a registered item to the bundle.
//
//	@Summary	Attach item to bundle
//	@Tags		bundles
//	@Accept		json
//	@Produce	json
//	@Param		code	path		string				true	"Bundle code"
//	@Param		request	body		AttachItemRequest	true	"Item to attach"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/bundles/{code}/items [post]
func (h *BundleHandler) AttachItem(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[AttachItemRequest](w, r)
	if !ok {
		return
	}

	l, err := f.AttachItemToBundle(r.Context(), req.ItemCode, codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}

// AttachBundle nests a registered bundle inside the bundle.
//
//	@Summary	Nest bundle
//	@Tags		bundles
//	@Accept		json
//	@Produce	json
//	@Param		code	path		string				true	"Parent bundle code"
//	@Param		request	body		AttachBundleRequest	true	"Bundle to nest"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Router		/bundles/{code}/bundles [post]
func (h *BundleHandler) AttachBundle(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[AttachBundleRequest](w, r)
	if !ok {
		return
	}

	l, err := f.AttachBundleToBundle(r.Context(), req.BundleCode, codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}
