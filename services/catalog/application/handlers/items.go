package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ghuser/productcatalog/pkg/errhttp"
	"github.com/ghuser/productcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/productcatalog/pkg/validator"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

// CreateItemRequest is the request body for POST /items.
type CreateItemRequest struct {
	Code  string          `json:"code"  validate:"required,max=64"  example:"W1"`
	Name  string          `json:"name"  validate:"required,max=255" example:"Widget"`
	Price decimal.Decimal `json:"price" validate:"gte=0"            example:"10.00" swaggertype:"string"`
} // @name CreateItemRequest

// ItemHandler handles /items requests.
type ItemHandler struct {
	svc *appsvcs.Services
}

// NewItemHandler returns an ItemHandler backed by the given services.
func NewItemHandler(svc *appsvcs.Services) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// Create registers a new item.
//
//	@Summary		Create item
//	@Description	Registers a product with a unit price in the caller's workspace
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateItemRequest	true	"Item creation request"
//	@Success		201		{object}	ListingResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/items [post]
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[CreateItemRequest](w, r)
	if !ok {
		return
	}

	l, err := f.AddItem(r.Context(), req.Code, req.Name, req.Price)
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(l))
}

// List returns every item in insertion order.
//
//	@Summary	List items
//	@Tags		items
//	@Produce	json
//	@Success	200	{object}	ListingsResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/items [get]
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toListResponse(f.Items(r.Context())))
}

// Get returns one item.
//
//	@Summary	Get item
//	@Tags		items
//	@Produce	json
//	@Param		code	path		string	true	"Item code"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/items/{code} [get]
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	l, err := f.Item(r.Context(), codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}

// Delete unregisters an item. Bundles that contain it keep it.
//
//	@Summary	Delete item
//	@Tags		items
//	@Produce	json
//	@Param		code	path		string	true	"Item code"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/items/{code} [delete]
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	l, err := f.RemoveItem(r.Context(), codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}
