package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ghuser/productcatalog/pkg/errhttp"
	"github.com/ghuser/productcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/productcatalog/pkg/validator"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

// CreateDiscountRequest is the request body for POST /discounts.
type CreateDiscountRequest struct {
	ItemCode  string          `json:"item_code"  validate:"required,max=64"    example:"W1"`
	OfferName string          `json:"offer_name" validate:"required,max=255"   example:"Sale"`
	Rate      decimal.Decimal `json:"rate"       validate:"gte=0,lte=100"      example:"20" swaggertype:"string"`
} // @name CreateDiscountRequest

// DiscountHandler handles /discounts requests.
type DiscountHandler struct {
	svc *appsvcs.Services
}

// NewDiscountHandler returns a DiscountHandler backed by the given services.
func NewDiscountHandler(svc *appsvcs.Services) *DiscountHandler {
	return &DiscountHandler{svc: svc}
}

// Create puts a registered item on special offer.
//
//	@Summary		Create discount
//	@Description	Wraps a registered item in a special offer; the discounted entry keeps the item's code
//	@Tags			discounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateDiscountRequest	true	"Discount creation request"
//	@Success		201		{object}	ListingResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/discounts [post]
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[CreateDiscountRequest](w, r)
	if !ok {
		return
	}

	l, err := f.AddDiscountedItem(r.Context(), req.ItemCode, req.OfferName, req.Rate)
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(l))
}

// List returns every discounted item in insertion order.
//
//	@Summary	List discounts
//	@Tags		discounts
//	@Produce	json
//	@Success	200	{object}	ListingsResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/discounts [get]
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toListResponse(f.Discounts(r.Context())))
}

// Get returns one discounted item.
//
//	@Summary	Get discount
//	@Tags		discounts
//	@Produce	json
//	@Param		code	path		string	true	"Code of the discounted item"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/discounts/{code} [get]
func (h *DiscountHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	l, err := f.Discount(r.Context(), codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}

// Delete removes a discounted item.
//
//	@Summary	Delete discount
//	@Tags		discounts
//	@Produce	json
//	@Param		code	path		string	true	"Code of the discounted item"
//	@Success	200		{object}	ListingResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/discounts/{code} [delete]
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	f, ok := facadeFor(h.svc, w, r)
	if !ok {
		return
	}
	l, err := f.RemoveDiscount(r.Context(), codeParam(r))
	if err != nil {
		errhttp.WriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(l))
}
