package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/productcatalog/pkg/auth"
	"github.com/ghuser/productcatalog/pkg/httpx"
	"github.com/ghuser/productcatalog/pkg/logger"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
)

// WorkspaceResponse is returned when a workspace is created.
type WorkspaceResponse struct {
	WorkspaceID uuid.UUID `json:"workspace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
} // @name WorkspaceResponse

// WorkspaceHandler handles /workspaces requests.
type WorkspaceHandler struct {
	svc   *appsvcs.Services
	store sessions.Store
	log   logger.Logger
}

// NewWorkspaceHandler returns a WorkspaceHandler that binds new workspaces into store.
func NewWorkspaceHandler(svc *appsvcs.Services, store sessions.Store, log logger.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc, store: store, log: log}
}

// Create starts an empty catalog workspace and binds it to the caller's session.
//
//	@Summary		Create workspace
//	@Description	Starts an empty catalog and sets the session cookie that scopes all other catalog calls to it
//	@Tags			workspaces
//	@Produce		json
//	@Success		201	{object}	WorkspaceResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/workspaces [post]
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	f := h.svc.Workspaces.Create()
	if err := auth.BindWorkspace(h.store, w, r, f.WorkspaceID()); err != nil {
		h.log.ErrorContext(r.Context(), "bind workspace session", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	h.log.InfoContext(r.Context(), "workspace created", "workspace_id", f.WorkspaceID().String())
	httpx.JSON(w, http.StatusCreated, WorkspaceResponse{WorkspaceID: f.WorkspaceID()})
}

// Current reports the workspace bound to the caller's session.
//
//	@Summary		Current workspace
//	@Tags			workspaces
//	@Produce		json
//	@Success		200	{object}	WorkspaceResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/workspaces/current [get]
func (h *WorkspaceHandler) Current(w http.ResponseWriter, r *http.Request) {
	id, err := auth.WorkspaceIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "workspace required")
		return
	}
	httpx.JSON(w, http.StatusOK, WorkspaceResponse{WorkspaceID: id})
}
