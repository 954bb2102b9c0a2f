package auth

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/productcatalog/pkg/httpx"
	"github.com/ghuser/productcatalog/pkg/logger"
)

// SessionName is the cookie carrying the caller's catalog workspace.
const SessionName = "catalog_session"

const sessionWorkspaceIDKey = "workspace_id"

// BindWorkspace stores workspaceID in the caller's session and writes the cookie.
// Subsequent requests through RequireWorkspace operate on that workspace.
func BindWorkspace(store sessions.Store, w http.ResponseWriter, r *http.Request, workspaceID uuid.UUID) error {
	session, err := store.Get(r, SessionName)
	if err != nil {
		// A tampered or stale cookie still yields a usable fresh session.
		session, err = store.New(r, SessionName)
		if err != nil {
			return fmt.Errorf("new session: %w", err)
		}
	}
	session.Values[sessionWorkspaceIDKey] = workspaceID.String()
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// RequireWorkspace is a chi middleware that resolves the caller's workspace from
// the session cookie and injects it into the request context.
// Returns 401 Unauthorized if the session is missing, invalid, or lacks a valid workspace_id.
//
// After this middleware, handlers can safely call auth.WorkspaceIDFromCtx(r.Context()),
// and every record logged with the request context carries workspace_id.
func RequireWorkspace(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, SessionName)
			if err != nil {
				log.WarnContext(r.Context(), "invalid session cookie", "error", err)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "workspace required"})
				return
			}

			raw, ok := session.Values[sessionWorkspaceIDKey].(string)
			if !ok || raw == "" {
				log.WarnContext(r.Context(), "session missing workspace_id")
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "workspace required"})
				return
			}

			workspaceID, err := uuid.Parse(raw)
			if err != nil {
				log.WarnContext(r.Context(), "invalid workspace_id in session", "workspace_id", raw, "error", err)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session data"})
				return
			}

			ctx := logger.WithAttrs(r.Context(), "workspace_id", workspaceID.String())
			ctx = WithWorkspaceID(ctx, workspaceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
