package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/productcatalog/pkg/cache"
	"github.com/ghuser/productcatalog/pkg/events"
	"github.com/ghuser/productcatalog/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass to each service's route and subscriber registration during startup.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "bundle attached", "bundle_code", code)
//	app.Logger.ErrorContext(ctx, "publish failed", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Logger       logger.Logger
	EventBus     *events.EventBus   // nil disables catalog events
	Redis        *cache.RedisClient // nil when REDIS_URL is empty
	SessionStore sessions.Store     // nil in worker and shell processes
}
