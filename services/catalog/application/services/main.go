package services

import (
	"github.com/ghuser/productcatalog/pkg/app"
)

// Services is the application-layer service container for this bounded context.
type Services struct {
	Workspaces *Workspaces
}

// New wires the catalog application services with infrastructure from the
// Application container. Zero limits take the workspace defaults.
func New(a *app.Application, limits WorkspaceLimits) *Services {
	var pub Publisher
	if a.EventBus != nil {
		pub = a.EventBus
	}
	return &Services{
		Workspaces: NewWorkspacesWithLimits(pub, a.Logger, limits),
	}
}
