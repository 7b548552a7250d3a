package commands

import (
	command "github.com/goliatone/go-command"
	internalcommands "github.com/goliatone/go-pubrouter/internal/commands"
	"github.com/goliatone/go-pubrouter/internal/router"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
)

// Re-export request types so consumers need not import internal packages.
type (
	Target              = internalcommands.Target
	RouteNotification   = internalcommands.RouteNotification
	StoreNotification   = internalcommands.StoreNotification
	EnqueueNotification = internalcommands.EnqueueNotification
	EnqueueContentLinks = internalcommands.EnqueueContentLinks
)

// Registry exposes go-command compatible handlers backed by the router.
type Registry struct {
	Catalog             *internalcommands.Catalog
	RouteNotification   command.Commander[RouteNotification]
	StoreNotification   command.Commander[StoreNotification]
	EnqueueNotification command.Commander[EnqueueNotification]
	EnqueueContentLinks command.Commander[EnqueueContentLinks]
}

// Dependencies mirror the internal command dependencies but keep them public.
type Dependencies struct {
	Router *router.Service
	Logger logger.Logger
}

// New builds the registry using the provided dependencies.
func New(deps Dependencies) (*Registry, error) {
	internalDeps := internalcommands.Dependencies{Logger: deps.Logger}
	// a nil *router.Service must stay a nil interface
	if deps.Router != nil {
		internalDeps.Router = deps.Router
	}
	catalog, err := internalcommands.NewCatalog(internalDeps)
	if err != nil {
		return nil, err
	}
	return &Registry{
		Catalog:             catalog,
		RouteNotification:   catalog.RouteNotification,
		StoreNotification:   catalog.StoreNotification,
		EnqueueNotification: catalog.EnqueueNotification,
		EnqueueContentLinks: catalog.EnqueueContentLinks,
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (r *Registry) Commanders() []any {
	if r == nil {
		return nil
	}
	return []any{
		r.RouteNotification,
		r.StoreNotification,
		r.EnqueueNotification,
		r.EnqueueContentLinks,
	}
}
