package api

import (
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/infrastructure"
	"github.com/ledgerline/ledgerline/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Agent:     cfg.Agent,
			Storage:   infra.Storage,
			Sessions:  infra.Sessions,
			Trace:     infra.Trace,
		},
		Pagination: cfg.API.Pagination,
	}
}
