package api

import (
	"net/http"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	maxUpload := cfg.API.MaxUploadSizeBytes()

	routes.Register(
		mux,
		domain.Documents.Handler(maxUpload).Routes(),
		domain.Sessions.Handler(maxUpload).Routes(),
	)
}
