// Package infrastructure provides core service initialization for application
// startup. It assembles common dependencies (logging, storage, session
// persistence) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/lifecycle"
	"github.com/ledgerline/ledgerline/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, blob storage, and session persistence.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Agent     gaconfig.AgentConfig
	Storage   storage.System
	Sessions  sessions.Store
	Trace     sessions.Recorder
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	sessionStore, err := sessions.NewFileStore(cfg.Pipeline.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("session store init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Agent:     cfg.Agent,
		Storage:   store,
		Sessions:  sessionStore,
		Trace:     sessions.NewRecorder(logger),
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
