package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/JaimeStill/go-agents/pkg/format"

	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/reconcile"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/internal/taxonomy"
	"github.com/ledgerline/ledgerline/pkg/storage"
)

// Inference abstracts the model calls stages make, so the engine can be
// exercised in tests without a live provider.
type Inference interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	Vision(ctx context.Context, prompt string, images []string) (string, error)
}

type agentInference struct {
	cfg gaconfig.AgentConfig
}

// NewInference creates an Inference backed by a go-agents agent.
func NewInference(cfg gaconfig.AgentConfig) Inference {
	return &agentInference{cfg: cfg}
}

func (ai *agentInference) Analyze(ctx context.Context, prompt string) (string, error) {
	a, err := agent.New(&ai.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	return resp.Text(), nil
}

func (ai *agentInference) Vision(ctx context.Context, prompt string, images []string) (string, error) {
	a, err := agent.New(&ai.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	imgs := make([]format.Image, len(images))
	for i, s := range images {
		imgs[i] = format.Image{URL: s}
	}

	resp, err := a.Vision(ctx, prompt, imgs)
	if err != nil {
		return "", fmt.Errorf("vision call: %w", err)
	}

	return resp.Text(), nil
}

// LoanTerms are the fallback financing terms used when a spreadsheet does
// not state its own.
type LoanTerms struct {
	RatePerPeriod float64
	Periods       int
}

// Runtime bundles the dependencies that workflow stages require.
// It is constructed by higher-level composition code from Infrastructure
// and Domain systems.
type Runtime struct {
	Inference    Inference
	Extractor    extract.Extractor
	Storage      storage.System
	Store        sessions.Store
	Trace        sessions.Recorder
	Logger       *slog.Logger
	Tolerance    reconcile.Tolerance
	Taxonomy     taxonomy.Taxonomy
	Loan         LoanTerms
	StageTimeout time.Duration
}
