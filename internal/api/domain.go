package api

import (
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/documents"
	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/pipeline"
	"github.com/ledgerline/ledgerline/internal/taxonomy"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Sessions  pipeline.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	docsSystem := documents.New(
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	tax, err := taxonomy.Load(cfg.Pipeline.TaxonomyVersion)
	if err != nil {
		return nil, err
	}

	rt := &pipeline.Runtime{
		Inference: pipeline.NewInference(runtime.Agent),
		Extractor: extract.New(),
		Storage:   runtime.Storage,
		Store:     runtime.Sessions,
		Trace:     runtime.Trace,
		Logger:    runtime.Logger,
		Tolerance: cfg.Pipeline.ToTolerance(),
		Taxonomy:  tax,
		Loan: pipeline.LoanTerms{
			RatePerPeriod: cfg.Pipeline.RatePerPeriod(),
			Periods:       cfg.Pipeline.Amortization.Periods,
		},
		StageTimeout: cfg.Pipeline.StageTimeoutDuration(),
	}

	stages := pipeline.DefaultStages()
	engine := pipeline.NewEngine(rt, stages)
	runner := pipeline.NewRunner(runtime.Lifecycle.Context(), engine, runtime.Logger)

	sessionsSystem := pipeline.New(rt, runner, stages, docsSystem, runtime.Pagination)

	return &Domain{
		Documents: docsSystem,
		Sessions:  sessionsSystem,
	}, nil
}
