package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ledgerline/ledgerline/internal/reconcile"
	"github.com/ledgerline/ledgerline/internal/taxonomy"
)

const (
	EnvPipelineStageTimeout    = "LEDGERLINE_PIPELINE_STAGE_TIMEOUT"
	EnvPipelineSessionsDir     = "LEDGERLINE_PIPELINE_SESSIONS_DIR"
	EnvPipelineTaxonomyVersion = "LEDGERLINE_PIPELINE_TAXONOMY_VERSION"

	EnvToleranceBasis   = "LEDGERLINE_TOLERANCE_BASIS"
	EnvToleranceValue   = "LEDGERLINE_TOLERANCE_VALUE"
	EnvToleranceEpsilon = "LEDGERLINE_TOLERANCE_EPSILON"

	EnvAmortizationAnnualRate = "LEDGERLINE_AMORTIZATION_ANNUAL_RATE"
	EnvAmortizationPeriods    = "LEDGERLINE_AMORTIZATION_PERIODS"
)

// ToleranceConfig holds the reconciliation tolerance settings.
type ToleranceConfig struct {
	Basis   string  `toml:"basis"`
	Value   float64 `toml:"value"`
	Epsilon int64   `toml:"epsilon"`
}

// AmortizationConfig holds fallback financing terms for spreadsheets that
// state a principal but no rate or period count.
type AmortizationConfig struct {
	AnnualRate float64 `toml:"annual_rate"`
	Periods    int     `toml:"periods"`
}

// PipelineConfig holds workflow execution settings.
type PipelineConfig struct {
	StageTimeout    string             `toml:"stage_timeout"`
	SessionsDir     string             `toml:"sessions_dir"`
	TaxonomyVersion string             `toml:"taxonomy_version"`
	Tolerance       ToleranceConfig    `toml:"tolerance"`
	Amortization    AmortizationConfig `toml:"amortization"`
}

// StageTimeoutDuration returns StageTimeout as a time.Duration.
func (c *PipelineConfig) StageTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StageTimeout)
	return d
}

// ToTolerance converts the tolerance settings to their domain form.
func (c *PipelineConfig) ToTolerance() reconcile.Tolerance {
	return reconcile.Tolerance{
		Basis:   reconcile.Basis(c.Tolerance.Basis),
		Value:   c.Tolerance.Value,
		Epsilon: c.Tolerance.Epsilon,
	}
}

// RatePerPeriod derives the per-period rate from the configured annual rate
// assuming monthly compounding.
func (c *PipelineConfig) RatePerPeriod() float64 {
	return c.Amortization.AnnualRate / 12
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.StageTimeout != "" {
		c.StageTimeout = overlay.StageTimeout
	}
	if overlay.SessionsDir != "" {
		c.SessionsDir = overlay.SessionsDir
	}
	if overlay.TaxonomyVersion != "" {
		c.TaxonomyVersion = overlay.TaxonomyVersion
	}
	if overlay.Tolerance.Basis != "" {
		c.Tolerance.Basis = overlay.Tolerance.Basis
	}
	if overlay.Tolerance.Value != 0 {
		c.Tolerance.Value = overlay.Tolerance.Value
	}
	if overlay.Tolerance.Epsilon != 0 {
		c.Tolerance.Epsilon = overlay.Tolerance.Epsilon
	}
	if overlay.Amortization.AnnualRate != 0 {
		c.Amortization.AnnualRate = overlay.Amortization.AnnualRate
	}
	if overlay.Amortization.Periods != 0 {
		c.Amortization.Periods = overlay.Amortization.Periods
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.StageTimeout == "" {
		c.StageTimeout = "5m"
	}
	if c.SessionsDir == "" {
		c.SessionsDir = "data/sessions"
	}
	if c.TaxonomyVersion == "" {
		c.TaxonomyVersion = taxonomy.DefaultVersion
	}

	defaults := reconcile.DefaultTolerance()
	if c.Tolerance.Basis == "" {
		c.Tolerance.Basis = string(defaults.Basis)
	}
	if c.Tolerance.Value == 0 {
		c.Tolerance.Value = defaults.Value
	}
	if c.Tolerance.Epsilon == 0 {
		c.Tolerance.Epsilon = defaults.Epsilon
	}

	if c.Amortization.AnnualRate == 0 {
		c.Amortization.AnnualRate = 0.06
	}
	if c.Amortization.Periods == 0 {
		c.Amortization.Periods = 12
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineStageTimeout); v != "" {
		c.StageTimeout = v
	}
	if v := os.Getenv(EnvPipelineSessionsDir); v != "" {
		c.SessionsDir = v
	}
	if v := os.Getenv(EnvPipelineTaxonomyVersion); v != "" {
		c.TaxonomyVersion = v
	}
	if v := os.Getenv(EnvToleranceBasis); v != "" {
		c.Tolerance.Basis = v
	}
	if v := os.Getenv(EnvToleranceValue); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tolerance.Value = f
		}
	}
	if v := os.Getenv(EnvToleranceEpsilon); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Tolerance.Epsilon = n
		}
	}
	if v := os.Getenv(EnvAmortizationAnnualRate); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Amortization.AnnualRate = f
		}
	}
	if v := os.Getenv(EnvAmortizationPeriods); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Amortization.Periods = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if _, err := time.ParseDuration(c.StageTimeout); err != nil {
		return fmt.Errorf("invalid stage_timeout: %w", err)
	}

	switch reconcile.Basis(c.Tolerance.Basis) {
	case reconcile.BasisAbsolute, reconcile.BasisPercent:
	default:
		return fmt.Errorf("invalid tolerance basis: %s", c.Tolerance.Basis)
	}

	if c.Tolerance.Value < 0 {
		return fmt.Errorf("tolerance value must not be negative")
	}
	if c.Amortization.AnnualRate < 0 {
		return fmt.Errorf("amortization annual_rate must not be negative")
	}
	if c.Amortization.Periods < 0 {
		return fmt.Errorf("amortization periods must not be negative")
	}

	if _, err := taxonomy.Load(c.TaxonomyVersion); err != nil {
		return fmt.Errorf("taxonomy_version: %w", err)
	}

	return nil
}
