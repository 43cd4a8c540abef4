package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/reconcile"
	"github.com/ledgerline/ledgerline/internal/taxonomy"
)

const baseConfig = `shutdown_timeout = "45s"
version = "0.2.0"

[server]
host = "0.0.0.0"
port = 8080

[storage]
container_name = "documents"
connection_string = "DefaultEndpointsProtocol=http;AccountName=ledgerlinestore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/ledgerlinestore;"

[api]
base_path = "/api"
max_upload_size = "25MB"

[pipeline]
stage_timeout = "2m"
sessions_dir = "testdata/sessions"

[pipeline.tolerance]
basis = "absolute"
value = 100.0
`

const overlayConfig = `[server]
port = 9090

[pipeline]
stage_timeout = "10m"
`

func writeConfig(t *testing.T, name, content string) {
	t.Helper()

	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadBaseConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, baseConfig)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ShutdownTimeoutDuration() != 45*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 45s", cfg.ShutdownTimeout)
	}
	if cfg.Version != "0.2.0" {
		t.Errorf("Version = %s, want 0.2.0", cfg.Version)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.ContainerName != "documents" {
		t.Errorf("ContainerName = %s, want documents", cfg.Storage.ContainerName)
	}
	if cfg.API.MaxUploadSizeBytes() != 25*1024*1024 {
		t.Errorf("MaxUploadSizeBytes = %d, want 25MB", cfg.API.MaxUploadSizeBytes())
	}
	if cfg.Pipeline.StageTimeoutDuration() != 2*time.Minute {
		t.Errorf("StageTimeout = %s, want 2m", cfg.Pipeline.StageTimeout)
	}

	tol := cfg.Pipeline.ToTolerance()
	if tol.Basis != reconcile.BasisAbsolute || tol.Value != 100.0 {
		t.Errorf("tolerance = %+v", tol)
	}
}

func TestLoadAppliesOverlay(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, baseConfig)
	writeConfig(t, "config.test.toml", overlayConfig)
	t.Setenv(config.EnvLedgerlineEnv, "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want overlay value 9090", cfg.Server.Port)
	}
	if cfg.Pipeline.StageTimeoutDuration() != 10*time.Minute {
		t.Errorf("StageTimeout = %s, want overlay value 10m", cfg.Pipeline.StageTimeout)
	}
	// base values untouched by the overlay survive
	if cfg.Version != "0.2.0" {
		t.Errorf("Version = %s, want 0.2.0", cfg.Version)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, baseConfig)
	t.Setenv(config.EnvLedgerlineShutdownTimeout, "90s")
	t.Setenv(config.EnvPipelineStageTimeout, "30s")
	t.Setenv(config.EnvToleranceBasis, "percent")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ShutdownTimeoutDuration() != 90*time.Second {
		t.Errorf("ShutdownTimeout = %s, want env value 90s", cfg.ShutdownTimeout)
	}
	if cfg.Pipeline.StageTimeoutDuration() != 30*time.Second {
		t.Errorf("StageTimeout = %s, want env value 30s", cfg.Pipeline.StageTimeout)
	}
	if cfg.Pipeline.ToTolerance().Basis != reconcile.BasisPercent {
		t.Errorf("tolerance basis = %s, want percent", cfg.Pipeline.Tolerance.Basis)
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	// storage has no defaults for credentials
	t.Setenv("LEDGERLINE_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true;")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("ShutdownTimeout = %s, want default 30s", cfg.ShutdownTimeout)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("BasePath = %s, want /api", cfg.API.BasePath)
	}
	if cfg.Pipeline.TaxonomyVersion != taxonomy.DefaultVersion {
		t.Errorf("TaxonomyVersion = %s, want %s", cfg.Pipeline.TaxonomyVersion, taxonomy.DefaultVersion)
	}
	if cfg.Pipeline.ToTolerance() != reconcile.DefaultTolerance() {
		t.Errorf("tolerance = %+v, want defaults", cfg.Pipeline.ToTolerance())
	}
}

func TestPipelineConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*config.PipelineConfig)
	}{
		{"bad stage timeout", func(c *config.PipelineConfig) { c.StageTimeout = "soon" }},
		{"bad tolerance basis", func(c *config.PipelineConfig) { c.Tolerance.Basis = "relative" }},
		{"negative tolerance", func(c *config.PipelineConfig) { c.Tolerance.Value = -1 }},
		{"unknown taxonomy", func(c *config.PipelineConfig) { c.TaxonomyVersion = "v999" }},
		{"negative rate", func(c *config.PipelineConfig) { c.Amortization.AnnualRate = -0.05 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.PipelineConfig{}
			tt.mut(cfg)
			if err := cfg.Finalize(); err == nil {
				t.Error("Finalize() expected validation error")
			}
		})
	}
}
