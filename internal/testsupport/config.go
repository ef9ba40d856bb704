package testsupport

import (
	"path/filepath"
	"testing"

	"annofuse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The dataset, output, state, and log directories all live under one base
// directory returned by BaseDir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DatasetDir = filepath.Join(base, "dataset")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.Path = filepath.Join(cfgVal.Paths.StateDir, "ledger.db")
	cfgVal.Raw.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithoutLedger disables run recording.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
		b.cfg.Ledger.Path = ""
	}
}

// WithMapping replaces the taxonomy mapping.
func WithMapping(mapping map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Taxonomy.Mapping = mapping
	}
}

// WithRawDims overrides the raw frame dimensions.
func WithRawDims(height, width int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Raw.Height = height
		b.cfg.Raw.Width = width
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
