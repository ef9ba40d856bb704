package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMerge()
	if err := c.normalizeTaxonomy(); err != nil {
		return err
	}
	c.normalizeContinuity()
	c.normalizeRaw()
	c.normalizeOverlay()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.DatasetDir) == "" {
		c.Paths.DatasetDir = strings.TrimSpace(os.Getenv(datasetDirEnv))
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMerge() {
	c.Merge.Classes = cleanList(c.Merge.Classes)
	if c.Merge.ImageWidth <= 0 {
		c.Merge.ImageWidth = defaultFrameWidth
	}
	if c.Merge.ImageHeight <= 0 {
		c.Merge.ImageHeight = defaultFrameHeight
	}
	for i, name := range c.Merge.ClassNames {
		c.Merge.ClassNames[i] = strings.TrimSpace(name)
	}
}

func (c *Config) normalizeTaxonomy() error {
	mapping := make(map[string]string, len(c.Taxonomy.Mapping))
	for from, to := range c.Taxonomy.Mapping {
		mapping[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	c.Taxonomy.Mapping = mapping
	c.Taxonomy.KeepClasses = cleanList(c.Taxonomy.KeepClasses)
	c.Taxonomy.TargetClasses = cleanList(c.Taxonomy.TargetClasses)
	c.Taxonomy.WindowStart = strings.TrimSpace(c.Taxonomy.WindowStart)
	c.Taxonomy.WindowEnd = strings.TrimSpace(c.Taxonomy.WindowEnd)
	var err error
	if c.Taxonomy.MappingFile, err = expandPath(strings.TrimSpace(c.Taxonomy.MappingFile)); err != nil {
		return fmt.Errorf("taxonomy.mapping_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeContinuity() {
	for i := range c.Continuity.Patterns {
		p := &c.Continuity.Patterns[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		p.Prefix = strings.TrimSpace(p.Prefix)
		p.Suffix = strings.TrimSpace(p.Suffix)
	}
}

func (c *Config) normalizeRaw() {
	if c.Raw.Height == 0 {
		c.Raw.Height = defaultRawHeight
	}
	if c.Raw.Width == 0 {
		c.Raw.Width = defaultRawWidth
	}
	if c.Raw.Window == 0 {
		c.Raw.Window = defaultDenoiseWindow
	}
	if c.Raw.PNGScale == 0 {
		c.Raw.PNGScale = defaultPNGScale
	}
	if c.Raw.Workers <= 0 {
		c.Raw.Workers = defaultWorkers()
	}
	c.Raw.Border = strings.ToLower(strings.TrimSpace(c.Raw.Border))
	if c.Raw.Border == "" {
		c.Raw.Border = defaultDenoiseBorder
	}
	c.Raw.Palette = strings.ToLower(strings.TrimSpace(c.Raw.Palette))
	if c.Raw.Palette == "" {
		c.Raw.Palette = defaultPalette
	}
}

func (c *Config) normalizeOverlay() {
	c.Overlay.Class = strings.TrimSpace(c.Overlay.Class)
	if c.Overlay.Class == "" {
		c.Overlay.Class = defaultOverlayClass
	}
	if c.Overlay.ImageWidth <= 0 {
		c.Overlay.ImageWidth = defaultFrameWidth
	}
	if c.Overlay.ImageHeight <= 0 {
		c.Overlay.ImageHeight = defaultFrameHeight
	}
}

func (c *Config) normalizeLedger() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = filepath.Join(c.Paths.StateDir, defaultLedgerFile)
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			overrides[strings.ToLower(strings.TrimSpace(component))] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentOverrides = overrides
	}
}

// cleanList trims entries, drops blanks and duplicates, and keeps order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
