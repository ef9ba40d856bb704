package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateTaxonomy(); err != nil {
		return err
	}
	if err := c.validateContinuity(); err != nil {
		return err
	}
	if err := c.validateRaw(); err != nil {
		return err
	}
	if err := c.validateOverlay(); err != nil {
		return err
	}
	if err := c.validateInventory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.IOUThreshold < 0 || c.Merge.IOUThreshold > 1 {
		return errors.New("merge.iou_threshold must be between 0 and 1")
	}
	return ensurePositiveMap(map[string]int{
		"merge.image_width":  c.Merge.ImageWidth,
		"merge.image_height": c.Merge.ImageHeight,
	})
}

func (c *Config) validateTaxonomy() error {
	for from, to := range c.Taxonomy.Mapping {
		if from == "" || to == "" {
			return fmt.Errorf("taxonomy.mapping entries must name both classes (got %q = %q)", from, to)
		}
	}
	var start, end time.Time
	var err error
	if c.Taxonomy.WindowStart != "" {
		if start, err = time.Parse("20060102", c.Taxonomy.WindowStart); err != nil {
			return errors.New("taxonomy.window_start must be a YYYYMMDD date")
		}
	}
	if c.Taxonomy.WindowEnd != "" {
		if end, err = time.Parse("20060102", c.Taxonomy.WindowEnd); err != nil {
			return errors.New("taxonomy.window_end must be a YYYYMMDD date")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return errors.New("taxonomy.window_end must not be before taxonomy.window_start")
	}
	return nil
}

func (c *Config) validateContinuity() error {
	seen := make(map[string]bool, len(c.Continuity.Patterns))
	for i, p := range c.Continuity.Patterns {
		if p.Name == "" {
			return fmt.Errorf("continuity.patterns[%d].name must be set", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("continuity.patterns[%d].name %q is duplicated", i, p.Name)
		}
		seen[p.Name] = true
		if p.Prefix == "" && p.Suffix == "" {
			return fmt.Errorf("continuity.patterns[%d] must set prefix or suffix", i)
		}
	}
	return nil
}

func (c *Config) validateRaw() error {
	if err := ensurePositiveMap(map[string]int{
		"raw.height":  c.Raw.Height,
		"raw.width":   c.Raw.Width,
		"raw.window":  c.Raw.Window,
		"raw.workers": c.Raw.Workers,
	}); err != nil {
		return err
	}
	if c.Raw.Occupancy < 0 || c.Raw.Occupancy > 1 {
		return errors.New("raw.occupancy must be between 0 and 1 (0 uses the median)")
	}
	if c.Raw.PNGScale < 1 || c.Raw.PNGScale > maxPNGScale {
		return fmt.Errorf("raw.png_scale must be between 1 and %d", maxPNGScale)
	}
	switch c.Raw.Border {
	case "reflect", "constant":
	default:
		return fmt.Errorf("raw.border must be reflect or constant (got %q)", c.Raw.Border)
	}
	switch c.Raw.Palette {
	case "mono", "polarity":
	default:
		return fmt.Errorf("raw.palette must be mono or polarity (got %q)", c.Raw.Palette)
	}
	return nil
}

func (c *Config) validateOverlay() error {
	if strings.ContainsAny(c.Overlay.Class, " \t") {
		return errors.New("overlay.class must not contain whitespace")
	}
	return nil
}

func (c *Config) validateInventory() error {
	if c.Inventory.SampleSize < 0 {
		return errors.New("inventory.sample_size must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must be >= 0 (got %d)", c.Logging.RetentionDays)
	}
	for component, level := range c.Logging.ComponentOverrides {
		if !validLevel(level) {
			return fmt.Errorf("logging.component_overrides.%s has invalid level %q", component, level)
		}
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
