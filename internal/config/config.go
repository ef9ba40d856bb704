package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DatasetDir string `toml:"dataset_dir"`
	OutputDir  string `toml:"output_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Merge configures fusion of supplementary labels into primary labels.
type Merge struct {
	IOUThreshold float64  `toml:"iou_threshold"`
	Classes      []string `toml:"classes"`
	ImageWidth   int      `toml:"image_width"`
	ImageHeight  int      `toml:"image_height"`
	// ClassNames resolves YOLO class indices to labels, in index order.
	ClassNames []string `toml:"class_names"`
}

// Taxonomy configures class remapping and cleanup.
type Taxonomy struct {
	Mapping       map[string]string `toml:"mapping"`
	MappingFile   string            `toml:"mapping_file"`
	KeepUnmapped  bool              `toml:"keep_unmapped"`
	KeepClasses   []string          `toml:"keep_classes"`
	TargetClasses []string          `toml:"target_classes"`
	FoldCase      bool              `toml:"fold_case"`
	WindowStart   string            `toml:"window_start"`
	WindowEnd     string            `toml:"window_end"`
}

// Pattern names a frame file naming scheme.
type Pattern struct {
	Name   string `toml:"name"`
	Prefix string `toml:"prefix"`
	Suffix string `toml:"suffix"`
}

// Continuity lists extra naming schemes on top of the built-in ones.
type Continuity struct {
	Patterns []Pattern `toml:"patterns"`
}

// Raw configures the ternary event-frame tools.
type Raw struct {
	Height    int     `toml:"height"`
	Width     int     `toml:"width"`
	Window    int     `toml:"window"`
	Occupancy float64 `toml:"occupancy"`
	Border    string  `toml:"border"`
	Palette   string  `toml:"palette"`
	PNGScale  int     `toml:"png_scale"`
	Workers   int     `toml:"workers"`
}

// Overlay configures mixing detector output into the label tree.
type Overlay struct {
	Class       string `toml:"class"`
	ImageWidth  int    `toml:"image_width"`
	ImageHeight int    `toml:"image_height"`
}

// Capture configures capture integrity checks.
type Capture struct {
	IDPrefix     string `toml:"id_prefix"`
	RemoveExtras bool   `toml:"remove_extras"`
}

// Inventory configures dataset reports.
type Inventory struct {
	SampleSize int    `toml:"sample_size"`
	Seed       uint64 `toml:"seed"`
}

// Ledger configures the run history database.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for annofuse.
//
// Configuration sections by subsystem:
//   - Paths: dataset, output, state, and log directories
//   - Merge: IOU threshold, class filter, and image size for label fusion
//   - Taxonomy: class mapping, eligibility window, and cleanup lists
//   - Continuity: extra frame naming schemes
//   - Raw: event-frame size, denoise window, and preview rendering
//   - Overlay: detector-box overlay class and image size
//   - Capture: capture-id prefix and extra file handling
//   - Inventory: sample size and seed
//   - Ledger: run history database
//   - Logging: log format and levels
type Config struct {
	Paths      Paths      `toml:"paths"`
	Merge      Merge      `toml:"merge"`
	Taxonomy   Taxonomy   `toml:"taxonomy"`
	Continuity Continuity `toml:"continuity"`
	Raw        Raw        `toml:"raw"`
	Overlay    Overlay    `toml:"overlay"`
	Capture    Capture    `toml:"capture"`
	Inventory  Inventory  `toml:"inventory"`
	Ledger     Ledger     `toml:"ledger"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the run history database path, or "" when disabled.
func (c *Config) LedgerPath() string {
	if !c.Ledger.Enabled {
		return ""
	}
	return c.Ledger.Path
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
