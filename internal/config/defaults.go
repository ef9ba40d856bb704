package config

import "runtime"

const (
	defaultConfigPath       = "~/.config/annofuse/config.toml"
	projectConfigName       = "annofuse.toml"
	datasetDirEnv           = "ANNOFUSE_DATASET_DIR"
	defaultStateDir         = "~/.local/share/annofuse"
	defaultLogDir           = "~/.local/share/annofuse/logs"
	defaultLedgerFile       = "ledger.db"
	defaultIOUThreshold     = 0.5
	defaultMergeClass       = "vehicle"
	defaultFrameWidth       = 3264
	defaultFrameHeight      = 2448
	defaultWindowStart      = "20250507"
	defaultWindowEnd        = "20250714"
	defaultRawHeight        = 612
	defaultRawWidth         = 816
	defaultDenoiseWindow    = 3
	defaultDenoiseBorder    = "reflect"
	defaultPalette          = "mono"
	defaultPNGScale         = 1
	defaultOverlayClass     = "danger"
	defaultCaptureIDPrefix  = ""
	defaultSampleSize       = 5
	defaultSampleSeed       = 42
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	maxPNGScale             = 16
	defaultWorkersPerCPUCap = 8
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Merge: Merge{
			IOUThreshold: defaultIOUThreshold,
			Classes:      []string{defaultMergeClass},
			ImageWidth:   defaultFrameWidth,
			ImageHeight:  defaultFrameHeight,
		},
		Taxonomy: Taxonomy{
			Mapping:       defaultMapping(),
			KeepUnmapped:  true,
			TargetClasses: []string{"stand", "sit", "lie", "kneel"},
			WindowStart:   defaultWindowStart,
			WindowEnd:     defaultWindowEnd,
		},
		Raw: Raw{
			Height:   defaultRawHeight,
			Width:    defaultRawWidth,
			Window:   defaultDenoiseWindow,
			Border:   defaultDenoiseBorder,
			Palette:  defaultPalette,
			PNGScale: defaultPNGScale,
			Workers:  defaultWorkers(),
		},
		Overlay: Overlay{
			Class:       defaultOverlayClass,
			ImageWidth:  defaultFrameWidth,
			ImageHeight: defaultFrameHeight,
		},
		Capture: Capture{
			IDPrefix: defaultCaptureIDPrefix,
		},
		Inventory: Inventory{
			SampleSize: defaultSampleSize,
			Seed:       defaultSampleSeed,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// defaultMapping folds the fall-detection poses into three classes.
func defaultMapping() map[string]string {
	return map[string]string{
		"crawl": "fallen",
		"lie":   "fallen",
		"kneel": "falling",
		"sit":   "falling",
		"stand": "notfalling",
	}
}

func defaultWorkers() int {
	return max(1, min(runtime.NumCPU(), defaultWorkersPerCPUCap))
}
