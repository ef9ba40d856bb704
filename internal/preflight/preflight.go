package preflight

import (
	"annofuse/internal/config"
)

// MinFreeBytes is the free space doctor expects in the output directory.
var MinFreeBytes uint64 = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Dataset directory", cfg.Paths.DatasetDir),
	}
	if cfg.Paths.OutputDir != "" {
		results = append(results,
			CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir),
			CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinFreeBytes),
			CheckWorkspaceIdle("Output lock", cfg.Paths.OutputDir),
		)
	}
	results = append(results,
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
		CheckCreatableDirectory("Log directory", cfg.Paths.LogDir),
		CheckLedger(cfg.LedgerPath()),
		CheckMappingFile(cfg.Taxonomy.MappingFile),
	)
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
