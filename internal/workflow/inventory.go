package workflow

import (
	"context"
	"strings"

	"annofuse/internal/annotation"
	"annofuse/internal/inventory"
	"annofuse/internal/ledger"
	"annofuse/internal/logging"
	"annofuse/internal/services"
)

// CategoryNonTargetClass marks a capture holding classes outside the target list.
const CategoryNonTargetClass = "non_target_class"

// ClassesSummary is the class inventory of a label tree.
type ClassesSummary struct {
	Files          int                        `json:"files"`
	RecordsSkipped int                        `json:"records_skipped"`
	Inventory      inventory.Summary          `json:"inventory"`
	NonTarget      []inventory.CaptureClasses `json:"non_target,omitempty"`
}

// InventoryClasses counts the classes of every label under dir. With
// targets set, each capture holding any other class becomes a warning.
func InventoryClasses(ctx context.Context, job *Job, dir string, geom Geometry, targets []string) (ClassesSummary, error) {
	store, report, err := LoadStore(ctx, job, dir, geom)
	if err != nil {
		return ClassesSummary{}, err
	}
	summary := ClassesSummary{
		Files:          store.Len(),
		RecordsSkipped: report.Skipped,
		Inventory:      inventory.Summarize(store),
	}
	if len(targets) > 0 {
		summary.NonTarget = inventory.NonTarget(store, targets)
		for _, cc := range summary.NonTarget {
			names := make([]string, 0, len(cc.Classes))
			for _, c := range cc.Classes {
				names = append(names, c.Class)
			}
			job.AddFinding(ledger.Finding{
				CaptureID: cc.CaptureID,
				Severity:  SeverityWarning,
				Category:  CategoryNonTargetClass,
				Subject:   cc.CaptureID,
				Message:   "unexpected classes " + strings.Join(names, ", "),
			})
		}
	}
	job.Logger.Info("inventory complete",
		logging.String(logging.FieldEventType, "inventory_complete"),
		logging.Int("keys", summary.Inventory.Keys),
		logging.Int("boxes", summary.Inventory.Boxes),
		logging.Int("classes", len(summary.Inventory.Classes)),
	)
	return summary, nil
}

// FindSummary lists the labelled frames holding given classes.
type FindSummary struct {
	Classes []string `json:"classes"`
	Matches int      `json:"matches"`
	Keys    []string `json:"keys"`
}

// FindClasses lists, in key order, the frames under dir labelled with any of classes.
func FindClasses(ctx context.Context, job *Job, dir string, geom Geometry, classes []string) (FindSummary, error) {
	if len(classes) == 0 {
		return FindSummary{}, services.Wrap(services.ErrValidation, "workflow", "inventory-find", "no classes to find", nil)
	}
	store, _, err := LoadStore(ctx, job, dir, geom)
	if err != nil {
		return FindSummary{}, err
	}
	keys := inventory.KeysWith(store, classes)
	return FindSummary{Classes: classes, Matches: len(keys), Keys: keyStrings(keys)}, nil
}

// SampleSummary holds a reproducible per-class sample of frames.
type SampleSummary struct {
	PerClass int                 `json:"per_class"`
	Seed     uint64              `json:"seed"`
	Classes  int                 `json:"classes"`
	Samples  map[string][]string `json:"samples"`
}

// SampleClasses draws up to perClass frames per class for visual review.
// The same seed over the same tree yields the same sample.
func SampleClasses(ctx context.Context, job *Job, dir string, geom Geometry, perClass int, seed uint64) (SampleSummary, error) {
	if perClass <= 0 {
		return SampleSummary{}, services.Wrap(services.ErrValidation, "workflow", "inventory-sample", "sample size must be positive", nil)
	}
	store, _, err := LoadStore(ctx, job, dir, geom)
	if err != nil {
		return SampleSummary{}, err
	}
	picked := inventory.Sample(store, perClass, seed)
	summary := SampleSummary{PerClass: perClass, Seed: seed, Classes: len(picked), Samples: make(map[string][]string, len(picked))}
	for class, keys := range picked {
		summary.Samples[class] = keyStrings(keys)
	}
	return summary, nil
}

func keyStrings(keys []annotation.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
