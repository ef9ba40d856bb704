package workflow_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"annofuse/internal/workflow"
)

func inventoryTree(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Label")
	writeVOC(t, dir, "20250601_a/aps/f_1.xml", obj{Name: "vehicle", XMin: 0, YMin: 0, XMax: 10, YMax: 10}, obj{Name: "person", XMin: 5, YMin: 5, XMax: 20, YMax: 20})
	writeVOC(t, dir, "20250601_a/aps/f_2.xml", obj{Name: "vehicle", XMin: 0, YMin: 0, XMax: 10, YMax: 10})
	writeVOC(t, dir, "20250601_b/aps/f_1.xml", obj{Name: "dog", XMin: 0, YMin: 0, XMax: 10, YMax: 10})
	return dir
}

func TestInventoryClassesFlagsNonTargetCaptures(t *testing.T) {
	job := workflow.NewJob(nil)
	summary, err := workflow.InventoryClasses(context.Background(), job, inventoryTree(t), workflow.Geometry{}, []string{"vehicle", "person"})
	if err != nil {
		t.Fatalf("InventoryClasses: %v", err)
	}
	if summary.Files != 3 || summary.Inventory.Boxes != 4 {
		t.Fatalf("summary = %+v", summary)
	}
	if first := summary.Inventory.Classes[0]; first.Class != "vehicle" || first.Count != 2 {
		t.Fatalf("top class = %+v", first)
	}
	if len(summary.NonTarget) != 1 || summary.NonTarget[0].CaptureID != "20250601_b" {
		t.Fatalf("non-target = %+v", summary.NonTarget)
	}
	findings := job.Findings()
	if len(findings) != 1 || findings[0].Category != workflow.CategoryNonTargetClass || findings[0].Message != "unexpected classes dog" {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestFindClasses(t *testing.T) {
	summary, err := workflow.FindClasses(context.Background(), workflow.NewJob(nil), inventoryTree(t), workflow.Geometry{}, []string{"person", "dog"})
	if err != nil {
		t.Fatalf("FindClasses: %v", err)
	}
	want := []string{"20250601_a/aps/1", "20250601_b/aps/1"}
	if !reflect.DeepEqual(summary.Keys, want) {
		t.Fatalf("keys = %v, want %v", summary.Keys, want)
	}
	if _, err := workflow.FindClasses(context.Background(), workflow.NewJob(nil), inventoryTree(t), workflow.Geometry{}, nil); err == nil {
		t.Fatal("expected an error without classes")
	}
}

func TestSampleClassesIsReproducible(t *testing.T) {
	dir := inventoryTree(t)
	first, err := workflow.SampleClasses(context.Background(), workflow.NewJob(nil), dir, workflow.Geometry{}, 1, 7)
	if err != nil {
		t.Fatalf("SampleClasses: %v", err)
	}
	second, err := workflow.SampleClasses(context.Background(), workflow.NewJob(nil), dir, workflow.Geometry{}, 1, 7)
	if err != nil {
		t.Fatalf("SampleClasses: %v", err)
	}
	if first.Classes != 3 || !reflect.DeepEqual(first.Samples, second.Samples) {
		t.Fatalf("samples differ: %v vs %v", first.Samples, second.Samples)
	}
	if got := first.Samples["dog"]; len(got) != 1 || got[0] != "20250601_b/aps/1" {
		t.Fatalf("dog sample = %v", got)
	}
}
