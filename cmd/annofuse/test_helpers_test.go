package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annofuse/internal/config"
	"annofuse/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	if err := os.MkdirAll(cfg.Paths.DatasetDir, 0o755); err != nil {
		t.Fatalf("mkdir dataset: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "annofuse", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// outcomeJSON is the --json shape of a batch run.
type outcomeJSON struct {
	RunID    string          `json:"run_id"`
	Command  string          `json:"command"`
	Status   string          `json:"status"`
	Summary  json.RawMessage `json:"summary"`
	Findings []struct {
		CaptureID string `json:"capture_id"`
		Severity  string `json:"severity"`
		Category  string `json:"category"`
		Subject   string `json:"subject"`
	} `json:"findings"`
}

func decodeOutcome(t *testing.T, out string, summary any) outcomeJSON {
	t.Helper()
	var outcome outcomeJSON
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome: %v\n%s", err, out)
	}
	if summary != nil && len(outcome.Summary) > 0 {
		if err := json.Unmarshal(outcome.Summary, summary); err != nil {
			t.Fatalf("decode summary: %v\n%s", err, outcome.Summary)
		}
	}
	return outcome
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndataset_dir = %q\noutput_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n[ledger]\nenabled = true\npath = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.DatasetDir,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Ledger.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
