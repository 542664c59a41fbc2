package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`
log:
  mode: production
  level: error
checkpoint:
  backend: file
  describe_path: %q
  extract_path: %q
graph:
  backend: memory
metrics:
  textfile: %q
`, filepath.Join(dir, "corpus.json"), filepath.Join(dir, "relations.json"), filepath.Join(dir, "kgbuild.prom"))
	path := filepath.Join(dir, "kgbuild.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDryRunPipeline(t *testing.T) {
	for _, k := range []string{"KG_CHECKPOINT_BACKEND", "KG_GRAPH_BACKEND", "KG_METRICS_TEXTFILE"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	names := filepath.Join(dir, "aparc_region_names.txt")
	if err := os.WriteFile(names, []byte("precuneus\ncuneus\n"), 0o644); err != nil {
		t.Fatalf("write names: %v", err)
	}

	out, err := execute(t, "--config", cfg, "describe", "--dry-run", "--universe", names)
	if err != nil {
		t.Fatalf("describe: %v\n%s", err, out)
	}
	if !strings.Contains(out, "describe run") || !strings.Contains(out, "succeeded=2") {
		t.Fatalf("describe output=%q", out)
	}

	out, err = execute(t, "--config", cfg, "extract", "--dry-run")
	if err != nil || !strings.Contains(out, "succeeded=2") {
		t.Fatalf("extract: %v %q", err, out)
	}

	triples := filepath.Join(dir, "relation_triples.json")
	out, err = execute(t, "--config", cfg, "aggregate", "--out", triples)
	if err != nil || !strings.Contains(out, "wrote 0 triples") {
		t.Fatalf("aggregate: %v %q", err, out)
	}

	out, err = execute(t, "--config", cfg, "load", triples)
	if err != nil || !strings.Contains(out, "loaded 0 triples") {
		t.Fatalf("load: %v %q", err, out)
	}

	out, err = execute(t, "--config", cfg, "forget", "describe", "cuneus")
	if err != nil || !strings.Contains(out, "removed 1 of 1") {
		t.Fatalf("forget: %v %q", err, out)
	}

	if _, err := os.Stat(filepath.Join(dir, "kgbuild.prom")); err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
}

func TestMirrorCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	rel := filepath.Join(dir, "aparc-brodmann.json")
	if err := os.WriteFile(rel, []byte(`{"lingual":{"BA19":{"forward":"overlaps","backward":"overlapped by"}}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := execute(t, "--config", cfg, "mirror", "--out", filepath.Join(dir, "loc.json"), rel)
	if err != nil || !strings.Contains(out, "wrote 2 triples") {
		t.Fatalf("mirror: %v %q", err, out)
	}
}

func TestCommandErrorsSurface(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	if _, err := execute(t, "--config", cfg, "describe", "--dry-run", "--universe", filepath.Join(dir, "none_*.txt")); err == nil {
		t.Fatalf("expected error for unmatched universe")
	}
	if _, err := execute(t, "--config", cfg, "load"); err == nil {
		t.Fatalf("expected argument error")
	}
}
