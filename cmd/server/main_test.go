package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\ncapacity = 8\nwindow = \"3s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path, "--window", "1s"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Capacity != 8 {
		t.Fatalf("capacity = %d, want file value 8", cfg.Capacity)
	}
	if cfg.Window != time.Second {
		t.Fatalf("window = %v, want flag value 1s", cfg.Window)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cmd := newRootCmd()
	missing := filepath.Join(t.TempDir(), "none.toml")
	if err := cmd.ParseFlags([]string{"--config", missing, "--estimator", "replay"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if _, err := loadConfig(cmd); err == nil {
		t.Fatal("expected error for replay without a recording")
	}
}

func TestJointsCommandPrintsSchema(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"joints", "--config", filepath.Join(t.TempDir(), "none.toml")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "left_elbow") || !strings.Contains(out.String(), "positions (") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
