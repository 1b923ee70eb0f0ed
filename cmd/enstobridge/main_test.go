package main

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("ENSTO_CONFIG")
	defer os.Setenv("ENSTO_CONFIG", originalEnv)

	os.Setenv("ENSTO_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestGetConfigPath verifies the environment override.
func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("ENSTO_CONFIG")
	defer os.Setenv("ENSTO_CONFIG", originalEnv)

	os.Unsetenv("ENSTO_CONFIG")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("ENSTO_CONFIG", "/etc/ensto/config.yaml")
	if got := getConfigPath(); got != "/etc/ensto/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}
