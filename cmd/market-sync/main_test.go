package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_StorageErrorFlushesLog(t *testing.T) {
	dir := t.TempDir()

	// A regular file where the sqlite parent directory should be.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "logs", "market-sync.log")

	cfgPath := filepath.Join(dir, "market-sync.yaml")
	cfg := "storage:\n  driver: sqlite\n  path: " + filepath.Join(blocker, "market-sync.db") +
		"\nlog:\n  level: info\n  output_file: " + logPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(_cfgFilePathEnv, cfgPath)
	t.Setenv("MARKET_SYNC_PORT", "")
	t.Setenv("MARKET_SYNC_LOG_LEVEL", "")

	err := run()
	if err == nil {
		t.Fatal("run() = nil, want storage error")
	}
	if !strings.Contains(err.Error(), "can't init sqlite storage") {
		t.Errorf("err = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "can't init sqlite storage") {
		t.Errorf("storage error not in log file: %s", data)
	}
}
