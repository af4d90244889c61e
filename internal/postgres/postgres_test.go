package postgres

import (
	"strings"
	"testing"
)

func TestConfig_Setup(t *testing.T) {
	cfg := (&Config{Port: "not-a-port", Password: "secret"}).Setup()

	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want localhost", cfg.Host)
	}
	if cfg.Port != "5432" {
		t.Errorf("Port = %q, want 5432", cfg.Port)
	}
	if cfg.DBName != "market_sync" {
		t.Errorf("DBName = %q, want market_sync", cfg.DBName)
	}
	if cfg.Password != "secret" {
		t.Errorf("Password overwritten: %q", cfg.Password)
	}
}

func TestConfig_StringHidesPassword(t *testing.T) {
	cfg := (&Config{Password: "hunter2"}).Setup()

	if strings.Contains(cfg.String(), "hunter2") {
		t.Errorf("String() leaks password: %s", cfg.String())
	}
	if !strings.Contains(cfg.DSN(), "password=hunter2") {
		t.Errorf("DSN() = %s, want password", cfg.DSN())
	}
}
