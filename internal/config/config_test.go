package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: \"9090\"\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" || cfg.Database.Path != "data/escrow.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Custody.Driver != "memory" || cfg.Custody.ConfirmTimeout != 2*time.Minute {
		t.Errorf("custody = %+v", cfg.Custody)
	}
	if cfg.Ledger.AllowEarlyDonations {
		t.Error("early donations enabled by default")
	}
	if cfg.Task.Interval != 60 || cfg.Task.Workers != 8 {
		t.Errorf("task = %+v", cfg.Task)
	}
	if cfg.Events.RedisKey != "escrow:events" {
		t.Errorf("redis key = %q", cfg.Events.RedisKey)
	}
}

func TestLoadFileValues(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
database:
  driver: postgres
  host: db
  port: 5433
  user: escrow
  password: secret
  dbname: ledger
ledger:
  allow_early_donations: true
custody:
  driver: erc20
  rpc_url: http://localhost:8545
  token_address: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
  private_key: b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291
  gas_limit: 90000
task:
  interval: 30
  auto_refund: true
  workers: 0
log:
  level: debug
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if want := "host=db port=5433 user=escrow password=secret dbname=ledger sslmode=disable"; cfg.Database.DSN() != want {
		t.Errorf("DSN = %q, want %q", cfg.Database.DSN(), want)
	}
	if !cfg.Ledger.AllowEarlyDonations {
		t.Error("allow_early_donations not read")
	}
	if cfg.Custody.Driver != "erc20" || cfg.Custody.GasLimit != 90000 {
		t.Errorf("custody = %+v", cfg.Custody)
	}
	if cfg.Task.Interval != 30 || !cfg.Task.AutoRefund || cfg.Task.Workers != 1 {
		t.Errorf("task = %+v", cfg.Task)
	}
	if cfg.Log.GetLevel() != "debug" || cfg.Log.GetOutput() != "stdout" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("ESCROW_SERVER_PORT", "7070")
	t.Setenv("ESCROW_LEDGER_ALLOW_EARLY_DONATIONS", "true")

	cfg, err := LoadFile(writeConfig(t, "server:\n  port: \"9090\"\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want 7070", cfg.Server.Port)
	}
	if !cfg.Ledger.AllowEarlyDonations {
		t.Error("env override of allow_early_donations ignored")
	}
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown database", "database:\n  driver: mysql\n"},
		{"unknown custody", "custody:\n  driver: vault\n"},
		{"erc20 without token", "custody:\n  driver: erc20\n  rpc_url: http://localhost:8545\n"},
		{"zero interval", "task:\n  interval: 0\n"},
		{"memory custody with sqlite", "database:\n  driver: sqlite\n"},
		{"memory custody with postgres", "database:\n  driver: postgres\ncustody:\n  driver: memory\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFileMemoryFaucet(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "custody:\n  faucet:\n    alice: 100\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.Driver != "memory" || cfg.Custody.Driver != "memory" {
		t.Errorf("drivers = %s/%s, want memory/memory", cfg.Database.Driver, cfg.Custody.Driver)
	}
	if cfg.Custody.Faucet["alice"] != 100 {
		t.Errorf("faucet = %v", cfg.Custody.Faucet)
	}
}
