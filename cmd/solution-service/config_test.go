package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigParsesDurationStrings(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  readTimeout: 15s
  writeTimeout: 20s
  shutdownTimeout: 5s
mysql:
  dsn: "user:pass@tcp(localhost:3306)/skillforge?parseTime=true"
  connMaxLifetime: 30m
redis:
  addr: "localhost:6379"
  readTimeout: 3s
auth:
  jwtSecret: "secret"
events:
  enabled: true
  kafka:
    brokers: ["localhost:9092"]
    batchTimeout: 100ms
archive:
  enabled: true
  minio:
    endpoint: "localhost:9000"
    bucket: "archive"
    presignTTL: 15m
submit:
  limit: 5
  window: 1m
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if got := cfg.Server.ReadTimeout.Std(); got != 15*time.Second {
		t.Errorf("server.readTimeout = %v, want 15s", got)
	}
	if got := cfg.Server.WriteTimeout.Std(); got != 20*time.Second {
		t.Errorf("server.writeTimeout = %v, want 20s", got)
	}
	if got := cfg.MySQL.ConnMaxLifetime.Std(); got != 30*time.Minute {
		t.Errorf("mysql.connMaxLifetime = %v, want 30m", got)
	}
	if got := cfg.Redis.ReadTimeout.Std(); got != 3*time.Second {
		t.Errorf("redis.readTimeout = %v, want 3s", got)
	}
	if got := cfg.Events.Kafka.BatchTimeout.Std(); got != 100*time.Millisecond {
		t.Errorf("events.kafka.batchTimeout = %v, want 100ms", got)
	}
	if got := cfg.Archive.MinIO.PresignTTL.Std(); got != 15*time.Minute {
		t.Errorf("archive.minio.presignTTL = %v, want 15m", got)
	}
	if got := cfg.Submit.Window.Std(); got != time.Minute {
		t.Errorf("submit.window = %v, want 1m", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
mysql:
  dsn: "user:pass@tcp(localhost:3306)/skillforge"
auth:
  jwtSecret: "secret"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q, want :8080", cfg.Server.Addr)
	}
	if got := cfg.Server.ReadTimeout.Std(); got != 15*time.Second {
		t.Errorf("server.readTimeout = %v, want default 15s", got)
	}
	if got := cfg.Submit.Window.Std(); got != time.Minute {
		t.Errorf("submit.window = %v, want default 1m", got)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  readTimeout: soon
mysql:
  dsn: "user:pass@tcp(localhost:3306)/skillforge"
auth:
  jwtSecret: "secret"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid duration string")
	}
}

func TestLoadConfigRequiresDSNAndSecret(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwtSecret: "secret"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing mysql.dsn")
	}

	path = writeConfig(t, `
mysql:
  dsn: "user:pass@tcp(localhost:3306)/skillforge"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing auth.jwtSecret")
	}
}
