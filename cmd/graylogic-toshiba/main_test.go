package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-toshiba/internal/bridges/toshiba"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/config"
)

const testBroker = "127.0.0.1:1883"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// writeTestConfig writes a service config plus a one-unit bridge config and
// points GRAYLOGIC_CONFIG at it.
func writeTestConfig(t *testing.T, dbPath, bridgeConfig string) {
	t.Helper()
	dir := t.TempDir()

	if bridgeConfig == "" {
		bridgeConfig = filepath.Join(dir, "toshiba-bridge.yaml")
		writeFile(t, bridgeConfig, `
bridge:
  id: toshiba-test
  health_interval: 30
devices:
  - unique_id: unit-hall
    id: ac-1
    name: Hall
    state: "304316333100000014000000"
`)
	}

	configPath := filepath.Join(dir, "config.yaml")
	writeFile(t, configPath, `
site:
  id: test-site

database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "toshiba-test"
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

logging:
  level: warn
  format: text
  output: stderr

metrics:
  enabled: false

protocols:
  toshiba:
    enabled: true
    config_file: "`+bridgeConfig+`"
`)
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want loading config failure", err)
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	writeTestConfig(t, "", "")

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "database.path") {
		t.Fatalf("run() error = %v, want database.path validation failure", err)
	}
}

func TestRun_MissingBridgeConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, filepath.Join(dir, "toshiba.db"), filepath.Join(dir, "missing.yaml"))

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "loading Toshiba bridge config") {
		t.Fatalf("run() error = %v, want bridge config failure", err)
	}
}

// TestRun_StartupAndShutdown requires an MQTT broker at 127.0.0.1:1883.
func TestRun_StartupAndShutdown(t *testing.T) {
	conn, err := net.DialTimeout("tcp", testBroker, 500*time.Millisecond)
	if err != nil {
		t.Skipf("no MQTT broker at %s", testBroker)
	}
	conn.Close()

	writeTestConfig(t, filepath.Join(t.TempDir(), "toshiba.db"), "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/toshiba.yaml")
	if got := getConfigPath(); got != "/etc/graylogic/toshiba.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestBridgeWill(t *testing.T) {
	will, err := bridgeWill("toshiba-test")
	if err != nil {
		t.Fatalf("bridgeWill() error = %v", err)
	}
	if will.Topic != toshiba.HealthTopic() {
		t.Errorf("Topic = %q, want %q", will.Topic, toshiba.HealthTopic())
	}

	var msg toshiba.HealthMessage
	if err := json.Unmarshal(will.Payload, &msg); err != nil {
		t.Fatalf("unmarshal will: %v", err)
	}
	if msg.Status != toshiba.HealthOffline || msg.Bridge != "toshiba-test" {
		t.Errorf("will = %+v", msg)
	}
}

func TestMetricsServer(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    9108,
		Path:    "/metrics",
	}}

	reg := newMetricsRegistry()
	if err := toshiba.NewMetrics().Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	srv := newMetricsServer(cfg, reg)
	if srv.Addr != "127.0.0.1:9108" {
		t.Errorf("Addr = %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"go_goroutines", "graylogic_toshiba_telemetry_dropped_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /other status = %d, want 404", rec.Code)
	}
}
