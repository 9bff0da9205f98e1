package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/helixdesk/realtime-go/realtime"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  url: wss://api.helixdesk.test/ws
  token: test-token
  ping_interval: 15s
metrics:
  enabled: true
  port: 9100
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.URL != "wss://api.helixdesk.test/ws" {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
	if cfg.Client.Token != "test-token" {
		t.Errorf("Client.Token = %q", cfg.Client.Token)
	}
	if cfg.Client.PingInterval != 15*time.Second {
		t.Errorf("Client.PingInterval = %v, want 15s", cfg.Client.PingInterval)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9100 {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_RT_TOKEN", "secret123")

	yaml := `
client:
  url: wss://api.helixdesk.test/ws
  token: ${TEST_RT_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.Token != "secret123" {
		t.Errorf("Client.Token = %q, want %q", cfg.Client.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
client:
  url: wss://api.helixdesk.test/ws
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Client.ReconnectDelay != realtime.DefaultReconnectDelay {
		t.Errorf("Client.ReconnectDelay = %v, want default %v", cfg.Client.ReconnectDelay, realtime.DefaultReconnectDelay)
	}
	if cfg.Client.PingInterval != realtime.DefaultPingInterval {
		t.Errorf("Client.PingInterval = %v, want default %v", cfg.Client.PingInterval, realtime.DefaultPingInterval)
	}
	if cfg.Client.MaxQueueSize != realtime.DefaultMaxQueueSize {
		t.Errorf("Client.MaxQueueSize = %d, want default %d", cfg.Client.MaxQueueSize, realtime.DefaultMaxQueueSize)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *ProbeConfig {
		cfg := &ProbeConfig{Client: ClientConfig{URL: "wss://api.helixdesk.test/ws"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ProbeConfig)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(c *ProbeConfig) {},
			wantErr: "",
		},
		{
			name:    "missing url",
			mutate:  func(c *ProbeConfig) { c.Client.URL = "" },
			wantErr: "client.url is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *ProbeConfig) { c.Log.Level = "verbose" },
			wantErr: `log.level must be debug, info, warn or error, got "verbose"`,
		},
		{
			name: "pong timeout too long",
			mutate: func(c *ProbeConfig) {
				c.Client.PingInterval = time.Second
				c.Client.PongTimeout = 2 * time.Second
			},
			wantErr: "client.pong_timeout must be shorter than client.ping_interval",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *ProbeConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &ProbeConfig{Client: ClientConfig{
		URL:                  "wss://api.helixdesk.test/ws",
		Token:                "tok",
		MaxReconnectAttempts: 7,
	}}
	cfg.applyDefaults()

	rc := cfg.ClientOptions()
	if rc.BaseURL != cfg.Client.URL || rc.Token != "tok" {
		t.Errorf("ClientOptions endpoint = %q/%q", rc.BaseURL, rc.Token)
	}
	if rc.MaxReconnectAttempts != 7 {
		t.Errorf("MaxReconnectAttempts = %d, want 7", rc.MaxReconnectAttempts)
	}
	if rc.PingInterval != realtime.DefaultPingInterval {
		t.Errorf("PingInterval = %v", rc.PingInterval)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
