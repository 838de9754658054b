package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
telegram:
  token: "123:abc"
admin:
  token: "hunter2"
directory:
  url: "https://directory.example.org/"
  token: "dir-token"
database:
  host: localhost
  port: "5432"
  user: clicbot
  name: clicbot
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Fatalf("sslmode = %q, want disable default", cfg.Database.SSLMode)
	}
	if cfg.Database.MaxConnections != 8 {
		t.Fatalf("max connections = %d, want 8 default", cfg.Database.MaxConnections)
	}
	if strings.HasSuffix(cfg.Directory.URL, "/") {
		t.Fatalf("directory url should have trailing slash trimmed: %q", cfg.Directory.URL)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no telegram token", strings.Replace(validYAML, `token: "123:abc"`, `token: ""`, 1)},
		{"no admin token", strings.Replace(validYAML, `token: "hunter2"`, `token: ""`, 1)},
		{"no directory url", strings.Replace(validYAML, `url: "https://directory.example.org/"`, `url: ""`, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Admin.Token = "secret"
	cfg.Directory.URL = "https://directory.example.org"
	cfg.Telegram.RunMode = "webhook"
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook mode without url/listen/port should fail validation")
	}

	cfg.Webhook.URL = "https://bot.example.org/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}
