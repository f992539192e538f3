package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const debugYAML = `
name: meme-test
port: 5050
debug: true
auth:
  secret_key: s3cret
market:
  starting_cash: 10
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(debugYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Name != "meme-test" || cfg.Port != 5050 {
		t.Errorf("file values not applied: %+v", cfg.MConfig)
	}
	if cfg.Storage.DBType != "sqlite" {
		t.Errorf("expected default sqlite storage, got %q", cfg.Storage.DBType)
	}
	if cfg.Market.StartingCash != 10 {
		t.Errorf("expected starting cash 10, got %v", cfg.Market.StartingCash)
	}
	if cfg.Market.RecentSize != 100 {
		t.Errorf("expected default recent size 100, got %d", cfg.Market.RecentSize)
	}
	if cfg.Events.RedisPrefix != "trades." {
		t.Errorf("expected default redis prefix, got %q", cfg.Events.RedisPrefix)
	}
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvSecretKey, "from-env")
	t.Setenv(EnvOAuthClientID, "id-env")

	cfg, err := Parse([]byte(debugYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Auth.SecretKey != "from-env" {
		t.Errorf("secret key not overridden: %q", cfg.Auth.SecretKey)
	}
	if cfg.Auth.ClientID != "id-env" {
		t.Errorf("client id not overridden: %q", cfg.Auth.ClientID)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"low port", "port: 80\ndebug: true\nauth: {secret_key: x}", "invalid server port"},
		{"bad db", "debug: true\nauth: {secret_key: x}\nstorage: {db_type: mongo}", "unsupported database type"},
		{"postgres without dsn", "debug: true\nauth: {secret_key: x}\nstorage: {db_type: postgres}", "connection string"},
		{"no secret", "debug: true", "secret key"},
		{"zero cash", "debug: true\nauth: {secret_key: x}\nmarket: {starting_cash: -1}", "starting cash"},
		{"prod without oauth", "auth: {secret_key: x}", "oauth client id"},
		{"kafka without topic", "debug: true\nauth: {secret_key: x}\nevents: {kafka_brokers: [k:9092], kafka_topic: ''}", "kafka topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(debugYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if loaded.Name != cfg.Name || loaded.Market.StartingCash != cfg.Market.StartingCash {
		t.Errorf("round trip mismatch: %+v vs %+v", loaded.MConfig, cfg.MConfig)
	}
}

func TestSaveKeepsEnvSecretsOut(t *testing.T) {
	t.Setenv(EnvSecretKey, "env-secret")
	t.Setenv(EnvOAuthClientSecret, "env-oauth")
	t.Setenv(EnvDBConnectionString, "postgres://u:env-pass@db/meme")

	cfg, err := Parse([]byte(debugYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, secret := range []string{"env-secret", "env-oauth", "env-pass"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("saved file leaks %q", secret)
		}
	}
	if !strings.Contains(string(data), "s3cret") {
		t.Error("file secret key must be written back")
	}
	if cfg.Auth.SecretKey != "env-secret" {
		t.Errorf("Save must not change the live config: %q", cfg.Auth.SecretKey)
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(os.TempDir(), "does-not-exist-meme.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
