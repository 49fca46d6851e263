package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoad_AllFields verifies that all config fields are parsed correctly from TOML.
func TestLoad_AllFields(t *testing.T) {
	content := `
host = "127.0.0.1"
port = 9090
http = true
tls_cert = "/path/to/cert.crt"
tls_key = "/path/to/key.key"
verbose = true
public_host = "192.168.1.10"
cache_dir = "/var/cache/nowspinning"
cache_ttl_hours = 4
mdns_enabled = true
qr = true

[devices]
"Living Room" = "192.168.1.40"
Kitchen = "192.168.1.41"
`
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want %q", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want %d", cfg.Port, 9090)
	}
	if !cfg.HTTP {
		t.Error("HTTP = false, want true")
	}
	if cfg.TLSCert != "/path/to/cert.crt" {
		t.Errorf("TLSCert = %q, want %q", cfg.TLSCert, "/path/to/cert.crt")
	}
	if cfg.TLSKey != "/path/to/key.key" {
		t.Errorf("TLSKey = %q, want %q", cfg.TLSKey, "/path/to/key.key")
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.PublicHost != "192.168.1.10" {
		t.Errorf("PublicHost = %q, want %q", cfg.PublicHost, "192.168.1.10")
	}
	if cfg.CacheDir != "/var/cache/nowspinning" {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, "/var/cache/nowspinning")
	}
	if cfg.CacheTTLHours != 4 {
		t.Errorf("CacheTTLHours = %d, want %d", cfg.CacheTTLHours, 4)
	}
	if !cfg.MdnsEnabled {
		t.Error("MdnsEnabled = false, want true")
	}
	if !cfg.QR {
		t.Error("QR = false, want true")
	}
	if got := cfg.Devices["Living Room"]; got != "192.168.1.40" {
		t.Errorf(`Devices["Living Room"] = %q, want %q`, got, "192.168.1.40")
	}
	if got := cfg.Devices["Kitchen"]; got != "192.168.1.41" {
		t.Errorf(`Devices["Kitchen"] = %q, want %q`, got, "192.168.1.41")
	}
}

// TestLoad_Defaults verifies that an empty file keeps default values.
func TestLoad_Defaults(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte(""), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want default %q", cfg.Host, DefaultHost)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
	if !cfg.HTTP {
		t.Error("HTTP = false, want default true")
	}
	if cfg.CacheDir != DefaultCacheDir {
		t.Errorf("CacheDir = %q, want default %q", cfg.CacheDir, DefaultCacheDir)
	}
	if cfg.CacheTTLHours != DefaultCacheTTLHours {
		t.Errorf("CacheTTLHours = %d, want default %d", cfg.CacheTTLHours, DefaultCacheTTLHours)
	}
}

// TestLoad_PartialOverride verifies that set fields override defaults and
// unset fields keep them.
func TestLoad_PartialOverride(t *testing.T) {
	content := `
port = 9000
`
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want %d", cfg.Port, 9000)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want default %q", cfg.Host, DefaultHost)
	}
}

// TestLoad_ExplicitPathMissing verifies that naming a nonexistent config
// file is an error.
func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("Load() with missing explicit path should return an error")
	}
}

// TestLoad_ParseError verifies that invalid TOML is an error.
func TestLoad_ParseError(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(tmpFile, []byte("port = {"), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	if _, err := Load(tmpFile); err == nil {
		t.Fatal("Load() with invalid TOML should return an error")
	}
}
