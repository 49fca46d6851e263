// Package config provides TOML configuration file loading for the dashboard host.
// The configuration file lives at ~/.nowspinning/config.toml by default, but can
// be overridden with the --config flag. CLI flags always take precedence over
// file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the host configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// Host is the address to bind the listener to.
	// Default: 0.0.0.0
	Host string `toml:"host"`

	// Port is the TCP port for the HTTP/WebSocket server.
	// Default: 8080
	Port int `toml:"port"`

	// HTTP selects plaintext transport. When false the server requires
	// a TLS certificate and key and serves https/wss only.
	// Default: true
	HTTP bool `toml:"http"`

	// TLSCert is the path to the TLS certificate file.
	// Required when HTTP is false.
	TLSCert string `toml:"tls_cert"`

	// TLSKey is the path to the TLS private key file.
	// Required when HTTP is false.
	TLSKey string `toml:"tls_key"`

	// Verbose enables debug-level logging.
	// Default: false
	Verbose bool `toml:"verbose"`

	// PublicHost is the hostname or IP browsers should use to reach this
	// server. It is baked into rewritten artwork proxy URLs. If empty,
	// the preferred outbound IP is detected at startup.
	PublicHost string `toml:"public_host"`

	// CacheDir is the directory for the artwork proxy cache.
	// Default: ./image_proxy
	CacheDir string `toml:"cache_dir"`

	// CacheTTLHours is the last-access eviction window for cached artwork.
	// Default: 8
	CacheTTLHours int `toml:"cache_ttl_hours"`

	// MdnsEnabled enables mDNS/Bonjour advertisement of the dashboard,
	// allowing wall displays and phones to discover it without manual
	// IP entry. Default: false
	MdnsEnabled bool `toml:"mdns_enabled"`

	// QR displays the dashboard URL as a QR code at startup.
	// Default: false
	QR bool `toml:"qr"`

	// Devices maps speaker room names to their IP addresses, e.g.
	//
	//   [devices]
	//   "Living Room" = "192.168.1.40"
	//
	// The refresh action resolves its target speaker through this table.
	Devices map[string]string `toml:"devices"`
}

// DefaultConfigPath returns the default config file location:
// ~/.nowspinning/config.toml. Returns an error only if the user's home
// directory cannot be determined.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".nowspinning", "config.toml"), nil
}

// Load reads a TOML config file from the given path and returns a Config.
//
// Behavior:
//   - If path is empty, attempts to load from the default location
//     (~/.nowspinning/config.toml). Returns a default Config without error
//     if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		// No explicit path: try default location, but don't error if missing.
		// This allows the host to start without any config file.
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			return cfg, nil
		}
		path = defaultPath
	} else {
		// Explicit path provided: error if file doesn't exist.
		// If the user names a config file, it should exist.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	// Parse the TOML file. Any parse error is fatal since the user expects
	// the config to be applied.
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}
