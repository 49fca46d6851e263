package config

// DefaultHost binds to all interfaces so wall displays on the LAN can reach
// the dashboard.
const DefaultHost = "0.0.0.0"

// DefaultPort is the default TCP port for the HTTP/WebSocket server.
const DefaultPort = 8080

// DefaultCacheDir is the default artwork proxy cache directory.
const DefaultCacheDir = "image_proxy"

// DefaultCacheTTLHours is the last-access eviction window for cached artwork.
const DefaultCacheTTLHours = 8

// Default returns a Config populated with default values.
// Load applies the config file on top of these, and CLI flags on top of that.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		HTTP:          true,
		CacheDir:      DefaultCacheDir,
		CacheTTLHours: DefaultCacheTTLHours,
		Devices:       map[string]string{},
	}
}
