package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/nowspinning/host/internal/config"
	"github.com/nowspinning/host/internal/imagecache"
	"github.com/nowspinning/host/internal/mdns"
	"github.com/nowspinning/host/internal/render"
	"github.com/nowspinning/host/internal/server"
	"github.com/nowspinning/host/internal/sonos"
)

const serveUsage = `Usage: nowspinning serve [options]

Options:
  --config <path>       Config file (default: ~/.nowspinning/config.toml)
  --host <addr>         Listen address (default: 0.0.0.0)
  --port <port>         Listen port (default: 8080)
  --http                Serve plaintext HTTP instead of HTTPS
  --cert <path>         TLS certificate (required without --http)
  --key <path>          TLS private key (required without --http)
  --public-host <host>  Address browsers use to reach this server
  --cache-dir <path>    Artwork cache directory (default: image_proxy)
  --mdns                Advertise the dashboard via mDNS
  --qr                  Print the dashboard URL as a QR code
  --verbose             Debug logging
`

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	host := fs.String("host", config.DefaultHost, "Listen address")
	port := fs.Int("port", config.DefaultPort, "Listen port")
	plainHTTP := fs.Bool("http", false, "Serve plaintext HTTP instead of HTTPS")
	cert := fs.String("cert", "", "TLS certificate path")
	key := fs.String("key", "", "TLS private key path")
	publicHost := fs.String("public-host", "", "Address browsers use to reach this server")
	cacheDir := fs.String("cache-dir", config.DefaultCacheDir, "Artwork cache directory")
	mdnsEnabled := fs.Bool("mdns", false, "Advertise the dashboard via mDNS")
	qr := fs.Bool("qr", false, "Print the dashboard URL as a QR code")
	verbose := fs.Bool("verbose", false, "Debug logging")
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, serveUsage)
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// CLI flags take precedence over config file values, but only when
	// explicitly set; otherwise the config (or its defaults) wins.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "http":
			cfg.HTTP = *plainHTTP
		case "cert":
			cfg.TLSCert = *cert
		case "key":
			cfg.TLSKey = *key
		case "public-host":
			cfg.PublicHost = *publicHost
		case "cache-dir":
			cfg.CacheDir = *cacheDir
		case "mdns":
			cfg.MdnsEnabled = *mdnsEnabled
		case "qr":
			cfg.QR = *qr
		case "verbose":
			cfg.Verbose = *verbose
		}
	})

	if !cfg.HTTP && (cfg.TLSCert == "" || cfg.TLSKey == "") {
		fmt.Fprintln(stderr, "Error: HTTPS requires --cert and --key (or use --http)")
		return 1
	}

	if len(cfg.Devices) == 0 {
		fmt.Fprintln(stderr, "Warning: no speakers configured; add a [devices] table to the config file")
	}

	scheme := "https"
	if cfg.HTTP {
		scheme = "http"
	}

	// The public host goes into rewritten artwork URLs, so it must be an
	// address LAN browsers can reach - not 0.0.0.0.
	public := cfg.PublicHost
	if public == "" {
		public = GetPreferredOutboundIP()
	}
	if public == "" {
		public = "127.0.0.1"
		fmt.Fprintln(stderr, "Warning: could not detect outbound IP; artwork URLs will use 127.0.0.1")
	}
	externalURL := fmt.Sprintf("%s://%s:%d", scheme, public, cfg.Port)

	renderer, err := render.New()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cache := imagecache.New(cfg.CacheDir, time.Duration(cfg.CacheTTLHours)*time.Hour)
	cache.SetVerbose(cfg.Verbose)

	srv := server.New(server.Config{
		Addr:        net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		ExternalURL: externalURL,
		Metadata:    sonos.NewUPnPClient(cfg.Devices),
		Cache:       cache,
		Renderer:    renderer,
		Verbose:     cfg.Verbose,
	})

	var errCh <-chan error
	if cfg.HTTP {
		errCh = srv.StartAsync()
	} else {
		errCh = srv.StartAsyncTLS(server.TLSConfig{
			CertPath: cfg.TLSCert,
			KeyPath:  cfg.TLSKey,
		})
	}

	// Fail fast if the port is in use or the certificate pair is unusable.
	if err := <-errCh; err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Dashboard: %s\n", externalURL)
	for _, name := range sortedDeviceNames(cfg.Devices) {
		fmt.Fprintf(stdout, "Speaker:   %s (%s)\n", name, cfg.Devices[name])
	}

	if cfg.QR {
		DisplayDashboardQR(stdout, externalURL)
	}

	// Start mDNS advertisement if enabled, so displays on the LAN can
	// find the dashboard without typing an IP.
	var advertiser *mdns.Advertiser
	if cfg.MdnsEnabled {
		advertiser = mdns.NewAdvertiser(mdns.Config{
			Port:   cfg.Port,
			Scheme: scheme,
		})
		if err := advertiser.Start(); err != nil {
			fmt.Fprintf(stderr, "Warning: mDNS advertisement failed: %v\n", err)
			advertiser = nil
		} else {
			fmt.Fprintf(stdout, "mDNS:      advertising %s\n", mdns.ServiceType)
		}
	}

	// Block until interrupted, then shut down cleanly: close every live
	// session exactly once and stop the listener.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Fprintf(stdout, "\nReceived %s, shutting down...\n", sig)

	if advertiser != nil {
		advertiser.Stop()
	}
	if err := srv.Stop(); err != nil {
		fmt.Fprintf(stderr, "Warning: shutdown error: %v\n", err)
	}

	return 0
}

// sortedDeviceNames returns speaker names in stable order for display.
func sortedDeviceNames(devices map[string]string) []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
