package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/nowspinning/host/internal/mdns"
)

const discoverUsage = `Usage: nowspinning discover [options]

Searches the local network for nowspinning dashboards advertised via mDNS.

Options:
  --timeout <seconds>  How long to browse (default: 3)
`

func runDiscover(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	timeout := fs.Int("timeout", 3, "How long to browse, in seconds")
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, discoverUsage)
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	fmt.Fprintf(stdout, "Browsing for %s hosts...\n", mdns.ServiceType)
	hosts, err := mdns.Discover(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if len(hosts) == 0 {
		fmt.Fprintln(stdout, "No dashboards found.")
		return 0
	}

	for _, h := range hosts {
		scheme := h.Scheme
		if scheme == "" {
			scheme = "http"
		}
		fmt.Fprintf(stdout, "  %s  %s://%s:%d\n", h.Name, scheme, h.Host, h.Port)
	}
	return 0
}
