package main

import (
	"fmt"
	"io"

	qrcode "github.com/skip2/go-qrcode"
)

// DisplayDashboardQR prints the dashboard URL as a terminal QR code with a
// plain-text fallback, so a phone pointed at the console connects in one
// scan.
func DisplayDashboardQR(w io.Writer, dashboardURL string) {
	// Medium error correction keeps the code small enough for a terminal.
	qr, err := qrcode.New(dashboardURL, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(w, "Error generating QR code: %v\n", err)
		fmt.Fprintf(w, "Dashboard URL: %s\n", dashboardURL)
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "         SCAN TO OPEN DASHBOARD")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")

	// ToSmallString(false) produces compact half-block output without a
	// border.
	fmt.Fprint(w, qr.ToSmallString(false))

	fmt.Fprintln(w, "-------------------------------------------")
	fmt.Fprintf(w, "  URL: %s\n", dashboardURL)
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")
}
