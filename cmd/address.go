// Package main provides CLI commands for the nowspinning dashboard.
// This file centralizes public address detection: artwork proxy URLs must
// carry an address browsers on the LAN can actually reach.
package main

import (
	"net"
)

// GetPreferredOutboundIP returns the machine's preferred outbound IPv4
// address. It works by dialing a UDP connection to a public IP (no actual
// traffic sent) and checking which local address was selected by the OS
// routing table. Returns empty string if detection fails.
func GetPreferredOutboundIP() string {
	// Dial UDP to a public IP. No actual packets are sent for UDP;
	// this just lets us query which local interface the OS would use.
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
