package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"nowspinning"}, &stdout, &stderr); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Errorf("usage not printed: %s", stdout.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"nowspinning", "frobnicate"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "Unknown command: frobnicate") {
		t.Errorf("missing unknown-command message: %s", stdout.String())
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"nowspinning", "--version"}, &stdout, &stderr); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), Version) {
		t.Errorf("version not printed: %s", stdout.String())
	}
}

// HTTPS is the default; starting without certificate material and without
// --http must fail before any listener is opened.
func TestServeRequiresTLSMaterial(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runServe([]string{"--http=false"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "--cert") {
		t.Errorf("missing cert/key guidance: %s", stderr.String())
	}
}

func TestServeRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runServe([]string{"--bogus"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestSortedDeviceNames(t *testing.T) {
	got := sortedDeviceNames(map[string]string{
		"Office":      "192.168.1.12",
		"Bedroom":     "192.168.1.11",
		"Living Room": "192.168.1.10",
	})
	want := []string{"Bedroom", "Living Room", "Office"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sortedDeviceNames() = %v, want %v", got, want)
	}
}
