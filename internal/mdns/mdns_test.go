package mdns

import "testing"

// Multicast is unavailable in most CI sandboxes, so these tests only cover
// lifecycle safety, not actual network advertisement.

func TestAdvertiserNotRunningInitially(t *testing.T) {
	a := NewAdvertiser(Config{Port: 8080, Scheme: "http"})
	if a.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
}

func TestStopWithoutStart(t *testing.T) {
	a := NewAdvertiser(Config{Port: 8080})
	a.Stop()
	a.Stop() // repeated Stop must also be a no-op
	if a.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
