package render

import (
	"strings"
	"testing"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestPageReferencesAssets(t *testing.T) {
	page, err := newRenderer(t).Page()
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	for _, want := range []string{"/static/js/widget.js", "/static/css/widget.css"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing asset reference %q", want)
		}
	}
}

func TestWidgetFullContext(t *testing.T) {
	html, err := newRenderer(t).Widget(WidgetContext{
		Transport: "PLAYING",
		Title:     "Harvest Moon",
		Artist:    "Neil Young",
		Album:     "Harvest Moon",
		ImgSrc:    "http://host/image_proxy?url=abc",
	})
	if err != nil {
		t.Fatalf("Widget() error: %v", err)
	}
	for _, want := range []string{
		"PLAYING",
		"Harvest Moon",
		"Neil Young",
		`src="http://host/image_proxy?url=abc"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("widget missing %q: %s", want, html)
		}
	}
}

// Radio refreshes often have only a channel name and transport state; the
// widget must render without artwork, artist, or album.
func TestWidgetEmptyOptionalFields(t *testing.T) {
	html, err := newRenderer(t).Widget(WidgetContext{
		Transport: "PLAYING",
		Title:     "WNYC 93.9 FM",
	})
	if err != nil {
		t.Fatalf("Widget() error: %v", err)
	}
	if !strings.Contains(html, "WNYC 93.9 FM") {
		t.Errorf("widget missing title: %s", html)
	}
	if strings.Contains(html, "<img") {
		t.Errorf("widget renders artwork with empty ImgSrc: %s", html)
	}
	if strings.Contains(html, "now-playing__artist") || strings.Contains(html, "now-playing__album") {
		t.Errorf("widget renders empty artist/album: %s", html)
	}
}

// Track metadata comes from the network; it must be escaped, never injected
// as markup.
func TestWidgetEscapesMetadata(t *testing.T) {
	html, err := newRenderer(t).Widget(WidgetContext{
		Transport: "PLAYING",
		Title:     `<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("Widget() error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("widget did not escape title: %s", html)
	}
}
