package sonos

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/nowspinning/host/internal/errors"
)

// xmlEscape escapes text for embedding in an XML element, the way speakers
// embed DIDL-Lite documents inside SOAP response fields.
func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// soapResponse wraps an action response element in a SOAP envelope.
func soapResponse(action, fields string) string {
	return fmt.Sprintf(
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" `+
			`s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`+
			`<s:Body><u:%sResponse xmlns:u="%s">%s</u:%sResponse></s:Body>`+
			`</s:Envelope>`,
		action, avTransportURN, fields, action)
}

const testDIDL = `<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/" ` +
	`xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/" ` +
	`xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">` +
	`<item id="-1" parentID="-1" restricted="true">` +
	`<dc:title>Harvest Moon</dc:title>` +
	`<dc:creator>Neil Young</dc:creator>` +
	`<upnp:album>Harvest Moon</upnp:album>` +
	`<upnp:albumArtURI>/getaa?s=1&amp;u=track.jpg</upnp:albumArtURI>` +
	`</item></DIDL-Lite>`

// newFakeSpeaker starts a SOAP endpoint that answers AVTransport actions
// from the given action -> response-fields table, and returns a client with
// the room "Kitchen" pointed at it.
func newFakeSpeaker(t *testing.T, responses map[string]string) *UPnPClient {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != avTransportPath {
			t.Errorf("request path = %q, want %q", r.URL.Path, avTransportPath)
			http.NotFound(w, r)
			return
		}
		soapAction := r.Header.Get("SOAPACTION")
		for action, fields := range responses {
			if soapAction == fmt.Sprintf(`"%s#%s"`, avTransportURN, action) {
				w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
				fmt.Fprint(w, soapResponse(action, fields))
				return
			}
		}
		t.Errorf("unexpected SOAPACTION %q", soapAction)
		http.Error(w, "unknown action", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	return NewUPnPClient(map[string]string{
		"Kitchen": strings.TrimPrefix(ts.URL, "http://"),
	})
}

func TestGetTransportInfo(t *testing.T) {
	c := newFakeSpeaker(t, map[string]string{
		"GetTransportInfo": `<CurrentTransportState>PLAYING</CurrentTransportState>` +
			`<CurrentTransportStatus>OK</CurrentTransportStatus><CurrentSpeed>1</CurrentSpeed>`,
	})

	info, err := c.GetTransportInfo(context.Background(), "Kitchen")
	if err != nil {
		t.Fatalf("GetTransportInfo() error: %v", err)
	}
	if info.State != "PLAYING" {
		t.Errorf("State = %q, want PLAYING", info.State)
	}
}

func TestGetTrackInfo(t *testing.T) {
	c := newFakeSpeaker(t, map[string]string{
		"GetPositionInfo": `<Track>7</Track><TrackMetaData>` + xmlEscape(testDIDL) + `</TrackMetaData>`,
	})

	track, err := c.GetTrackInfo(context.Background(), "Kitchen")
	if err != nil {
		t.Fatalf("GetTrackInfo() error: %v", err)
	}
	if track.Title != "Harvest Moon" {
		t.Errorf("Title = %q, want Harvest Moon", track.Title)
	}
	if track.Artist != "Neil Young" {
		t.Errorf("Artist = %q, want Neil Young", track.Artist)
	}
	if track.Album != "Harvest Moon" {
		t.Errorf("Album = %q, want Harvest Moon", track.Album)
	}
	// The DIDL art URI is device-relative; it must come back resolved against
	// the speaker's own base URL.
	if !strings.HasPrefix(track.ArtworkURL, "http://") || !strings.HasSuffix(track.ArtworkURL, "/getaa?s=1&u=track.jpg") {
		t.Errorf("ArtworkURL = %q, want speaker-absolute getaa URL", track.ArtworkURL)
	}
}

// Stopped speakers report NOT_IMPLEMENTED metadata; that is a zero result,
// not an error.
func TestGetTrackInfoNotImplemented(t *testing.T) {
	c := newFakeSpeaker(t, map[string]string{
		"GetPositionInfo": `<Track>0</Track><TrackMetaData>NOT_IMPLEMENTED</TrackMetaData>`,
	})

	track, err := c.GetTrackInfo(context.Background(), "Kitchen")
	if err != nil {
		t.Fatalf("GetTrackInfo() error: %v", err)
	}
	if track != (TrackInfo{}) {
		t.Errorf("track = %+v, want zero value", track)
	}
}

func TestGetMediaInfoChannel(t *testing.T) {
	radioDIDL := `<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/" ` +
		`xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">` +
		`<item id="-1" parentID="-1"><dc:title>WNYC 93.9 FM</dc:title></item></DIDL-Lite>`
	c := newFakeSpeaker(t, map[string]string{
		"GetMediaInfo": `<NrTracks>1</NrTracks><CurrentURIMetaData>` + xmlEscape(radioDIDL) + `</CurrentURIMetaData>`,
	})

	media, err := c.GetMediaInfo(context.Background(), "Kitchen")
	if err != nil {
		t.Fatalf("GetMediaInfo() error: %v", err)
	}
	if media.Channel != "WNYC 93.9 FM" {
		t.Errorf("Channel = %q, want WNYC 93.9 FM", media.Channel)
	}
}

func TestUnknownDevice(t *testing.T) {
	c := NewUPnPClient(map[string]string{"Kitchen": "192.0.2.1"})

	_, err := c.GetTransportInfo(context.Background(), "Garage")
	if err == nil {
		t.Fatal("GetTransportInfo() accepted an unconfigured room")
	}
	if !apperrors.IsCode(err, apperrors.CodeDeviceUnknown) {
		t.Errorf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeDeviceUnknown)
	}
}

func TestDeviceUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	c := NewUPnPClient(map[string]string{"Kitchen": addr})
	_, err := c.GetTransportInfo(context.Background(), "Kitchen")
	if err == nil {
		t.Fatal("GetTransportInfo() succeeded against a dead speaker")
	}
	if !apperrors.IsCode(err, apperrors.CodeDeviceUnavailable) {
		t.Errorf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeDeviceUnavailable)
	}
}

func TestUnparseableResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not soap")
	}))
	t.Cleanup(ts.Close)

	c := NewUPnPClient(map[string]string{
		"Kitchen": strings.TrimPrefix(ts.URL, "http://"),
	})
	_, err := c.GetTransportInfo(context.Background(), "Kitchen")
	if err == nil {
		t.Fatal("GetTransportInfo() accepted a non-SOAP response")
	}
	if !apperrors.IsCode(err, apperrors.CodeDeviceBadResponse) {
		t.Errorf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeDeviceBadResponse)
	}
}

func TestParseDIDLTolerant(t *testing.T) {
	for _, meta := range []string{"", "NOT_IMPLEMENTED"} {
		item, err := parseDIDL(meta)
		if err != nil {
			t.Errorf("parseDIDL(%q) error: %v", meta, err)
		}
		if item != (didlItem{}) {
			t.Errorf("parseDIDL(%q) = %+v, want zero value", meta, item)
		}
	}

	if _, err := parseDIDL("<unclosed"); err == nil {
		t.Error("parseDIDL accepted malformed XML")
	}
}
