package sonos

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/nowspinning/host/internal/errors"
)

// Sonos speakers expose UPnP services on port 1400. The AVTransport service
// answers transport, position and media queries over SOAP.
const (
	devicePort      = 1400
	avTransportPath = "/MediaRenderer/AVTransport/Control"
	avTransportURN  = "urn:schemas-upnp-org:service:AVTransport:1"
	soapCallTimeout = 5 * time.Second
)

// UPnPClient implements Client against real speakers.
//
// Device resolution is table-driven: the [devices] section of the config maps
// room names to IP addresses. Full SSDP topology discovery is deliberately
// not implemented; the dashboard targets a known, named set of speakers.
type UPnPClient struct {
	// devices maps speaker room name -> IP address, optionally with an
	// explicit port.
	devices map[string]string

	// httpClient performs SOAP calls.
	httpClient *http.Client

	// search answers station directory lookups.
	search *TuneInSearcher
}

// NewUPnPClient creates a client for the given room-name -> IP table.
func NewUPnPClient(devices map[string]string) *UPnPClient {
	return &UPnPClient{
		devices:    devices,
		httpClient: &http.Client{Timeout: soapCallTimeout},
		search:     NewTuneInSearcher(),
	}
}

// baseURL resolves a device name to its HTTP base URL. Addresses without an
// explicit port get the standard Sonos device port.
func (c *UPnPClient) baseURL(device string) (string, error) {
	addr, ok := c.devices[device]
	if !ok {
		return "", apperrors.UnknownDevice(device)
	}
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, devicePort)
	}
	return "http://" + addr, nil
}

// soapEnvelope is the generic SOAP response wrapper. The action-specific
// response element is decoded in a second pass from InnerXML.
type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		InnerXML []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// call performs one SOAP action against the device's AVTransport service and
// decodes the response body into out.
func (c *UPnPClient) call(ctx context.Context, device, action string, out interface{}) error {
	base, err := c.baseURL(device)
	if err != nil {
		return err
	}

	// All queries used here take only the instance ID.
	body := fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8"?>`+
			`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" `+
			`s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`+
			`<s:Body><u:%s xmlns:u="%s"><InstanceID>0</InstanceID></u:%s></s:Body>`+
			`</s:Envelope>`,
		action, avTransportURN, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+avTransportPath, strings.NewReader(body))
	if err != nil {
		return apperrors.DeviceUnavailable(device, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, avTransportURN, action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.DeviceUnavailable(device, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.DeviceUnavailable(device, fmt.Errorf("soap %s returned status %d", action, resp.StatusCode))
	}

	var env soapEnvelope
	if err := xml.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.Wrap(apperrors.CodeDeviceBadResponse,
			fmt.Sprintf("decoding %s response", action), err)
	}
	if err := xml.Unmarshal(env.Body.InnerXML, out); err != nil {
		return apperrors.Wrap(apperrors.CodeDeviceBadResponse,
			fmt.Sprintf("decoding %s body", action), err)
	}
	return nil
}

// GetTransportInfo returns the speaker's playback state.
func (c *UPnPClient) GetTransportInfo(ctx context.Context, device string) (TransportInfo, error) {
	var resp struct {
		XMLName xml.Name `xml:"GetTransportInfoResponse"`
		State   string   `xml:"CurrentTransportState"`
	}
	if err := c.call(ctx, device, "GetTransportInfo", &resp); err != nil {
		return TransportInfo{}, err
	}
	return TransportInfo{State: resp.State}, nil
}

// didlItem is the track metadata element inside a DIDL-Lite document.
// Speakers return DIDL-Lite XML (escaped) in TrackMetaData and
// CurrentURIMetaData; the fields of interest are the Dublin Core title and
// creator plus the UPnP album and album art URI.
type didlItem struct {
	Title       string `xml:"item>title"`
	Creator     string `xml:"item>creator"`
	Album       string `xml:"item>album"`
	AlbumArtURI string `xml:"item>albumArtURI"`
}

// parseDIDL decodes a DIDL-Lite metadata document. Empty or "NOT_IMPLEMENTED"
// metadata yields a zero item, not an error: stopped speakers report exactly
// that.
func parseDIDL(meta string) (didlItem, error) {
	var item didlItem
	if meta == "" || meta == "NOT_IMPLEMENTED" {
		return item, nil
	}
	if err := xml.Unmarshal([]byte(meta), &item); err != nil {
		return item, err
	}
	return item, nil
}

// GetTrackInfo returns metadata for the current track. Album art URIs are
// frequently device-relative ("/getaa?..."); those are resolved against the
// speaker's base URL so the image cache can fetch them directly.
func (c *UPnPClient) GetTrackInfo(ctx context.Context, device string) (TrackInfo, error) {
	var resp struct {
		XMLName  xml.Name `xml:"GetPositionInfoResponse"`
		Metadata string   `xml:"TrackMetaData"`
	}
	if err := c.call(ctx, device, "GetPositionInfo", &resp); err != nil {
		return TrackInfo{}, err
	}

	item, err := parseDIDL(resp.Metadata)
	if err != nil {
		return TrackInfo{}, apperrors.Wrap(apperrors.CodeDeviceBadResponse, "parsing track metadata", err)
	}

	art := item.AlbumArtURI
	if art != "" && strings.HasPrefix(art, "/") {
		base, err := c.baseURL(device)
		if err != nil {
			return TrackInfo{}, err
		}
		art = base + art
	}

	return TrackInfo{
		Title:      item.Title,
		Artist:     item.Creator,
		Album:      item.Album,
		ArtworkURL: art,
	}, nil
}

// GetMediaInfo returns the current media source. For radio streams the
// channel name is the DIDL title of the current URI metadata.
func (c *UPnPClient) GetMediaInfo(ctx context.Context, device string) (MediaInfo, error) {
	var resp struct {
		XMLName  xml.Name `xml:"GetMediaInfoResponse"`
		Metadata string   `xml:"CurrentURIMetaData"`
	}
	if err := c.call(ctx, device, "GetMediaInfo", &resp); err != nil {
		return MediaInfo{}, err
	}

	item, err := parseDIDL(resp.Metadata)
	if err != nil {
		return MediaInfo{}, apperrors.Wrap(apperrors.CodeDeviceBadResponse, "parsing media metadata", err)
	}
	return MediaInfo{Channel: item.Title}, nil
}

// SearchStations queries the station directory for channels matching name.
func (c *UPnPClient) SearchStations(ctx context.Context, channel string) ([]Station, error) {
	return c.search.Search(ctx, channel)
}

// Devices returns the configured room names, for startup logging.
func (c *UPnPClient) Devices() []string {
	names := make([]string, 0, len(c.devices))
	for name := range c.devices {
		names = append(names, name)
	}
	return names
}
