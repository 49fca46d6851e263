// Package sonos provides the speaker metadata client used by the dashboard.
//
// The session handler depends only on the Client interface; the concrete
// implementation speaks UPnP/SOAP to the speaker's AVTransport service and
// queries the TuneIn directory for radio station logos. Tests substitute a
// fake Client.
package sonos

import "context"

// TransportInfo describes the speaker's playback state.
type TransportInfo struct {
	// State is the current transport state, e.g. "PLAYING", "PAUSED_PLAYBACK",
	// "STOPPED".
	State string
}

// TrackInfo describes the currently playing track.
type TrackInfo struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string // empty for radio streams
}

// MediaInfo describes the current media source.
type MediaInfo struct {
	// Channel is the radio channel name, empty when playing library tracks.
	Channel string
}

// Station is one result from a station directory search.
type Station struct {
	Name    string
	LogoURL string
}

// Client queries a named speaker for playback metadata and the station
// directory for radio artwork. All methods may fail with a
// device.unavailable-class error when the speaker is offline; callers treat
// that as an expected condition.
type Client interface {
	GetTransportInfo(ctx context.Context, device string) (TransportInfo, error)
	GetTrackInfo(ctx context.Context, device string) (TrackInfo, error)
	GetMediaInfo(ctx context.Context, device string) (MediaInfo, error)
	SearchStations(ctx context.Context, channel string) ([]Station, error)
}
