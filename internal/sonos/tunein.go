package sonos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"

	apperrors "github.com/nowspinning/host/internal/errors"
)

// searchBaseURL is the TuneIn OPML search endpoint. filter=s restricts
// results to stations, matching the directory category the dashboard needs.
const searchBaseURL = "https://opml.radiotime.com/Search.ashx"

// searchTimeout bounds a single directory request.
const searchTimeout = 10 * time.Second

// searchMaxRetries is how many times a failed directory request is retried.
// The directory is a public service and transient failures are common.
const searchMaxRetries = 3

// TuneInSearcher queries the TuneIn station directory.
type TuneInSearcher struct {
	baseURL string
	client  *http.Client
}

// NewTuneInSearcher creates a searcher against the public TuneIn directory.
func NewTuneInSearcher() *TuneInSearcher {
	return &TuneInSearcher{
		baseURL: searchBaseURL,
		client:  &http.Client{Timeout: searchTimeout},
	}
}

// NewTuneInSearcherWithBase creates a searcher against a custom endpoint.
// Used by tests to point at a local server.
func NewTuneInSearcherWithBase(baseURL string) *TuneInSearcher {
	s := NewTuneInSearcher()
	s.baseURL = baseURL
	return s
}

// searchResponse is the OPML-as-JSON payload returned by the directory.
type searchResponse struct {
	Body []struct {
		Element string `json:"element"`
		Type    string `json:"type"`
		Text    string `json:"text"`
		Logo    string `json:"image"`
	} `json:"body"`
}

// Search returns stations matching the given channel name, in directory
// order. The first result's logo is what the refresh protocol uses as radio
// artwork. Transient request failures are retried with exponential backoff.
func (s *TuneInSearcher) Search(ctx context.Context, channel string) ([]Station, error) {
	q := url.Values{}
	q.Set("query", channel)
	q.Set("render", "json")
	q.Set("filter", "s")
	reqURL := s.baseURL + "?" + q.Encode()

	var parsed searchResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("directory returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), searchMaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSearchFailed,
			fmt.Sprintf("station search for %q failed", channel), err)
	}

	var stations []Station
	for _, entry := range parsed.Body {
		if entry.Element != "outline" || entry.Type != "audio" {
			continue
		}
		stations = append(stations, Station{
			Name:    entry.Text,
			LogoURL: entry.Logo,
		})
	}
	return stations, nil
}
