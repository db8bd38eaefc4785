package maps

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/angelmondragon/popspot-backend/pkg/config"
)

func TestClientGeocodeRequest(t *testing.T) {
	const expectedURL = "http://maps.test/v1/places:searchText"
	respBody := `{"places":[{"id":"place_123","formattedAddress":"서울 성동구 성수동","location":{"latitude":37.54,"longitude":127.05}}]}`

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["textQuery"] != "성수동" {
			t.Fatalf("unexpected query %q", payload["textQuery"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("test-key", WithBaseURL("http://maps.test/v1"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	place, err := client.Geocode(context.Background(), " 성수동 ")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("X-Goog-Api-Key") != "test-key" {
		t.Fatalf("api key header missing")
	}
	if capturedHeaders.Get("X-Goog-FieldMask") != searchTextFieldMask {
		t.Fatalf("unexpected field mask %q", capturedHeaders.Get("X-Goog-FieldMask"))
	}
	if place.Location.Latitude != 37.54 || place.Location.Longitude != 127.05 {
		t.Fatalf("unexpected location %+v", place.Location)
	}
}

func TestClientGeocodeNoMatch(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`)), Header: http.Header{}}, nil
	})
	client, err := NewClient("test-key", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Geocode(context.Background(), "nowhere"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestLinkBuilder(t *testing.T) {
	cfg := config.MapsConfig{EmbedBase: "https://maps.test/embed", ExternalURL: "https://maps.test/search/"}

	noKey := NewLinkBuilder(cfg)
	links := noKey.For("성수동", nil, nil)
	if links.EmbedURL != "" {
		t.Fatalf("embed url must be empty without a key, got %q", links.EmbedURL)
	}
	if !strings.HasPrefix(links.ExternalURL, "https://maps.test/search/?api=1&query=") {
		t.Fatalf("unexpected external url %q", links.ExternalURL)
	}

	cfg.APIKey = "k"
	lat, lng := 37.5, 127.0
	withKey := NewLinkBuilder(cfg)
	links = withKey.For("성수동", &lat, &lng)
	if !strings.Contains(links.EmbedURL, "key=k") || !strings.Contains(links.EmbedURL, "q=37.500000%2C127.000000") {
		t.Fatalf("unexpected embed url %q", links.EmbedURL)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
