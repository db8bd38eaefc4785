package maps

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/popspot-backend/pkg/config"
)

// Links are the map references attached to a store detail. EmbedURL is only
// set when a maps key is configured.
type Links struct {
	EmbedURL    string `json:"embed_url,omitempty"`
	ExternalURL string `json:"external_url"`
}

// LinkBuilder renders map links for a store location.
type LinkBuilder struct {
	apiKey      string
	embedBase   string
	externalURL string
}

func NewLinkBuilder(cfg config.MapsConfig) *LinkBuilder {
	return &LinkBuilder{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		embedBase:   strings.TrimSpace(cfg.EmbedBase),
		externalURL: strings.TrimSpace(cfg.ExternalURL),
	}
}

// Enabled reports whether embedded maps can be rendered.
func (b *LinkBuilder) Enabled() bool {
	return b != nil && b.apiKey != "" && b.embedBase != ""
}

// For builds links from coordinates when present, else from the location text.
func (b *LinkBuilder) For(location string, lat, lng *float64) Links {
	query := strings.TrimSpace(location)
	if lat != nil && lng != nil {
		query = fmt.Sprintf("%f,%f", *lat, *lng)
	}

	external := b.externalURL
	if external == "" {
		external = "https://www.google.com/maps/search/"
	}
	links := Links{ExternalURL: external + "?api=1&query=" + url.QueryEscape(query)}

	if b.Enabled() {
		v := url.Values{}
		v.Set("key", b.apiKey)
		v.Set("q", query)
		links.EmbedURL = b.embedBase + "?" + v.Encode()
	}
	return links
}
