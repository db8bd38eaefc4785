package controllers

import (
	"net/http"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/pkg/config"
)

type publicConfigResponse struct {
	APIBaseURL  string `json:"apiBaseUrl"`
	MapsEnabled bool   `json:"mapsEnabled"`
	MapsAPIKey  string `json:"mapsApiKey,omitempty"`
	KakaoLogin  bool   `json:"kakaoLogin"`
	MaxImages   int    `json:"maxImages"`
	MaxFileSize int64  `json:"maxFileBytes"`
}

// PublicConfig tells the browser app what it may use. The maps key is only
// exposed when configured; without it maps degrade to a plain external link.
func PublicConfig(cfg *config.Config) http.HandlerFunc {
	body := publicConfigResponse{
		APIBaseURL:  cfg.Public.APIBaseURL,
		MapsEnabled: cfg.Maps.APIKey != "",
		MapsAPIKey:  cfg.Maps.APIKey,
		KakaoLogin:  cfg.FeatureFlags.KakaoLogin && cfg.Kakao.Enabled(),
		MaxImages:   cfg.Storage.MaxImages,
		MaxFileSize: cfg.Storage.MaxFileBytes,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, body)
	}
}
