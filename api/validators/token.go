package validators

import (
	"errors"
	"net/http"
	"strings"
)

var ErrInvalidToken = errors.New("invalid auth token")

// BearerToken extracts the token from an Authorization header value.
func BearerToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", ErrInvalidToken
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	} else {
		return "", ErrInvalidToken
	}
	if token == "" || strings.Count(token, ".") != 2 {
		return "", ErrInvalidToken
	}
	return token, nil
}

// AccessToken reads the bearer header first, then the session cookie.
func AccessToken(r *http.Request, cookieName string) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return BearerToken(header)
	}
	if cookieName == "" {
		return "", ErrInvalidToken
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(cookie.Value), nil
}
