package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/api/validators"
	"github.com/angelmondragon/popspot-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

const (
	kakaoStateCookie = "popspot_oauth_state"
	kakaoStateTTL    = 10 * time.Minute
)

// CookieSettings controls the session cookie set next to the JSON tokens.
type CookieSettings struct {
	Name   string
	Secure bool
}

func (c CookieSettings) set(w http.ResponseWriter, value string, expires time.Time) {
	if c.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieSettings) clear(w http.ResponseWriter) {
	if c.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func AuthSignUp(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignUpRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.SignUp(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

func AuthSignIn(svc auth.Service, cookie CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignInRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := svc.SignIn(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie.set(w, sess.AccessToken, sess.ExpiresAt)
		responses.WriteSuccess(w, sess)
	}
}

// AuthSignOut accepts expired tokens so a stale tab can still sign out.
func AuthSignOut(svc auth.Service, cookie CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := validators.AccessToken(r, cookie.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if err := svc.SignOut(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie.clear(w)
		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}

func AuthRefresh(svc auth.Service, cookie CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := validators.AccessToken(r, cookie.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		var req auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := svc.Refresh(r.Context(), token, req.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie.set(w, sess.AccessToken, sess.ExpiresAt)
		responses.WriteSuccess(w, sess)
	}
}

// AuthSession never fails on a bad token; the answer is simply anonymous.
func AuthSession(svc auth.Service, cookie CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := validators.AccessToken(r, cookie.Name)
		state, err := svc.Session(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// AuthKakao redirects to the Kakao consent page. The state value rides in a
// short-lived cookie until the callback.
func AuthKakao(svc auth.Service, secure bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, state, err := svc.KakaoAuthURL(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     kakaoStateCookie,
			Value:    state,
			Path:     "/",
			MaxAge:   int(kakaoStateTTL.Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// AuthKakaoCallback finishes the OAuth flow and hands the tokens to the app
// callback page in the URL fragment, which never reaches a server log.
func AuthKakaoCallback(svc auth.Service, cookie CookieSettings, frontendURL string, logg *logger.Logger) http.HandlerFunc {
	callback := strings.TrimRight(frontendURL, "/") + "/auth/callback"
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: kakaoStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: cookie.Secure})

		q := r.URL.Query()
		if providerErr := q.Get("error"); providerErr != "" {
			fragment := url.Values{"error": {providerErr}, "error_description": {q.Get("error_description")}}
			http.Redirect(w, r, callback+"#"+fragment.Encode(), http.StatusFound)
			return
		}

		expected := ""
		if c, err := r.Cookie(kakaoStateCookie); err == nil {
			expected = c.Value
		}
		sess, err := svc.KakaoCallback(r.Context(), q.Get("code"), q.Get("state"), expected)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "kakao callback failed")
			}
			fragment := url.Values{"error": {strings.ToLower(string(pkgerrors.CodeOf(err)))}, "error_description": {pkgerrors.MessageOf(err)}}
			http.Redirect(w, r, callback+"#"+fragment.Encode(), http.StatusFound)
			return
		}

		cookie.set(w, sess.AccessToken, sess.ExpiresAt)
		fragment := url.Values{
			"access_token":  {sess.AccessToken},
			"refresh_token": {sess.RefreshToken},
			"expires_at":    {sess.ExpiresAt.UTC().Format(time.RFC3339)},
		}
		http.Redirect(w, r, callback+"#"+fragment.Encode(), http.StatusFound)
	}
}

// AuthPasswordReset always reports that an email was sent.
func AuthPasswordReset(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResetPasswordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ResetPassword(r.Context(), req.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "reset_email_sent"})
	}
}

func AuthPasswordUpdate(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.UpdatePasswordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdatePassword(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}
