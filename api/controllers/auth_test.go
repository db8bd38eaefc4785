package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

var testCookie = CookieSettings{Name: "popspot_session", Secure: true}

func testSession() *auth.Session {
	return &auth.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		User:         auth.User{ID: uuid.New(), Email: "a@popspot.test"},
	}
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthSignInSetsCookie(t *testing.T) {
	svc := &stubAuth{session: testSession()}
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"email":"a@popspot.test","password":"secret1"}`))
	w := httptest.NewRecorder()

	AuthSignIn(svc, testCookie, logger.Nop())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	c := findCookie(w, testCookie.Name)
	if c == nil || c.Value != "access-1" || !c.HttpOnly || !c.Secure {
		t.Fatalf("unexpected session cookie %+v", c)
	}
}

func TestAuthSignInUnconfirmed(t *testing.T) {
	svc := &stubAuth{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "could not confirm your session, please try again")}
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"email":"a@popspot.test","password":"secret1"}`))
	w := httptest.NewRecorder()

	AuthSignIn(svc, testCookie, logger.Nop())(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if findCookie(w, testCookie.Name) != nil {
		t.Fatalf("no cookie expected on failure")
	}
}

func TestAuthSignOutClearsCookie(t *testing.T) {
	svc := &stubAuth{}
	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "tok"})
	w := httptest.NewRecorder()

	AuthSignOut(svc, testCookie, logger.Nop())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.signedOut != "tok" {
		t.Fatalf("expected cookie token, got %q", svc.signedOut)
	}
	if c := findCookie(w, testCookie.Name); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", c)
	}
}

func TestAuthSignOutWithoutToken(t *testing.T) {
	w := httptest.NewRecorder()
	AuthSignOut(&stubAuth{}, testCookie, logger.Nop())(w, httptest.NewRequest(http.MethodPost, "/auth/signout", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthKakaoRedirectStoresState(t *testing.T) {
	svc := &stubAuth{kakaoURL: "https://kauth.kakao.test/oauth/authorize?state=s1", kakaoState: "s1"}
	w := httptest.NewRecorder()

	AuthKakao(svc, true, logger.Nop())(w, httptest.NewRequest(http.MethodGet, "/auth/kakao", nil))

	if w.Code != http.StatusFound || w.Header().Get("Location") != svc.kakaoURL {
		t.Fatalf("unexpected redirect %d %s", w.Code, w.Header().Get("Location"))
	}
	if c := findCookie(w, kakaoStateCookie); c == nil || c.Value != "s1" {
		t.Fatalf("expected state cookie, got %+v", c)
	}
}

func TestAuthKakaoCallback(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubAuth{session: testSession()}
		req := httptest.NewRequest(http.MethodGet, "/auth/kakao/callback?code=c1&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: kakaoStateCookie, Value: "s1"})
		w := httptest.NewRecorder()

		AuthKakaoCallback(svc, testCookie, "https://popspot.test/", logger.Nop())(w, req)

		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
		if svc.gotExpected != "s1" {
			t.Fatalf("expected state from cookie, got %q", svc.gotExpected)
		}
		loc, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parse location: %v", err)
		}
		if loc.Path != "/auth/callback" || loc.RawQuery != "" {
			t.Fatalf("unexpected location %s", loc)
		}
		fragment, _ := url.ParseQuery(loc.Fragment)
		if fragment.Get("access_token") != "access-1" || fragment.Get("refresh_token") != "refresh-1" {
			t.Fatalf("unexpected fragment %v", fragment)
		}
		if c := findCookie(w, testCookie.Name); c == nil || c.Value != "access-1" {
			t.Fatalf("expected session cookie, got %+v", c)
		}
	})

	t.Run("failure", func(t *testing.T) {
		svc := &stubAuth{err: pkgerrors.New(pkgerrors.CodeValidation, "invalid oauth state")}
		w := httptest.NewRecorder()

		AuthKakaoCallback(svc, testCookie, "https://popspot.test", logger.Nop())(w, httptest.NewRequest(http.MethodGet, "/auth/kakao/callback?code=c1&state=s1", nil))

		loc, _ := url.Parse(w.Header().Get("Location"))
		fragment, _ := url.ParseQuery(loc.Fragment)
		if fragment.Get("error") != "validation_error" || fragment.Get("access_token") != "" {
			t.Fatalf("unexpected fragment %v", fragment)
		}
	})

	t.Run("provider denied", func(t *testing.T) {
		svc := &stubAuth{}
		w := httptest.NewRecorder()

		AuthKakaoCallback(svc, testCookie, "https://popspot.test", logger.Nop())(w, httptest.NewRequest(http.MethodGet, "/auth/kakao/callback?error=access_denied", nil))

		loc, _ := url.Parse(w.Header().Get("Location"))
		fragment, _ := url.ParseQuery(loc.Fragment)
		if fragment.Get("error") != "access_denied" {
			t.Fatalf("unexpected fragment %v", fragment)
		}
	})
}

func TestAuthPasswordResetAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/password/reset", strings.NewReader(`{"email":"nobody@popspot.test"}`))
	AuthPasswordReset(&stubAuth{}, logger.Nop())(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
}
