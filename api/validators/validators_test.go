package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
)

type signupBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"omitempty,notblank"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"bad","password":"123"}`))
	var body signupBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	if details["email"] == "" || details["password"] != "must be at least 6" {
		t.Fatalf("unexpected details %v", typed.Details())
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"123456","extra":1}`))
	if err := DecodeJSONBody(req, &body); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected unknown fields to be rejected, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"123456","username":"  "}`))
	if err := DecodeJSONBody(req, &body); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected blank username to be rejected, got %v", err)
	}
}

func TestQueryParsers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&lat=37.5&startDate=2026-05-01&tags=a,b&tags=c", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 1000)
	if err != nil || page != 2 {
		t.Fatalf("page: %d %v", page, err)
	}
	lat, err := ParseQueryFloat(req, "lat", -90, 90)
	if err != nil || lat == nil || *lat != 37.5 {
		t.Fatalf("lat: %v %v", lat, err)
	}
	if lng, err := ParseQueryFloat(req, "lng", -180, 180); err != nil || lng != nil {
		t.Fatalf("absent lng should be nil, got %v %v", lng, err)
	}
	start, err := ParseQueryDate(req, "startDate")
	if err != nil || start == nil || start.Day() != 1 {
		t.Fatalf("startDate: %v %v", start, err)
	}
	if tags := ParseQueryList(req, "tags"); len(tags) != 3 {
		t.Fatalf("unexpected tags %v", tags)
	}

	bad := httptest.NewRequest(http.MethodGet, "/?startDate=05/01/2026", nil)
	if _, err := ParseQueryDate(bad, "startDate"); err == nil {
		t.Fatalf("expected bad date to fail")
	}
}

func TestAccessToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer a.b.c")
	if tok, err := AccessToken(req, "sess"); err != nil || tok != "a.b.c" {
		t.Fatalf("bearer: %q %v", tok, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sess", Value: "x.y.z"})
	if tok, err := AccessToken(req, "sess"); err != nil || tok != "x.y.z" {
		t.Fatalf("cookie: %q %v", tok, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	if _, err := AccessToken(req, "sess"); err == nil {
		t.Fatalf("expected non-bearer scheme to fail")
	}
}
