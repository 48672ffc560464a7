package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRF_GetIssuesCookieAndPasses(t *testing.T) {
	called := false
	h := CSRF(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/grid", nil))

	if !called {
		t.Fatal("GET without token should pass through")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "csrf_token" || cookies[0].Value == "" {
		t.Fatalf("cookies = %+v, want one csrf_token", cookies)
	}
}

func TestCSRF_PostWithoutHeaderRejected(t *testing.T) {
	h := CSRF(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestCSRF_PostWithMatchingHeaderAccepted(t *testing.T) {
	called := false
	h := CSRF(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Context().Value(CSRFTokenKey) != "tok" {
			t.Error("token missing from context")
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	h(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("valid POST rejected")
	}
}

func TestCSRF_PostWithWrongHeaderRejected(t *testing.T) {
	h := CSRF(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "other")
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
