package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type contextKey string

const CSRFTokenKey contextKey = "csrf_token"

const tokenCookie = "csrf_token"

func GenerateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CSRF issues a per-browser token cookie and requires mutating JSON requests
// to echo it in the X-CSRF-Token header. GET stays open so the grid fetch
// works before any token round-trip.
func CSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(tokenCookie)
		token := ""
		if err != nil || cookie.Value == "" {
			token = GenerateToken()
			http.SetCookie(w, &http.Cookie{
				Name:     tokenCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
			})
		} else {
			token = cookie.Value
		}

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if r.Header.Get("X-CSRF-Token") != token {
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), CSRFTokenKey, token)
		next(w, r.WithContext(ctx))
	}
}
