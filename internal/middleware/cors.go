// Package middleware provides HTTP middleware for the visit tracking API.
package middleware

import (
	"net/http"
)

// CORS header values sent on every response.
const (
	CORSAllowHeaders     = "Content-Type,Authorization"
	CORSAllowMethods     = "GET,PUT,POST,DELETE,OPTIONS"
	CORSAllowCredentials = "true"
)

// CORS returns a middleware that stamps the four CORS headers on every response.
//
// Headers are set before the inner handler runs, so they are present on
// success, error, 404/405, and recovered-panic responses alike. Browser
// preflight requests (OPTIONS) are answered here with 200.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Headers", CORSAllowHeaders)
			h.Set("Access-Control-Allow-Methods", CORSAllowMethods)
			h.Set("Access-Control-Allow-Credentials", CORSAllowCredentials)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
