// Package site serves the embedded static assets.
package site

import (
	"context"
	"net/http"
)

// PathPrefix is where the assets are mounted.
const PathPrefix = "/static/"

// Register attaches the static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.StripPrefix(PathPrefix, http.FileServer(FS()))
	mux.Handle("GET "+PathPrefix, cacheControl(files))
}

// cacheControl lets browsers keep assets for an hour.
func cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
