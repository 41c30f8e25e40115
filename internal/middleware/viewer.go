package middleware

import (
	"net/http"

	"sketchsync/internal/domain"
)

// GetViewerID returns the viewer that issued r, or "" when the request is anonymous.
func GetViewerID(r *http.Request) string {
	if id := r.Header.Get(domain.ViewerIDHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("viewer_id")
}
