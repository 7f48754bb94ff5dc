package handler

import (
	"net/http"
)

// serveWS upgrades the connection and registers it with the hub for
// real-time notification pushes.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request, userID string) {
	h.hub.Serve(w, r, userID)
}
