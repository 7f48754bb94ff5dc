package handler

import (
	"net/http"
	"time"

	"github.com/kivumart/kivumart-api/internal/domain/notification"
)

type notificationResponse struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entityId,omitempty"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		EntityID:  n.EntityID,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request, userID string) {
	notifications, err := h.notifications.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		resp = append(resp, toNotificationResponse(&notifications[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("notificationID")
	if err := h.notifications.MarkRead(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
