package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hello2himel/urochithi/internal/models"
	pkghttp "github.com/hello2himel/urochithi/pkg/http"
)

// MessageServiceInterface defines the interface for the message store
type MessageServiceInterface interface {
	Submit(ctx context.Context, msg models.Message) error
	List(ctx context.Context) ([]models.Message, error)
}

// MessageHandler handles letter submission and the dashboard listing
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// SubmitRequest is the public letter submission body
type SubmitRequest struct {
	Message   string `json:"message" validate:"required,max=2000"`
	SessionID string `json:"sessionId" validate:"required"`
	// Website is a honeypot field: humans never see it, bots fill it
	Website string `json:"website"`
}

type submitResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type listResponse struct {
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
}

// Submit handles a public letter submission
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Website != "" {
		// Honeypot tripped: same response as any bad request
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	msg := models.Message{
		Message:   req.Message,
		Timestamp: time.Now().UTC(),
		SessionID: req.SessionID,
	}

	if err := h.service.Submit(r.Context(), msg); err != nil {
		if errors.Is(err, models.ErrServerConfig) {
			pkghttp.WriteInternalError(w, "Server configuration error")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to deliver letter")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, submitResponse{
		OK:      true,
		Message: "Letter delivered successfully",
	})
}

// List returns all stored letters for the dashboard. The session
// middleware has already validated the bearer token.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.List(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrServerConfig) {
			pkghttp.WriteInternalError(w, "Server configuration error")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to fetch messages")
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	pkghttp.WriteJSON(w, http.StatusOK, listResponse{
		Messages: msgs,
		Count:    len(msgs),
	})
}
