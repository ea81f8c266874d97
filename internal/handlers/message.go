package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mainmuse-backend/internal/middleware"
	"mainmuse-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles queue-operation HTTP requests
type MessageHandler struct {
	queueService *services.QueueService
	hub          *services.Hub
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(queueService *services.QueueService, hub *services.Hub) *MessageHandler {
	return &MessageHandler{
		queueService: queueService,
		hub:          hub,
	}
}

// MessageRequest represents a message body being appended or edited
type MessageRequest struct {
	Message string `json:"message"`
}

// Append handles POST /api/v1/messages/{target}
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "target")

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		respondError(w, "message is required", http.StatusBadRequest)
		return
	}

	index, err := h.queueService.Append(ctx, userID, middleware.GetToken(ctx), targetID, req.Message)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("target_id", targetID).
			Msg("Failed to append message")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("target_id", targetID).
		Int64("index", index).
		Msg("Message appended")

	h.hub.NotifyQueued(targetID, userID, index)

	respondJSON(w, http.StatusOK, map[string]int64{"index": index})
}

// Edit handles PUT /api/v1/messages/{target}/{index}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "target")

	index, err := strconv.ParseInt(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		respondError(w, "index must be an integer", http.StatusBadRequest)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		respondError(w, "message is required", http.StatusBadRequest)
		return
	}

	if err := h.queueService.Edit(ctx, userID, middleware.GetToken(ctx), targetID, index, req.Message); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("target_id", targetID).
			Int64("index", index).
			Msg("Failed to edit message")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReadNext handles GET /api/v1/messages/{target}/next
func (h *MessageHandler) ReadNext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "target")

	index, message, err := h.queueService.Read(ctx, userID, middleware.GetToken(ctx), targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"index":   index,
		"message": message,
	})
}

// ListQueued handles GET /api/v1/messages/{target}/queued
func (h *MessageHandler) ListQueued(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "target")

	messages, err := h.queueService.ListQueued(ctx, userID, middleware.GetToken(ctx), targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// ListReceived handles GET /api/v1/messages/{target}/received
func (h *MessageHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "target")

	messages, err := h.queueService.ListReceived(ctx, userID, middleware.GetToken(ctx), targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
