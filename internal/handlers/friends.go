package handlers

import (
	"encoding/json"
	"net/http"

	"mainmuse-backend/internal/middleware"
	"mainmuse-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// FriendHandler handles friend-request HTTP requests
type FriendHandler struct {
	friendService *services.FriendService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// AddFriendRequest represents the request body for adding a friend
type AddFriendRequest struct {
	Code string `json:"code"`
}

// AddFriend handles POST /api/v1/friends. Accepting is one-directional:
// only the caller's own inbound queue from the code's owner is marked
// accepted.
func (h *FriendHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req AddFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	friendName, err := h.friendService.AddFriend(ctx, userID, middleware.GetToken(ctx), req.Code)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("code", req.Code).
			Msg("Failed to add friend")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_name", friendName).
		Msg("Friend added")

	respondJSON(w, http.StatusOK, map[string]string{"friend_name": friendName})
}
