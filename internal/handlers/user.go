package handlers

import (
	"encoding/json"
	"net/http"

	"mainmuse-backend/internal/identity"
	"mainmuse-backend/internal/middleware"
	"mainmuse-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
	welcome     *services.WelcomeService
	verifier    identity.Verifier
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, welcome *services.WelcomeService, verifier identity.Verifier) *UserHandler {
	return &UserHandler{
		userService: userService,
		welcome:     welcome,
		verifier:    verifier,
	}
}

// InitUserRequest represents the request body for initializing a user
type InitUserRequest struct {
	ID    string `json:"id"`
	Proof string `json:"proof"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InitUserResponse carries the credentials for a verified user
type InitUserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Token      string `json:"token"`
	FriendCode string `json:"friendcode"`
}

// InitUser handles POST /api/v1/users: verifies the proof-of-identity with
// the upstream provider, then retrieves or creates the account.
func (h *UserHandler) InitUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InitUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		respondError(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(ctx, req.ID, req.Proof); err != nil {
		log.Warn().Err(err).Str("user_id", req.ID).Msg("Identity verification failed")
		respondServiceError(w, err)
		return
	}

	user, created, err := h.userService.InitUser(ctx, req.ID, req.Name, req.Email)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.ID).Msg("Failed to initialize user")
		respondServiceError(w, err)
		return
	}

	if created {
		log.Info().
			Str("user_id", user.ID).
			Str("friend_code", user.FriendCode).
			Msg("User created")
		h.welcome.Deliver(ctx, user)
	}

	respondJSON(w, http.StatusOK, InitUserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Token:      user.Token,
		FriendCode: user.FriendCode,
	})
}

// Verify handles GET /api/v1/verify
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, err := h.userService.Authenticate(ctx, middleware.GetUserID(ctx), middleware.GetToken(ctx))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.userService.GetUser(ctx, middleware.GetUserID(ctx), middleware.GetToken(ctx))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
