package handlers

import (
	"net/http"

	"mainmuse-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler registers client sessions with the hub
type WebSocketHandler struct {
	hub         *services.Hub
	userService *services.UserService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.Hub, userService *services.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
	}
}

// HandleWebSocket handles GET /ws. Credentials come in query parameters
// because browsers cannot set headers on websocket upgrades.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("id")
	token := r.URL.Query().Get("token")
	if userID == "" || token == "" {
		respondError(w, "id and token required", http.StatusUnauthorized)
		return
	}

	if _, err := h.userService.Authenticate(r.Context(), userID, token); err != nil {
		respondError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	sessionID := h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, sessionID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// The server only pushes events; inbound frames are drained until the
	// client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}
	}
}
