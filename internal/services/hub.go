package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is a message pushed to a connected client
type Event struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id,omitempty"`
	Index    int64  `json:"index,omitempty"`
	Message  string `json:"message,omitempty"`
}

type session struct {
	id   string
	conn *websocket.Conn
}

// Hub is the advisory registry of currently connected user sessions. It is
// not authoritative: delivery state lives entirely in the store, the hub
// only lets the server nudge online receivers.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewHub creates a new session hub
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*session)}
}

// Register records a connection for a user and returns its session id.
// An existing connection for the same user is closed and replaced.
func (h *Hub) Register(userID string, conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.sessions[userID]; ok {
		existing.conn.Close()
	}

	sess := &session{id: uuid.NewString(), conn: conn}
	h.sessions[userID] = sess

	log.Info().Str("user_id", userID).Str("session_id", sess.id).Msg("Session registered")
	return sess.id
}

// Unregister evicts the user's connection if it still belongs to the given
// session. A stale session id from a replaced connection is a no-op.
func (h *Hub) Unregister(userID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[userID]
	if !ok || sess.id != sessionID {
		return
	}
	sess.conn.Close()
	delete(h.sessions, userID)
	log.Info().Str("user_id", userID).Str("session_id", sessionID).Msg("Session unregistered")
}

// IsOnline checks if a user has a registered session
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// SendToUser pushes an event to a connected user. The session is evicted
// on write failure.
func (h *Hub) SendToUser(userID string, event Event) error {
	h.mu.RLock()
	sess, ok := h.sessions[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID, sess.id)
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// NotifyQueued tells an online receiver that a sender queued a new message.
// The message body is not pushed; it is revealed only through the gated
// read path.
func (h *Hub) NotifyQueued(receiverID, senderID string, index int64) {
	if !h.IsOnline(receiverID) {
		return
	}
	event := Event{
		Type:     "message_queued",
		SenderID: senderID,
		Index:    index,
	}
	if err := h.SendToUser(receiverID, event); err != nil {
		log.Error().Err(err).Str("receiver_id", receiverID).Msg("Failed to notify receiver")
	}
}
