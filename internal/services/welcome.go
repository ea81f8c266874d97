package services

import (
	"context"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// WelcomeService greets newly created users on behalf of a configured admin
// account: the admin is befriended automatically and the admin's stored
// welcome message is appended to the new user's queue.
type WelcomeService struct {
	users           *repository.UserRepository
	friends         *FriendService
	queue           *QueueService
	adminID         string
	adminToken      string
	adminFriendCode string
}

// NewWelcomeService creates a new welcome service. Pass empty admin
// credentials to disable welcome delivery.
func NewWelcomeService(
	users *repository.UserRepository,
	friends *FriendService,
	queue *QueueService,
	adminID, adminToken, adminFriendCode string,
) *WelcomeService {
	return &WelcomeService{
		users:           users,
		friends:         friends,
		queue:           queue,
		adminID:         adminID,
		adminToken:      adminToken,
		adminFriendCode: adminFriendCode,
	}
}

// Deliver befriends the admin on the new user's behalf and queues the
// welcome message. Failures are logged and never fail user creation.
func (s *WelcomeService) Deliver(ctx context.Context, user *models.User) {
	if s.adminID == "" {
		return
	}

	if _, err := s.friends.AddFriend(ctx, user.ID, user.Token, s.adminFriendCode); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to befriend admin for new user")
		return
	}

	message, err := s.users.WelcomeMessage(ctx, s.adminID)
	if err != nil {
		log.Warn().Err(err).Str("admin_id", s.adminID).Msg("No welcome message found")
		return
	}

	if _, err := s.queue.Append(ctx, s.adminID, s.adminToken, user.ID, message); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to queue welcome message")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("Welcome message queued")
}
