package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/store"
)

// UserRepository handles user records and the friend-code directory
type UserRepository struct {
	store store.Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(st store.Store) *UserRepository {
	return &UserRepository{store: st}
}

func userPath(id string) (store.Path, error) {
	return store.NewPath("users", id)
}

func codePath(code string) (store.Path, error) {
	return store.NewPath("codes", code)
}

// Get retrieves a user record by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	p, err := userPath(id)
	if err != nil {
		return nil, err
	}
	raw, err := r.store.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}
	return &user, nil
}

// Create writes the user record and its friend-code directory entry
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	up, err := userPath(user.ID)
	if err != nil {
		return err
	}
	cp, err := codePath(user.FriendCode)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}
	if err := r.store.Set(ctx, up, raw); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	encodedID, err := json.Marshal(user.ID)
	if err != nil {
		return fmt.Errorf("failed to encode user id: %w", err)
	}
	if err := r.store.Set(ctx, cp, encodedID); err != nil {
		return fmt.Errorf("failed to create code entry: %w", err)
	}
	return nil
}

// ResolveCode maps a friend code to a user ID
func (r *UserRepository) ResolveCode(ctx context.Context, code string) (string, error) {
	p, err := codePath(code)
	if err != nil {
		return "", err
	}
	raw, err := r.store.Get(ctx, p)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("failed to decode code entry: %w", err)
	}
	return id, nil
}

// WelcomeMessage reads the stored welcome message under a user's record
func (r *UserRepository) WelcomeMessage(ctx context.Context, id string) (string, error) {
	p, err := store.NewPath("users", id, "welcomeMessage")
	if err != nil {
		return "", err
	}
	raw, err := r.store.Get(ctx, p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetWelcomeMessage stores the welcome message under a user's record
func (r *UserRepository) SetWelcomeMessage(ctx context.Context, id, message string) error {
	p, err := store.NewPath("users", id, "welcomeMessage")
	if err != nil {
		return err
	}
	return r.store.Set(ctx, p, []byte(message))
}
