package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/repository"
	"mainmuse-backend/internal/store"
)

const (
	tokenLength = 24
	tokenChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	codeLength   = 6
	codeChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 8
)

// UserService handles user creation and token validation
type UserService struct {
	users *repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// InitUser retrieves or creates the user record for an externally-verified
// identity. The call is idempotent: when the id already has a record, the
// stored credentials are returned unchanged and created is false.
func (s *UserService) InitUser(ctx context.Context, id, name, email string) (user *models.User, created bool, err error) {
	if err := store.CheckSegment(id); err != nil {
		return nil, false, ErrInvalidID
	}

	existing, err := s.users.Get(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotExist) {
		return nil, false, err
	}

	code, err := s.reserveCode(ctx)
	if err != nil {
		return nil, false, err
	}

	user = &models.User{
		ID:         id,
		Name:       name,
		Email:      email,
		Token:      randomString(tokenLength, tokenChars),
		FriendCode: code,
		CreatedAt:  time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Authenticate checks that the id exists and the token matches exactly,
// returning the user's display name.
func (s *UserService) Authenticate(ctx context.Context, id, token string) (string, error) {
	if err := store.CheckSegment(id); err != nil {
		return "", ErrInvalidID
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	if user.Token == "" || user.Token != token {
		return "", ErrUnauthorized
	}
	return user.Name, nil
}

// GetUser returns the full user record after validating the token
func (s *UserService) GetUser(ctx context.Context, id, token string) (*models.User, error) {
	if _, err := s.Authenticate(ctx, id, token); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, id)
}

// reserveCode generates a friend code that is not yet present in the
// directory. Generation is retried a fixed number of times on collision and
// fails permanently after that.
func (s *UserService) reserveCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := randomString(codeLength, codeChars)
		_, err := s.users.ResolveCode(ctx, code)
		if errors.Is(err, store.ErrNotExist) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrCodeExhausted
}

func randomString(length int, charset string) string {
	out := make([]byte, length)
	for i := range out {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		out[i] = charset[n.Int64()]
	}
	return string(out)
}
