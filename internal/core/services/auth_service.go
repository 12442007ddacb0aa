package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/google/uuid"
)

type AuthService struct {
	repo   domain.UserRepository
	tokens *TokenService
}

func NewAuthService(repo domain.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
	}
}

type RegisterInput struct {
	Email          string
	Password       string
	Username       string
	TelegramChatID string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	id := uuid.NewString()
	user, err := domain.NewUser(id, input.Email)
	if err != nil {
		return nil, err
	}

	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}

	if err := user.SetTelegramChatID(input.TelegramChatID); err != nil {
		return nil, err
	}

	if input.Username != "" {
		username := input.Username
		user.Username = &username
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth service: failed to create user: %w", err)
	}

	return user, nil
}

type LoginInput struct {
	Email    string
	Password string
}

// Login checks the credentials and issues a token pair. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: failed to load user: %w", err)
	}

	if err := user.CheckPassword(input.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.tokens.GeneratePair(user.ID)
}
