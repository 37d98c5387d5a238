package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

type AuthService struct {
	repo            domain.UserRepository
	defaultTimezone string
}

func NewAuthService(repo domain.UserRepository, defaultTimezone string) *AuthService {
	return &AuthService{
		repo:            repo,
		defaultTimezone: defaultTimezone,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Timezone string
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	tz := input.Timezone
	if tz == "" {
		tz = s.defaultTimezone
	}

	user, err := domain.NewUser(uuid.NewString(), input.Email, tz)
	if err != nil {
		return nil, err
	}

	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth service: failed to create user: %w", err)
	}

	return user, nil
}

// Login returns ErrInvalidCredentials for both unknown emails and wrong
// passwords.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: failed to load user: %w", err)
	}

	if err := user.CheckPassword(input.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}
