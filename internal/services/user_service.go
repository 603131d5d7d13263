package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dytto/internal/logging"
	"dytto/internal/models"
	"dytto/internal/store"
	"dytto/pkg/auth"

	"github.com/google/uuid"
)

// loginFailureDelay slows down failed logins against email enumeration
var loginFailureDelay = 200 * time.Millisecond

// AuthSession is returned after register, login and refresh
type AuthSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *models.User `json:"user,omitempty"`
	ExpiresIn    int          `json:"expires_in"` // seconds
}

// UserService handles local accounts and token issuance
type UserService struct {
	store   store.UserStore
	jwtAuth *auth.LocalJWTAuth
}

// NewUserService creates a new user service
func NewUserService(st store.UserStore, jwtAuth *auth.LocalJWTAuth) *UserService {
	return &UserService{store: st, jwtAuth: jwtAuth}
}

// Register creates an account. The first user becomes admin.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*AuthSession, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, models.Validationf("valid email address is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, models.Validationf("%s", err.Error())
	}

	if existing, err := s.store.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: user with this email already exists", models.ErrConflict)
	}

	passwordHash, err := s.jwtAuth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userCount, err := s.store.CountUsers(ctx)
	if err != nil {
		log.Printf("⚠️ Failed to get user count: %v", err)
		userCount = 1 // Default to non-admin if count check fails
	}
	role := "user"
	if userCount == 0 {
		role = "admin"
		log.Printf("🎉 Creating first user as admin: %s", email)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		LastLoginAt:  now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ User registered: %s (%s)", user.Email, user.ID)
	return s.session(user)
}

// Login verifies credentials and issues tokens
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthSession, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		time.Sleep(loginFailureDelay)
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
	}

	valid, err := s.jwtAuth.VerifyPassword(user.PasswordHash, password)
	if err != nil || !valid {
		log.Printf("⚠️ Failed login attempt for user: %s", email)
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
	}

	user.LastLoginAt = time.Now()
	if err := s.store.UpdateLastLogin(ctx, user.ID, user.LastLoginAt); err != nil {
		log.Printf("⚠️ Failed to update last login time: %v", err)
	}

	log.Printf("✅ User logged in: %s (%s)", user.Email, user.ID)
	return s.session(user)
}

// Refresh issues a new access token. Tokens issued before the last logout are rejected.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*AuthSession, error) {
	if refreshToken == "" {
		return nil, models.Validationf("refresh token is required")
	}
	claims, err := s.jwtAuth.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired refresh token", models.ErrUnauthorized)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", models.ErrUnauthorized)
		}
		return nil, err
	}
	if claims.Version != int64(user.RefreshTokenVersion) {
		return nil, fmt.Errorf("%w: refresh token revoked", models.ErrUnauthorized)
	}

	session, err := s.session(user)
	if err != nil {
		return nil, err
	}
	// Refresh token stays valid until logout
	session.RefreshToken = ""
	session.User = nil
	return session, nil
}

// Logout revokes every refresh token issued to the user
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.store.IncrementRefreshTokenVersion(ctx, userID); err != nil {
		return err
	}
	logging.WithUser(userID).Info("refresh tokens revoked on logout")
	return nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// HasUsers reports whether any account exists
func (s *UserService) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.store.CountUsers(ctx)
	return count > 0, err
}

func (s *UserService) session(user *models.User) (*AuthSession, error) {
	access, refresh, err := s.jwtAuth.GenerateTokens(user.ID, user.Email, user.Role, int64(user.RefreshTokenVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &AuthSession{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		ExpiresIn:    int(s.jwtAuth.AccessTokenExpiry.Seconds()),
	}, nil
}
