package handlers

import (
	"log"
	"time"

	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

const refreshCookie = "refresh_token"

// LocalAuthHandler handles local JWT authentication endpoints
type LocalAuthHandler struct {
	userService   *services.UserService
	refreshExpiry time.Duration
}

// NewLocalAuthHandler creates a new local auth handler
func NewLocalAuthHandler(userService *services.UserService, refreshExpiry time.Duration) *LocalAuthHandler {
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &LocalAuthHandler{
		userService:   userService,
		refreshExpiry: refreshExpiry,
	}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenRequest is the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates a new user account
// POST /api/auth/register
func (h *LocalAuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.userService.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return respondError(c, err)
	}

	h.setRefreshCookie(c, session.RefreshToken)
	return c.Status(fiber.StatusCreated).JSON(session)
}

// Login authenticates a user
// POST /api/auth/login
func (h *LocalAuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.userService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	h.setRefreshCookie(c, session.RefreshToken)
	return c.JSON(session)
}

// RefreshToken generates a new access token from a refresh token
// POST /api/auth/refresh
func (h *LocalAuthHandler) RefreshToken(c *fiber.Ctx) error {
	// Try to get refresh token from cookie first
	refreshToken := c.Cookies(refreshCookie)

	// Fallback to request body
	if refreshToken == "" {
		var req RefreshTokenRequest
		if err := c.BodyParser(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	session, err := h.userService.Refresh(c.UserContext(), refreshToken)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": session.AccessToken,
		"expires_in":   session.ExpiresIn,
	})
}

// Logout revokes all refresh tokens of the current user
// POST /api/auth/logout
func (h *LocalAuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(refreshCookie)

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(fiber.Map{
			"message": "Logged out successfully",
		})
	}

	if err := h.userService.Logout(c.UserContext(), userID); err != nil {
		// Non-critical, the cookie is already cleared
		log.Printf("⚠️ Failed to revoke refresh tokens for %s: %v", userID, err)
	}

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the currently authenticated user
// GET /api/auth/me
func (h *LocalAuthHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.userService.Get(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetStatus returns system status for unauthenticated users
// GET /api/auth/status
func (h *LocalAuthHandler) GetStatus(c *fiber.Ctx) error {
	hasUsers, err := h.userService.HasUsers(c.UserContext())
	if err != nil {
		log.Printf("⚠️ Failed to get user count: %v", err)
	}

	return c.JSON(fiber.Map{
		"has_users": hasUsers,
	})
}

func (h *LocalAuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Expires:  time.Now().Add(h.refreshExpiry),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: "Strict",
		Path:     "/api/auth",
	})
}
