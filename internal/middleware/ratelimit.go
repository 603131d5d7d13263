package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Login/register/refresh (per IP) against credential stuffing
	AuthMax        int
	AuthExpiration time.Duration

	// Interaction logging and analysis (per user)
	InteractionMax        int
	InteractionExpiration time.Duration

	// Export rendering (per user)
	ExportMax        int
	ExportExpiration time.Duration

	// WebSocket/Connection limits (per IP)
	WebSocketMax        int
	WebSocketExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		AuthMax:        10,
		AuthExpiration: 1 * time.Minute,

		InteractionMax:        60,
		InteractionExpiration: 1 * time.Minute,

		ExportMax:        10,
		ExportExpiration: 1 * time.Minute,

		WebSocketMax:        20,
		WebSocketExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	overrides := map[string]*int{
		"RATE_LIMIT_GLOBAL_API":  &config.GlobalAPIMax,
		"RATE_LIMIT_AUTH":        &config.AuthMax,
		"RATE_LIMIT_INTERACTION": &config.InteractionMax,
		"RATE_LIMIT_EXPORT":      &config.ExportMax,
		"RATE_LIMIT_WEBSOCKET":   &config.WebSocketMax,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*target = n
			}
		}
	}

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.GlobalAPIMax = 1000
		config.InteractionMax = 600
		config.WebSocketMax = 100
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

func userOrIP(prefix string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			return prefix + ":" + userID
		}
		return prefix + "-ip:" + c.IP()
	}
}

func byIP(prefix string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return prefix + ":" + c.IP()
	}
}

func newLimiter(name string, max int, expiration time.Duration, key func(c *fiber.Ctx) string, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   expiration,
		KeyGenerator: key,
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] %s limit reached for %s on %s", name, key(c), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       message,
				"retry_after": int(expiration.Seconds()),
			})
		},
	})
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return newLimiter("Global", config.GlobalAPIMax, config.GlobalAPIExpiration, byIP("global"),
		"Too many requests. Please slow down.")
}

// AuthRateLimiter limits login, register and refresh attempts per IP
func AuthRateLimiter(config *RateLimitConfig) fiber.Handler {
	return newLimiter("Auth", config.AuthMax, config.AuthExpiration, byIP("auth"),
		"Too many authentication attempts. Please wait before trying again.")
}

// InteractionRateLimiter limits interaction logging and analysis per user
func InteractionRateLimiter(config *RateLimitConfig) fiber.Handler {
	return newLimiter("Interaction", config.InteractionMax, config.InteractionExpiration, userOrIP("interaction"),
		"Too many interactions logged. Please wait before trying again.")
}

// ExportRateLimiter limits export rendering per user
func ExportRateLimiter(config *RateLimitConfig) fiber.Handler {
	return newLimiter("Export", config.ExportMax, config.ExportExpiration, userOrIP("export"),
		"Too many export requests. Please wait.")
}

// WebSocketRateLimiter for WebSocket connection attempts
func WebSocketRateLimiter(config *RateLimitConfig) fiber.Handler {
	return newLimiter("WebSocket", config.WebSocketMax, config.WebSocketExpiration, byIP("ws"),
		"Too many connection attempts. Please wait before reconnecting.")
}
