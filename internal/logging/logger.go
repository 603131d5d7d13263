package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithUser returns a logger with the acting user attached.
func WithUser(userID string) *slog.Logger {
	return slog.With("user_id", userID)
}

// WithRelationship returns a logger scoped to one relationship.
// Use this for everything that happens while applying an interaction.
func WithRelationship(userID, relationshipID string) *slog.Logger {
	return slog.With(
		"user_id", userID,
		"relationship_id", relationshipID,
	)
}
