package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"soundarena-competition/models"
)

// CompetitionLoader reads and acknowledges competition rows.
type CompetitionLoader interface {
	GetCompetitionState(ctx context.Context, userID int64) (models.CompetitionState, error)
	ClearForceReset(ctx context.Context, userID int64) error
}

// CompetitionResetBody is the payload telling the client its matchup was
// discarded and it must start over from competition.
func CompetitionResetBody(competition models.CompetitionState) fiber.Map {
	return fiber.Map{
		"error": fiber.Map{
			"code":        "COMPETITION_RESET",
			"message":     "Competition reset",
			"competition": competition,
		},
	}
}

// CheckForceReset answers 400 once for a row reset behind the user's back
// (its track was deleted), lowering the flag so the next request proceeds.
// Must run after UserContextMiddleware.
func CheckForceReset(loader CompetitionLoader, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		state, err := loader.GetCompetitionState(c.UserContext(), userID)
		if err != nil {
			// the handler reads the row again and maps the error
			return c.Next()
		}
		if !state.ForceReset {
			return c.Next()
		}

		if err := loader.ClearForceReset(c.UserContext(), userID); err != nil {
			logger.Error("clear force reset", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Sorry, we could not process your request.",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(CompetitionResetBody(state))
	}
}
