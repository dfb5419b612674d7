// handlers/competition.go
package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"soundarena-competition/middleware"
	"soundarena-competition/models"
	"soundarena-competition/services"
)

type enterRequest struct {
	TrackID int64        `json:"trackId"`
	Genre   models.Genre `json:"genre"`
}

type trackKeyRequest struct {
	TrackKey models.TrackKey `json:"trackKey"`
}

type winnerRequest struct {
	WinnerKey models.TrackKey `json:"winnerKey"`
}

func SetupCompetitionRoutes(app *fiber.App, matchups *services.MatchupService, logger *slog.Logger) {
	// 🔐 Every route acts on the caller's own competition row
	secured := app.Group("/api/auth", middleware.UserContextMiddleware(logger))
	checkReset := middleware.CheckForceReset(matchups, logger)

	secured.Get("/competition", func(c *fiber.Ctx) error {
		state, err := matchups.GetCompetitionState(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(state)
	})

	secured.Post("/competition", func(c *fiber.Ctx) error {
		var req enterRequest
		if err := c.BodyParser(&req); err != nil || req.TrackID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_REQUEST", "trackId and genre are required"))
		}
		state, err := matchups.EnterCompetition(c.UserContext(), middleware.UserID(c), req.TrackID, req.Genre)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(state)
	})

	secured.Get("/competition/tracks", checkReset, func(c *fiber.Ctx) error {
		playing, err := matchups.GetMatchupTrack(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(playing)
	})

	secured.Put("/competition/tracks", checkReset, func(c *fiber.Ctx) error {
		var req trackKeyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_REQUEST", "trackKey is required"))
		}
		state, err := matchups.SetTrackIsPlayed(c.UserContext(), middleware.UserID(c), req.TrackKey)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(state)
	})

	secured.Put("/competition/tracks/winner", checkReset, func(c *fiber.Ctx) error {
		var req winnerRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_REQUEST", "winnerKey is required"))
		}
		state, err := matchups.SetWinner(c.UserContext(), middleware.UserID(c), req.WinnerKey)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(state)
	})

	secured.Get("/competition/cancel-matchup", func(c *fiber.Ctx) error {
		state, err := matchups.CancelMatchup(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(state)
	})

	secured.Delete("/tracks/:id", func(c *fiber.Ctx) error {
		trackID, err := c.ParamsInt("id")
		if err != nil || trackID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_REQUEST", "Invalid track id"))
		}
		n, err := matchups.DeleteTrack(c.UserContext(), middleware.UserID(c), int64(trackID))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"deleted": true, "competitionsReset": n})
	})
}
