package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"soundarena-competition/middleware"
	"soundarena-competition/repository"
	"soundarena-competition/services"
)

const genericErrorMessage = "Sorry, we could not process your request."

func errorBody(code, message string) fiber.Map {
	return fiber.Map{"error": fiber.Map{"code": code, "message": message}}
}

// respondError maps service and storage errors onto the API's error bodies.
// Anything unrecognised is logged and answered with a generic 500.
func respondError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var (
		reset        *services.CompetitionResetError
		invalidEntry *services.InvalidEntryError
		missing      *repository.TrackDoesNotExistError
	)
	switch {
	case errors.Is(err, services.ErrOutOfTracks):
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorBody("OUT_OF_TRACKS", "Out of tracks"))
	case errors.As(err, &reset):
		return c.Status(fiber.StatusBadRequest).JSON(middleware.CompetitionResetBody(reset.Competition))
	case errors.Is(err, services.ErrInvalidTrackKey):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_TRACK_KEY", "Invalid track key"))
	case errors.Is(err, services.ErrMatchupIncomplete):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("MATCHUP_INCOMPLETE", "Matchup is not complete"))
	case errors.Is(err, services.ErrWinnerAlreadyChosen):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("WINNER_ALREADY_CHOSEN", "Winner already chosen"))
	case errors.Is(err, services.ErrNoCompetitionEntry):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("NO_COMPETITION_ENTRY", "Enter a track to compete first"))
	case errors.As(err, &invalidEntry):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_REQUEST", "Invalid "+invalidEntry.Field))
	case errors.Is(err, services.ErrTrackNotOwned):
		return c.Status(fiber.StatusForbidden).JSON(errorBody("NOT_AUTHORIZED", "User is not authorized for this action."))
	case errors.As(err, &missing):
		return c.Status(fiber.StatusNotFound).JSON(errorBody("TRACK_NOT_FOUND", "Track not found"))
	case errors.Is(err, repository.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorBody("USER_NOT_FOUND", "User not found"))
	}

	logger.Error("request failed", "method", c.Method(), "path", c.Path(), "user_id", middleware.UserID(c), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": genericErrorMessage})
}
