package tracking

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrIdentityNotFound = errors.New("user not found")
	ErrTripNotFound     = errors.New("route not found")
	ErrNoActiveTrip     = errors.New("no active route found for this user")
	ErrEmptyTrip        = errors.New("no locations found for this route")
	ErrPingNotFound     = errors.New("no location found")
)

// ValidationError describes malformed or out-of-range input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// StatusFor maps an engine error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrIdentityNotFound),
		errors.Is(err, ErrTripNotFound),
		errors.Is(err, ErrNoActiveTrip),
		errors.Is(err, ErrEmptyTrip),
		errors.Is(err, ErrPingNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// HTTPError converts err into a *fiber.Error carrying the mapped status.
func HTTPError(err error) error {
	return fiber.NewError(StatusFor(err), err.Error())
}
