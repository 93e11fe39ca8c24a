package trip

import (
	"time"

	"backend-routetracker/internal/tracking"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// RegisterRoutes mounts history and details under r (/api/user) and the
// per-day listing under api (/api).
func RegisterRoutes(r fiber.Router, api fiber.Router, svc *Service) {
	r.Get("/history/:userId", func(c *fiber.Ctx) error {
		q := HistoryQuery{
			Limit: c.QueryInt("limit", defaultPageLimit),
			Page:  c.QueryInt("page", 1),
		}
		var err error
		if q.From, err = parseDate(c.Query("startDate")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "startDate must be YYYY-MM-DD")
		}
		if q.To, err = parseDate(c.Query("endDate")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "endDate must be YYYY-MM-DD")
		}
		page, err := svc.History(c.UserContext(), c.Params("userId"), q)
		if err != nil {
			return tracking.HTTPError(err)
		}
		return c.JSON(page)
	})

	r.Get("/route-details/:routeId", func(c *fiber.Ctx) error {
		t, err := svc.Details(c.UserContext(), c.Params("routeId"))
		if err != nil {
			return tracking.HTTPError(err)
		}
		return c.JSON(t)
	})

	api.Get("/routes", func(c *fiber.Ctx) error {
		raw := c.Query("date")
		if raw == "" {
			return fiber.NewError(fiber.StatusBadRequest, "date is required")
		}
		day, err := parseDate(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		trips, err := svc.ByDate(c.UserContext(), day)
		if err != nil {
			return tracking.HTTPError(err)
		}
		return c.JSON(trips)
	})
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}
