package tracking

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	userIDHeader   = "user-id"
	deviceIDHeader = "device-id"
)

// RegisterRoutes mounts the user-facing tracking endpoints under r (/api/user)
// and the location and route endpoints under admin (/api).
func RegisterRoutes(r fiber.Router, admin fiber.Router, svc *Service) {
	r.Post("/trace-movement", func(c *fiber.Ctx) error {
		var req RawReport
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		id := Identity{
			UserID:   c.Get(userIDHeader),
			DeviceID: c.Get(deviceIDHeader),
		}
		result, err := svc.Ingest(c.UserContext(), req, id)
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	r.Post("/complete-route/:userId", func(c *fiber.Ctx) error {
		trip, err := svc.CloseTrip(c.UserContext(), c.Params("userId"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(trip)
	})

	r.Get("/return-to-start/:routeId", func(c *fiber.Ctx) error {
		nav, err := svc.ReturnToStart(c.UserContext(), c.Params("routeId"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(nav)
	})

	r.Get("/location/:userId", func(c *fiber.Ctx) error {
		p, err := svc.LatestUserPing(c.UserContext(), c.Params("userId"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(p)
	})

	r.Get("/device-location/:deviceId", func(c *fiber.Ctx) error {
		p, err := svc.LatestDevicePing(c.UserContext(), c.Params("deviceId"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(p)
	})

	r.Get("/latest-locations", func(c *fiber.Ctx) error {
		pings, err := svc.LatestPings(c.UserContext(), c.QueryInt("limit", defaultLatestLimit))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(pings)
	})

	admin.Get("/locations", func(c *fiber.Ctx) error {
		from, err := queryInstant(c, "startTime")
		if err != nil {
			return err
		}
		to, err := queryInstant(c, "endTime")
		if err != nil {
			return err
		}
		pings, err := svc.PingsBetween(c.UserContext(), from, to)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(pings)
	})

	admin.Delete("/locations", func(c *fiber.Ctx) error {
		olderThan, err := queryInstant(c, "olderThan")
		if err != nil {
			return err
		}
		n, err := svc.PurgeUnassigned(c.UserContext(), olderThan)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(fiber.Map{"deleted": n})
	})

	admin.Post("/routes", func(c *fiber.Ctx) error {
		var req TripImport
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		trip, err := svc.ImportTrip(c.UserContext(), req)
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	})
}

// queryInstant reads a required time from the query string, given either as
// Unix milliseconds or as an RFC 3339 timestamp.
func queryInstant(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" is required")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 || n > maxTimestampMs {
			return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" is out of range")
		}
		return time.UnixMilli(n).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" must be Unix milliseconds or an RFC 3339 timestamp")
	}
	return t, nil
}
