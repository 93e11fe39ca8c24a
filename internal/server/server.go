package server

import (
	"context"
	"errors"
	"log"
	"strings"

	"backend-routetracker/internal/config"
	"backend-routetracker/internal/db"
	"backend-routetracker/internal/events"
	"backend-routetracker/internal/metrics"
	"backend-routetracker/internal/stream"
	"backend-routetracker/internal/tracking"
	"backend-routetracker/internal/trip"
	"backend-routetracker/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      db.TxQuerier
	Redis   *redis.Client
	Stream  *stream.Hub
	Events  *events.Publisher
	Metrics *metrics.Collector
}

// NewServer wires the HTTP surface. pool may be nil when Postgres is
// unavailable; only /health, /metrics and /stream work then.
func NewServer(cfg config.Config, pool db.TxQuerier, redisClient *redis.Client, publisher *events.Publisher, collector *metrics.Collector) *Server {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins(cfg),
		AllowHeaders: "Origin, Content-Type, Accept, user-id, device-id",
	}))

	if collector == nil {
		collector = metrics.NewCollector()
	}

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      pool,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient),
		Events:  publisher,
		Metrics: collector,
	}

	registerRoutes(s)
	return s
}

// Close releases the stream subscription and drains the event publisher.
func (s *Server) Close() {
	if err := s.Stream.Close(); err != nil {
		log.Printf("stream close: %v", err)
	}
	s.Events.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(s.Metrics.Handler()))

	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)

	if s.DB == nil {
		log.Printf("no database configured; api routes disabled")
		return
	}

	userSvc := user.NewService(s.DB)
	store := tracking.NewPostgresStore(s.DB)
	trackingSvc := tracking.NewService(store, userSvc, s.notifiers())
	tripSvc := trip.NewService(s.DB, store, userSvc)

	api := s.App.Group("/api")
	userAPI := api.Group("/user")

	user.RegisterRoutes(api.Group("/users"), userSvc)
	tracking.RegisterRoutes(userAPI, api, trackingSvc)
	trip.RegisterRoutes(userAPI, api, tripSvc)
}

func (s *Server) notifiers() tracking.Notifier {
	fan := fanout{s.Stream, s.Metrics}
	if s.Events != nil {
		fan = append(fan, s.Events)
	}
	return fan
}

// fanout forwards each committed change to every notifier in order.
type fanout []tracking.Notifier

func (f fanout) PingRecorded(ctx context.Context, result tracking.IngestResult) {
	for _, n := range f {
		n.PingRecorded(ctx, result)
	}
}

func (f fanout) TripOpened(ctx context.Context, t tracking.Trip) {
	for _, n := range f {
		n.TripOpened(ctx, t)
	}
}

func (f fanout) TripClosed(ctx context.Context, t tracking.Trip) {
	for _, n := range f {
		n.TripClosed(ctx, t)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := tracking.StatusFor(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func allowOrigins(cfg config.Config) string {
	origins := cfg.Origins()
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
