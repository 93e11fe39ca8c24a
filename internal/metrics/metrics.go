package metrics

import (
	"context"
	"net/http"

	"backend-routetracker/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	PingsIngested *prometheus.CounterVec // kind label: route|unassigned
	TripsOpened   prometheus.Counter
	TripsClosed   prometheus.Counter

	TripDistance prometheus.Histogram // meters, observed at close
	TripDuration prometheus.Histogram // seconds, observed at close

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routetracker_pings_ingested_total",
			Help: "Pings stored, by whether they joined a route.",
		}, []string{"kind"}),
		TripsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routetracker_routes_opened_total",
			Help: "Routes opened by a first ping.",
		}),
		TripsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routetracker_routes_closed_total",
			Help: "Routes completed.",
		}),
		TripDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "routetracker_route_distance_meters",
			Help:    "Cumulative distance of completed routes.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12),
		}),
		TripDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "routetracker_route_duration_seconds",
			Help:    "Duration of completed routes.",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routetracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routetracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routetracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.PingsIngested, c.TripsOpened, c.TripsClosed,
		c.TripDistance, c.TripDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) PingRecorded(_ context.Context, result tracking.IngestResult) {
	kind := "route"
	if result.TripID == "" {
		kind = "unassigned"
	}
	c.PingsIngested.WithLabelValues(kind).Inc()
}

func (c *Collector) TripOpened(context.Context, tracking.Trip) { c.TripsOpened.Inc() }

func (c *Collector) TripClosed(_ context.Context, trip tracking.Trip) {
	c.TripsClosed.Inc()
	c.TripDistance.Observe(trip.DistanceM)
	c.TripDuration.Observe(float64(trip.DurationSeconds))
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
