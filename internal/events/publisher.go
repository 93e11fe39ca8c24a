package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"backend-routetracker/internal/tracking"

	"github.com/nats-io/nats.go"
)

// PublisherMetrics is implemented by metrics.Collector.
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// Publisher emits route and ping events on NATS subjects under a prefix:
//
//	<prefix>.routes.<owner>.opened
//	<prefix>.routes.<owner>.closed
//	<prefix>.pings.route.<route>
//	<prefix>.pings.device.<device>
type Publisher struct {
	nc      conn
	prefix  string
	metrics PublisherMetrics
}

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	UserID     string         `json:"user_id,omitempty"`
	Route      *tracking.Trip `json:"route,omitempty"`
	Location   *tracking.Ping `json:"location,omitempty"`
}

func Connect(url, prefix string, m PublisherMetrics) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("routetracker-api"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return newPublisher(nc, prefix, m), nil
}

func newPublisher(nc conn, prefix string, m PublisherMetrics) *Publisher {
	if prefix == "" {
		prefix = "routetracker"
	}
	return &Publisher{nc: nc, prefix: prefix, metrics: m}
}

func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Printf("nats drain: %v", err)
	}
	p.nc.Close()
}

func (p *Publisher) PingRecorded(_ context.Context, result tracking.IngestResult) {
	if p == nil {
		return
	}
	ping := result.Ping
	var subject string
	if result.TripID != "" {
		subject = p.subject("pings", "route", result.TripID)
	} else {
		subject = p.subject("pings", "device", ping.DeviceID)
	}
	p.publish(subject, Event{Type: "location.recorded", UserID: ping.UserID, Location: &ping})
}

func (p *Publisher) TripOpened(_ context.Context, trip tracking.Trip) {
	if p == nil {
		return
	}
	p.publish(p.subject("routes", trip.OwnerID, "opened"), Event{Type: "route.opened", UserID: trip.OwnerID, Route: &trip})
}

func (p *Publisher) TripClosed(_ context.Context, trip tracking.Trip) {
	if p == nil {
		return
	}
	summary := trip
	summary.Pings = nil
	p.publish(p.subject("routes", trip.OwnerID, "closed"), Event{Type: "route.closed", UserID: trip.OwnerID, Route: &summary})
}

func (p *Publisher) subject(tokens ...string) string {
	parts := make([]string, 0, len(tokens)+1)
	parts = append(parts, p.prefix)
	for _, t := range tokens {
		parts = append(parts, subjectToken(t))
	}
	return strings.Join(parts, ".")
}

func (p *Publisher) publish(subject string, ev Event) {
	if p.nc == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("nats encode %s: %v", subject, err)
		return
	}
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		log.Printf("nats publish %s: %v", subject, err)
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
