package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"backend-routetracker/internal/tracking"

	"github.com/redis/go-redis/v9"
)

const channelPattern = "tracking:*:pings"

// Message is what websocket subscribers of a trip receive.
type Message struct {
	Type   string         `json:"type"`
	TripID string         `json:"route_id"`
	Ping   *tracking.Ping `json:"location,omitempty"`
	Trip   *tracking.Trip `json:"route,omitempty"`
}

// Hub fans committed pings out to websocket clients watching a trip. With
// redis configured every replica publishes to a per-trip channel and
// delivers only what comes back through its pattern subscription, so a
// client sees each message once no matter which replica ingested it.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	TripID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Printf("redis subscribe error, delivering locally: %v", err)
			_ = pubsub.Close()
		} else {
			h.pubsub = pubsub
			go h.forward(pubsub.Channel())
		}
	}
	return h
}

func (h *Hub) Register(tripID string) *Client {
	client := &Client{
		TripID: tripID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tripID] == nil {
		h.clients[tripID] = map[*Client]struct{}{}
	}
	h.clients[tripID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tripClients, ok := h.clients[client.TripID]; ok {
		delete(tripClients, client)
		if len(tripClients) == 0 {
			delete(h.clients, client.TripID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(tripID string, payload []byte) {
	if h.pubsub == nil {
		h.deliver(tripID, payload)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(tripID), payload).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
		h.deliver(tripID, payload)
	}
}

// Close stops the redis subscription. Registered clients are left alone.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) PingRecorded(_ context.Context, result tracking.IngestResult) {
	if result.TripID == "" {
		return
	}
	ping := result.Ping
	h.publish(Message{Type: "location", TripID: result.TripID, Ping: &ping})
}

// TripOpened is a no-op: nobody can be watching a trip before its id exists.
func (h *Hub) TripOpened(context.Context, tracking.Trip) {}

func (h *Hub) TripClosed(_ context.Context, trip tracking.Trip) {
	summary := trip
	summary.Pings = nil
	h.publish(Message{Type: "route_completed", TripID: trip.ID, Trip: &summary})
}

func (h *Hub) publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("stream encode error: %v", err)
		return
	}
	h.Broadcast(msg.TripID, payload)
}

func (h *Hub) deliver(tripID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[tripID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(messages <-chan *redis.Message) {
	for msg := range messages {
		tripID := tripIDFromChannel(msg.Channel)
		if tripID == "" {
			continue
		}
		h.deliver(tripID, []byte(msg.Payload))
	}
}

func redisChannel(tripID string) string {
	return "tracking:" + tripID + ":pings"
}

func tripIDFromChannel(ch string) string {
	// tracking:{trip}:pings
	const prefix = "tracking:"
	const suffix = ":pings"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
