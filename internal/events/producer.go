package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"hail/internal/domain"
)

// Event types emitted on the ride lifecycle stream.
const (
	TypeRideCreated   = "ride.created"
	TypeRideConfirmed = "ride.confirmed"
	TypeRideStarted   = "ride.started"
	TypeRideCompleted = "ride.completed"
	TypeRideCancelled = "ride.cancelled"
)

// RideEvent is the payload published for each lifecycle transition.
type RideEvent struct {
	Type      string            `json:"type"`
	RideID    string            `json:"ride_id"`
	RiderID   string            `json:"rider_id"`
	CaptainID string            `json:"captain_id,omitempty"`
	Status    domain.RideStatus `json:"status"`
	At        time.Time         `json:"at"`
}

// Producer publishes ride lifecycle events to Kafka. Publishing is
// fire-and-forget from the caller's point of view: errors are returned for
// logging only and nothing downstream depends on delivery.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w}
}

// Publish writes one event keyed by ride ID so per-ride ordering holds.
func (p *Producer) Publish(ctx context.Context, event RideEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.RideID), Value: b})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
