package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const eventVersion = 1

// OrderEvents publishes order lifecycle events as versioned envelopes.
type OrderEvents struct {
	Producer *Producer
	Service  string
}

func (e *OrderEvents) PublishOrderPlaced(ctx context.Context, o orders.Order) error {
	value, err := Encode(orders.EventOrderPlaced, eventVersion, orders.OrderPlacedFrom(o), func(env *orders.Envelope) {
		env.EventID = uuid.NewString()
		env.OccurredAt = time.Now().UTC()
		env.Producer = e.Service
		env.TraceID = middleware.GetReqID(ctx)
		env.CorrelationID = o.ID
	})
	if err != nil {
		return err
	}
	err = e.Producer.Publish(ctx, orders.PartitionKey(o.ID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", orders.EventOrderPlaced, err)
	}
	return nil
}
