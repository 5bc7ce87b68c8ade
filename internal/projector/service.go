package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-cart-checkout/internal/kafka"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

type StatsStore interface {
	MarkSeen(ctx context.Context, service, eventID string) (bool, error)
	Forget(ctx context.Context, service, eventID string) error
	Record(ctx context.Context, items []orders.ItemPrice) error
}

// Service folds order.placed events into per-product sales totals.
type Service struct {
	Stats       StatsStore
	ServiceName string
	Log         *slog.Logger
}

// HandleOrderPlaced is installed as the consumer handler. Each event id is counted once.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// a malformed message will never decode; drop it so the partition keeps moving
		s.Log.Error("drop undecodable message", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Error("drop event with bad payload", "event_id", env.EventID, "err", err)
		return nil
	}

	first, err := s.Stats.MarkSeen(ctx, s.ServiceName, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		s.Log.Debug("duplicate event skipped", "event_id", env.EventID)
		return nil
	}

	if err := s.Stats.Record(ctx, p.Items); err != nil {
		// unmark so the redelivered message is counted
		if ferr := s.Stats.Forget(context.WithoutCancel(ctx), s.ServiceName, env.EventID); ferr != nil {
			s.Log.Error("forget event failed", "event_id", env.EventID, "err", ferr)
		}
		return fmt.Errorf("record order %s: %w", p.OrderID, err)
	}
	s.Log.Info("order projected", "order_id", p.OrderID, "items", len(p.Items), "trace_id", env.TraceID)
	return nil
}
