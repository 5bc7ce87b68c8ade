package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
)

// Encode builds a versioned envelope around payload.
func Encode(eventType string, version int, payload any, fill func(*orders.Envelope)) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := orders.Envelope{EventType: eventType, EventVersion: version, Payload: raw}
	if fill != nil {
		fill(&env)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return b, nil
}

// UnwrapPayload decodes an envelope payload into its concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
