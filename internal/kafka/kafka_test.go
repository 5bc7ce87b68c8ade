package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/logging"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
	err    error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &memWriter{}
	p := newProducer(logging.Discard(), w, 16)
	p.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish(context.Background(), []byte("k"), []byte{byte(i)}))
	}
	p.Close()
	p.Close()
	p.WaitClosed()

	assert.Len(t, w.msgs, 5)
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), nil, nil), ErrProducerClosed)
}

func TestProducer_WriteErrorsAreLoggedNotFatal(t *testing.T) {
	w := &memWriter{err: errors.New("broker down")}
	p := newProducer(logging.Discard(), w, 1)
	p.Start()

	require.NoError(t, p.Publish(context.Background(), nil, []byte("a")))
	require.NoError(t, p.Publish(context.Background(), nil, []byte("b")))
	p.Close()
	p.WaitClosed()
	assert.Len(t, w.msgs, 2)
}

func TestProducer_PublishHonoursContextWhenFull(t *testing.T) {
	p := newProducer(logging.Discard(), &memWriter{}, 1)
	// not started: the inbox fills after one message
	require.NoError(t, p.Publish(context.Background(), nil, []byte("a")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Publish(ctx, nil, []byte("b")), context.DeadlineExceeded)

	p.Start()
	p.Close()
	p.WaitClosed()
}

func TestOrderEvents_PublishesEnvelope(t *testing.T) {
	w := &memWriter{}
	p := newProducer(logging.Discard(), w, 4)
	p.Start()
	ev := &OrderEvents{Producer: p, Service: "checkout-api"}

	o := orders.Order{
		ID:         "o-1",
		UserID:     "u1",
		Lines:      []orders.OrderLine{{ProductID: "a", Quantity: 2, UnitPriceCents: 150}},
		TotalCents: 300,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, ev.PublishOrderPlaced(context.Background(), o))
	p.Close()
	p.WaitClosed()

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, []byte("o-1"), m.Key)
	assert.Contains(t, m.Headers, kafka.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)})

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	assert.Equal(t, orders.EventOrderPlaced, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "checkout-api", env.Producer)
	assert.Equal(t, "o-1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	payload, err := UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(300), payload.TotalCents)
	assert.Equal(t, []orders.ItemPrice{{ProductID: "a", Qty: 2, PriceCents: 150}}, payload.Items)
}

type memReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *memReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *memReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	r := &memReader{pending: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	c := newConsumer(logging.Discard(), r, 2)
	c.backoff = time.Millisecond

	var mu sync.Mutex
	var handled int
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		handled++
		mu.Unlock()
		if m.Offset == 2 {
			return errors.New("poison")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return r.committedCount() == 2 && handled == 2+c.attempts
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []int64{1, 3}, r.committed)
	mu.Lock()
	assert.Equal(t, 2+c.attempts, handled, "the failing message is retried before it is skipped")
	mu.Unlock()
	assert.True(t, r.closed)
}

func TestEncode(t *testing.T) {
	b, err := Encode("OrderPlaced", 2, map[string]int{"n": 1}, func(env *orders.Envelope) { env.EventID = "e-1" })
	require.NoError(t, err)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(b, &env))
	assert.Equal(t, "e-1", env.EventID)
	assert.Equal(t, 2, env.EventVersion)
	assert.JSONEq(t, `{"n":1}`, string(env.Payload))

	_, err = Encode("OrderPlaced", 1, make(chan int), nil)
	assert.ErrorContains(t, err, "encode OrderPlaced payload")
}
