package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message is fully processed and its offset may be
// committed.
type Handler func(ctx context.Context, m kafka.Message) error

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r        MessageReader
	workers  int
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

func NewConsumer(log *slog.Logger, brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit synchronously after each handled message
	})
	return newConsumer(log, r, workers)
}

func newConsumer(log *slog.Logger, r MessageReader, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, attempts: 3, backoff: 200 * time.Millisecond, log: log}
}

// Start fetches until ctx ends, fanning messages out to the worker pool. It returns nil on
// shutdown and the fetch error otherwise; workers are drained before it returns.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, c.workers*4)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := c.handle(ctx, h, m); err != nil {
					c.log.Error("handle message failed", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "err", err)
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Error("commit failed", "offset", m.Offset, "err", err)
				}
			}
		}()
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// handle retries transient failures with a linear backoff. A later commit on the same
// partition moves the offset past a message that still failed, so retrying here is the only
// redelivery it gets while the consumer stays up.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) error {
	var err error
	for i := 1; i <= c.attempts; i++ {
		if err = h(ctx, m); err == nil {
			return nil
		}
		if i == c.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * c.backoff):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
