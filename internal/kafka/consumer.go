package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/logx"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *zap.Logger
}

// ConsumerOption adjusts the reader before it is created.
type ConsumerOption func(*kafka.ReaderConfig)

// FromLatest makes a new group start at the end of the topic instead of
// replaying it. Used by per-replica groups that only care about live events.
func FromLatest() ConsumerOption {
	return func(rc *kafka.ReaderConfig) { rc.StartOffset = kafka.LastOffset }
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger, opts ...ConsumerOption) *Consumer {
	rc := kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	}
	for _, o := range opts {
		o(&rc)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: kafka.NewReader(rc), workers: workers, log: logx.OrNop(log).With(zap.String("topic", topic), zap.String("group", group))}
}

// FanoutGroup is the consumer group of one replica's fan-in reader. Each
// replica needs its own group to see every event on the topic.
func FanoutGroup(prefix, instance string) string {
	return prefix + "-" + instance
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					report(errs, err)
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					report(errs, err)
				}
			}
		}()
	}
	stop := func() {
		close(jobs)
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			stop()
			return nil
		}

		// drain without blocking so a failing worker cannot stall dispatch
		select {
		case e := <-errs:
			c.log.Warn("worker error", zap.Error(e))
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}

func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
