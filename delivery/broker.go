package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/sony/gobreaker/v2"
	"github.com/twmb/franz-go/pkg/kgo"
)

// BrokerConfig configures the broker delivery channel.
type BrokerConfig struct {
	Brokers        []string
	ProduceTimeout time.Duration
	Breaker        BreakerConfig
}

// BrokerDeliverer produces an event's payload to the topic named by
// its Destination, keyed by ExternalJobID so redeliveries of the same
// job land on the same partition. Any produce error is retriable.
type BrokerDeliverer struct {
	client   *kgo.Client
	timeout  time.Duration
	breakers *breakerPool
	log      *slog.Logger
}

// NewBrokerDeliverer creates a BrokerDeliverer sharing one producer
// client across all topics.
func NewBrokerDeliverer(config *BrokerConfig, log *slog.Logger) (*BrokerDeliverer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(config.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, err
	}
	return &BrokerDeliverer{
		client:   client,
		timeout:  config.ProduceTimeout,
		breakers: newBreakerPool(config.Breaker, log),
		log:      log,
	}, nil
}

func (d *BrokerDeliverer) Deliver(ctx context.Context, ev *eventsched.DeliverableEvent) eventsched.DeliveryResult {
	var produceErr error
	err := d.breakers.run(ev.Destination, func() error {
		produceCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		record := &kgo.Record{
			Topic: ev.Destination,
			Key:   []byte(ev.ExternalJobID),
			Value: ev.Payload,
		}
		produceErr = d.client.ProduceSync(produceCtx, record).FirstErr()
		return produceErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return eventsched.DeliveryResult{Success: false, Retriable: true, Err: err}
	}
	if produceErr != nil {
		return eventsched.DeliveryResult{Success: false, Retriable: true, Err: produceErr}
	}
	return eventsched.DeliveryResult{Success: true}
}

// Close releases the underlying producer client.
func (d *BrokerDeliverer) Close() {
	d.client.Close()
}
