package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber streams report events as they are published.
type Subscriber interface {
	// Subscribe delivers new events for target, or for every wallet when
	// target is empty. Delivery stops when ctx is done; the channel is
	// never closed, so readers select on ctx as well.
	Subscribe(ctx context.Context, target string) (<-chan *ReportEvent, error)

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamSubscriber reads report events from the WALLET_LINKS stream.
type JetStreamSubscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSubscriber connects to NATS for consuming report events.
func NewSubscriber(natsURL string, logger *slog.Logger) (*JetStreamSubscriber, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("walletlink-subscriber"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	logger.Info("NATS subscriber initialized", "url", natsURL)

	return &JetStreamSubscriber{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Subscribe creates an ephemeral consumer that only sees events published
// after the call.
func (s *JetStreamSubscriber) Subscribe(ctx context.Context, target string) (<-chan *ReportEvent, error) {
	subject := StreamSubjects
	if target != "" {
		subject = Subject(target)
	}

	cons, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	events := make(chan *ReportEvent, 10)
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		defer msg.Ack()

		var event ReportEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			s.logger.WarnContext(ctx, "failed to unmarshal report event",
				"subject", msg.Subject(),
				"error", err,
			)
			return
		}

		select {
		case events <- &event:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()

	return events, nil
}

// Close closes the connection to NATS.
func (s *JetStreamSubscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info("NATS subscriber closed")
	}
	return nil
}
