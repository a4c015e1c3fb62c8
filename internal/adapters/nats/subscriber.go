package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// Subscriber consumes journal events from NATS JetStream. The curator
// worker uses it to trigger re-curation when a dwell is confirmed.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeFixes(ctx context.Context, handler func(ctx context.Context, fix *domain.LocationFix) error) error {
	sub, err := s.js.Subscribe("journal.fix.>", func(msg *nats.Msg) {
		var fix domain.LocationFix
		if err := json.Unmarshal(msg.Data, &fix); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &fix); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("fix-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeDwells(ctx context.Context, handler func(ctx context.Context, dwell *domain.DwellEvent) error) error {
	sub, err := s.js.Subscribe("journal.dwell.>", func(msg *nats.Msg) {
		var dwell domain.DwellEvent
		if err := json.Unmarshal(msg.Data, &dwell); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &dwell); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("dwell-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeClusters(ctx context.Context, handler func(ctx context.Context, cluster *domain.PhotoCluster) error) error {
	sub, err := s.js.Subscribe("journal.cluster.>", func(msg *nats.Msg) {
		var cluster domain.PhotoCluster
		if err := json.Unmarshal(msg.Data, &cluster); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &cluster); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("cluster-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
