package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "JOURNAL_FIXES",
			Subjects:  []string{"journal.fix.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "JOURNAL_DWELLS",
			Subjects:  []string{"journal.dwell.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "JOURNAL_CLUSTERS",
			Subjects:  []string{"journal.cluster.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishFix(ctx context.Context, fix *domain.LocationFix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("journal.fix."+fix.TripID, data)
	return err
}

func (p *Publisher) PublishDwell(ctx context.Context, dwell *domain.DwellEvent) error {
	data, err := json.Marshal(dwell)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("journal.dwell."+dwell.TripID, data)
	return err
}

func (p *Publisher) PublishCluster(ctx context.Context, cluster *domain.PhotoCluster) error {
	data, err := json.Marshal(cluster)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("journal.cluster."+cluster.TripID, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
