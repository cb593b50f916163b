package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"microposts/domain"
	pkglog "microposts/log"
)

// msgConn is the part of *nats.Conn used by NatsPublisher.
type msgConn interface {
	PublishMsg(msg *nats.Msg) error
	Drain() error
}

// NatsPublisher publishes relation events on core NATS subjects.
type NatsPublisher struct {
	nc msgConn
}

// NewNatsPublisher connects to the NATS server at url.
func NewNatsPublisher(url string) (*NatsPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("microposts"),
		nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NatsPublisher{nc: nc}, nil
}

var _ domain.EventPublisher = (*NatsPublisher)(nil)

// Publish sends the event as JSON to its subject. The request id of ctx,
// if any, travels in the X-Request-ID header.
func (p *NatsPublisher) Publish(ctx context.Context, event domain.RelationEvent) error {
	msg, err := newMsg(ctx, event)
	if err != nil {
		return err
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func newMsg(ctx context.Context, event domain.RelationEvent) (*nats.Msg, error) {
	data, err := encode(event)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{
		Subject: Subject(event),
		Data:    data,
		Header:  nats.Header{},
	}
	if id := pkglog.RequestID(ctx); id != "" {
		msg.Header.Set(pkglog.HeaderRequestID, id)
	}
	return msg, nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
