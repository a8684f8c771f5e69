package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Connect dials the broker with unbounded reconnects. Commands published
// while disconnected are buffered by the client and flushed on
// reconnect.
func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("devbay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

type Publisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewPublisher(nc *nats.Conn, log *zap.Logger) *Publisher {
	return &Publisher{nc: nc, log: log}
}

// Enqueue publishes one command on the given subject. The call returns
// once the client has accepted the message; delivery to a worker is
// asynchronous.
func (p *Publisher) Enqueue(subject string, cmd Command) error {
	if p.nc == nil || p.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if err := p.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("command enqueued",
		zap.String("subject", subject),
		zap.String("instanceId", cmd.InstanceId),
	)
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}
