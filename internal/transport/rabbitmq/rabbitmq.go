// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package rabbitmq implements transport.Transport over a real broker,
// grounded in the teacher's
// components/consumer/internal/adapters/rabbitmq/producer.rabbitmq.go
// (publish shape, content-type/delivery-mode/headers) and
// components/audit/internal/adapters/rabbitmq/consumer.rabbitmq.go
// (Channel.Consume loop), generalized from a single hard-coded queue to
// the (exchange, routing key) pair wmodel.Destination carries.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	libRabbitmq "github.com/LerianStudio/lib-commons/v2/commons/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/LerianStudio/workhub/internal/transport"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// Transport publishes envelopes with publisher confirms and consumes them
// back with manual acknowledgement, so a handler error leaves the
// delivery unacked for broker-level redelivery -- the "transient
// transport error" path of spec §7.
type Transport struct {
	conn *libRabbitmq.RabbitMQConnection
}

// New wraps an already-connected RabbitMQConnection (the same
// ConnectionStringSource/Host/Port/User/Pass/Logger shape the teacher's
// bootstrap wiring builds).
func New(conn *libRabbitmq.RabbitMQConnection) (*Transport, error) {
	if _, err := conn.GetNewConnect(); err != nil {
		return nil, fmt.Errorf("workhub: connect rabbitmq: %w", err)
	}

	if err := conn.Channel.Confirm(false); err != nil {
		return nil, fmt.Errorf("workhub: enable publisher confirms: %w", err)
	}

	return &Transport{conn: conn}, nil
}

// Ready implements transport.Transport via the connection's own health
// check, the same CheckRabbitMQHealth the teacher's producer exposes.
func (t *Transport) Ready(context.Context) bool {
	return t.conn.HealthCheck()
}

// Publish implements transport.Transport.
func (t *Transport) Publish(ctx context.Context, env wmodel.Envelope, destination wmodel.Destination) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("workhub: marshal envelope: %w", err)
	}

	confirms := t.conn.Channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = t.conn.Channel.PublishWithContext(ctx,
		destination.Address,
		destination.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.MessageID,
			Headers:      amqp.Table{"envelope_type": env.EnvelopeType},
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("workhub: publish envelope %s: %w", env.MessageID, err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("workhub: broker nacked envelope %s", env.MessageID)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Subscribe implements transport.Transport: it registers a manual-ack
// consumer on destination.Address and runs handler for every delivery
// until the subscription is disposed.
func (t *Transport) Subscribe(ctx context.Context, destination wmodel.Destination, handler transport.Handler) (transport.Subscription, error) {
	consumerTag := "workhub-" + destination.Address

	deliveries, err := t.conn.Channel.Consume(
		destination.Address,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("workhub: consume %s: %w", destination.Address, err)
	}

	sub := &subscription{channel: t.conn.Channel, consumerTag: consumerTag, pauseCh: make(chan bool, 1)}

	go sub.run(ctx, deliveries, handler)

	return sub, nil
}

type subscription struct {
	channel     *amqp.Channel
	consumerTag string
	pauseCh     chan bool
}

func (s *subscription) run(ctx context.Context, deliveries <-chan amqp.Delivery, handler transport.Handler) {
	paused := false

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-s.pauseCh:
			if !ok {
				return
			}

			paused = p

			continue
		case d, ok := <-deliveries:
			if !ok {
				return
			}

			if paused {
				_ = d.Nack(false, true)
				continue
			}

			var env wmodel.Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				_ = d.Nack(false, false)
				continue
			}

			if err := handler(ctx, env); err != nil {
				_ = d.Nack(false, true)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

func (s *subscription) Pause(context.Context) error {
	select {
	case s.pauseCh <- true:
	default:
	}

	return nil
}

func (s *subscription) Resume(context.Context) error {
	select {
	case s.pauseCh <- false:
	default:
	}

	return nil
}

func (s *subscription) Dispose(context.Context) error {
	close(s.pauseCh)

	return s.channel.Cancel(s.consumerTag, false)
}
