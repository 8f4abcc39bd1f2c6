// Package pubsub is the outbound bus adapter: it republishes Exportable
// events (spec §4.4 step 9's commit fan-out, mirrored onto an external bus
// so other services — read-receipt aggregation, push-notification gateways
// — can react without polling the sync core). Kept in spirit from the
// teacher's internal/adapter/pubsub (EventDispatcher over a watermill
// message.Publisher) but rebuilt directly over watermill-amqp/v3 since the
// teacher's own infra/pubsub/factory indirection was never present in the
// retrieval pack.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	amqptransport "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Publisher is the contract internal/syncengine depends on, so it never has
// to know the transport is AMQP. Publish is a no-op for an Eventer that
// doesn't also implement Exportable.
type Publisher interface {
	Publish(ctx context.Context, ev model.Eventer) error
	Close() error
}

type amqpPublisher struct {
	pub message.Publisher
}

// NewAMQPPublisher opens a durable topic-exchange publisher against url.
// Grounded on watermill-amqp/v3's NewDurablePubSubConfig convention: each
// routing key from Exportable.GetRoutingKey becomes the AMQP topic.
func NewAMQPPublisher(url string, logger watermill.LoggerAdapter) (Publisher, error) {
	cfg := amqptransport.NewDurablePubSubConfig(url, nil)
	cfg.Exchange = amqptransport.ExchangeConfig{
		GenerateName: func(topic string) string { return topic },
		Type:         "topic",
		Durable:      true,
	}

	pub, err := amqptransport.NewPublisher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: new amqp publisher: %w", err)
	}
	return &amqpPublisher{pub: pub}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, ev model.Eventer) error {
	exp, ok := ev.(model.Exportable)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(ev.GetPayload())
	if err != nil {
		return fmt.Errorf("pubsub: marshal event payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pub.Publish(exp.GetRoutingKey(), msg)
}

func (p *amqpPublisher) Close() error {
	return p.pub.Close()
}
