// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package audit

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TopicSecurityEvents is the pub/sub topic audit events are fanned out on.
const TopicSecurityEvents = "audit.events"

// Publisher fans audit events out to in-process subscribers, so alerting
// rules can react to denials and blocks without a hook into the write path.
type Publisher struct {
	pubSub *gochannel.GoChannel
}

// NewPublisher creates an in-process publisher.
func NewPublisher(logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	return &Publisher{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger),
	}
}

// Publish sends one event to all current subscribers.
func (p *Publisher) Publish(event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("severity", string(event.Severity))

	return p.pubSub.Publish(TopicSecurityEvents, msg)
}

// Subscribe returns a channel of audit event messages. Subscribers must ack
// every message; payloads decode with DecodeEvent.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubSub.Subscribe(ctx, TopicSecurityEvents)
}

// Close shuts the pub/sub down and releases subscriber channels.
func (p *Publisher) Close() error {
	return p.pubSub.Close()
}

// DecodeEvent unmarshals a published message back into an Event.
func DecodeEvent(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
