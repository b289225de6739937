package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventMessageReceived is published once per accepted message.
const EventMessageReceived = "message.received"

const attrEvent = "event"

// MessageReceived is the payload of EventMessageReceived. It never carries
// the message text.
type MessageReceived struct {
	Username   string    `json:"username"`
	MessageID  int64     `json:"message_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// Publisher emits inbox events.
type Publisher interface {
	PublishMessageReceived(ctx context.Context, event MessageReceived) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishMessageReceived(ctx context.Context, event MessageReceived) error {
	return nil
}

// EventPublisher publishes inbox events on a single channel.
type EventPublisher struct {
	mq      *MQ
	channel string
}

// NewEventPublisher constructs a publisher writing to channel.
func NewEventPublisher(m *MQ, channel string) *EventPublisher {
	return &EventPublisher{mq: m, channel: channel}
}

func (p *EventPublisher) PublishMessageReceived(ctx context.Context, event MessageReceived) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = p.mq.Publish(ctx, p.channel, data, map[string]string{attrEvent: EventMessageReceived})
	return err
}

// DecodeMessageReceived parses a delivered message.
func DecodeMessageReceived(msg Message) (MessageReceived, error) {
	if kind := msg.Attributes[attrEvent]; kind != "" && kind != EventMessageReceived {
		return MessageReceived{}, fmt.Errorf("unexpected event %q", kind)
	}
	var event MessageReceived
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return MessageReceived{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}
