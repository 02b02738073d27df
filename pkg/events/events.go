// Package events publishes meeting changes over Redis pub/sub and hands out
// caller-owned subscriptions to them. Delivery is at-least-once from the
// consumer's point of view, so consumers must tolerate repeated events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

const DefaultChannel = "events.meetings.changed"

type Kind string

const (
	KindCreated     Kind = "created"
	KindCancelled   Kind = "cancelled"
	KindCompleted   Kind = "completed"
	KindRescheduled Kind = "rescheduled"
	KindUpdated     Kind = "updated"
)

type MeetingEvent struct {
	Kind    Kind           `json:"kind"`
	Meeting models.Meeting `json:"meeting"`
	At      time.Time      `json:"at"`
}

type Publisher struct {
	log     *logrus.Entry
	client  *redis.Client
	channel string
}

func NewPublisher(log *logrus.Logger, client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		log:     log.WithField("component", "events"),
		client:  client,
		channel: channel,
	}
}

func (p *Publisher) Publish(ctx context.Context, events ...MeetingEvent) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("err marshaling %s event: %w", ev.Kind, err)
		}
		if err = p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("err publishing %s event for %s: %w", ev.Kind, ev.Meeting.ID, err)
		}
	}
	return nil
}

// Subscribe starts listening. Only events accepted by keep are delivered; a
// nil keep accepts everything. The caller must Close the subscription.
func (p *Publisher) Subscribe(ctx context.Context, keep func(MeetingEvent) bool) (*Subscription, error) {
	ps := p.client.Subscribe(ctx, p.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("err subscribing to %s: %w", p.channel, err)
	}
	s := &Subscription{
		log:    p.log,
		ps:     ps,
		keep:   keep,
		events: make(chan MeetingEvent),
		done:   make(chan struct{}),
	}
	go s.run(ps.Channel())
	return s, nil
}

type Subscription struct {
	log    *logrus.Entry
	ps     *redis.PubSub
	keep   func(MeetingEvent) bool
	events chan MeetingEvent
	done   chan struct{}
	once   sync.Once
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan MeetingEvent {
	return s.events
}

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *Subscription) run(messages <-chan *redis.Message) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				s.log.Warnf("err decoding event: %v", err)
				continue
			}
			if s.keep != nil && !s.keep(ev) {
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

func Decode(payload []byte) (MeetingEvent, error) {
	var ev MeetingEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return MeetingEvent{}, err
	}
	if ev.Kind == "" || ev.Meeting.ID == "" {
		return MeetingEvent{}, fmt.Errorf("incomplete event %q", payload)
	}
	return ev, nil
}
