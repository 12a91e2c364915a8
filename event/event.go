// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. The in-memory channel subscriber
// and the websocket stream both implement it. Close must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

const (
	subscriberKindMemory = "in-memory"
	subscriberKindRemote = "remote"
)

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return subscriberKindMemory
	}
	return subscriberKindRemote
}

// channelSubscriber delivers into a buffered channel. Deliver blocks while
// the buffer is full.
type channelSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{
		ch: make(chan Event, buffer),
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	// The read lock makes Close wait for in-flight sends
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	c.ch <- evt
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

// EventBus fans events out to subscribers by type
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	metrics     *eventMetrics
	logger      *slog.Logger
	asyncQueue  chan asyncEvent
	stopCh      chan struct{}
	asyncWg     sync.WaitGroup
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	stopOnce    sync.Once
	stopMu      sync.RWMutex
	stopped     bool
}

// NewEventBus creates a new EventBus and starts its async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		logger:      logger,
		asyncQueue:  make(chan asyncEvent, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker()
	}
	return e
}

func (e *EventBus) asyncWorker() {
	defer e.asyncWg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case ae := <-e.asyncQueue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

func (e *EventBus) addSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), subscriberKind(sub)).
			Inc()
	}
	return subId
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	chSub := newChannelSubscriber(EventQueueSize)
	return e.addSubscriber(eventType, chSub), chSub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via
// a callback function. The callback runs on its own goroutine until the
// subscription ends.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds an externally implemented subscriber, such as a
// network stream
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	return e.addSubscriber(eventType, sub)
}

// Unsubscribe stops delivery of events for a particular type for an existing
// subscriber and closes it
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub Subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		sub = evtTypeSubs[subId]
		delete(evtTypeSubs, subId)
		if len(evtTypeSubs) == 0 {
			delete(e.subscribers, eventType)
		}
	}
	e.mu.Unlock()
	if sub == nil {
		return
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), subscriberKind(sub)).
			Dec()
	}
	sub.Close()
}

// Publish delivers an event to every subscriber of its type, in the calling
// goroutine. A subscriber whose delivery fails is removed.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := make(map[EventSubscriberId]Subscriber, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		subs[id] = sub
	}
	e.mu.RUnlock()
	for id, sub := range subs {
		err := deliver(sub, evt)
		if err == nil {
			continue
		}
		e.Unsubscribe(eventType, id)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType), subscriberKind(sub)).
				Inc()
		}
		e.logger.Debug(
			"event delivery error",
			"component", "event",
			"type", eventType,
			"error", err,
		)
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync enqueues an event for delivery by the worker pool. It returns
// false if the bus is stopped or the queue is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"component", "event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType), "async-dropped").
				Inc()
		}
		return false
	}
}

// Stop halts the worker pool and closes every subscriber. Events still
// queued for async delivery are dropped.
func (e *EventBus) Stop() {
	e.stopOnce.Do(func() {
		e.stopMu.Lock()
		e.stopped = true
		e.stopMu.Unlock()
		close(e.stopCh)
		e.asyncWg.Wait()

		e.mu.Lock()
		subsCopy := e.subscribers
		e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
		e.mu.Unlock()
		for _, evtTypeSubs := range subsCopy {
			for _, sub := range evtTypeSubs {
				sub.Close()
			}
		}
		if e.metrics != nil {
			e.metrics.subscribers.Reset()
		}
	})
}
