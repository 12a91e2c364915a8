// Copyright 2026 Blink Labs Software
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

package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/event"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxStreamReadSize  = 512
	streamBufferEvents = 64
)

var (
	errStreamClosed = errors.New("event stream closed")
	errStreamFull   = errors.New("event stream buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	// Origin checks are left to the proxy that authenticates callers
	CheckOrigin: func(*http.Request) bool { return true },
}

var streamEventTypes = []event.EventType{
	event.TransactionUpdateEventType,
	event.TransactionStatusUpdateEventType,
}

type streamMessage struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      any             `json:"data"`
	ID        string          `json:"id"`
	Type      event.EventType `json:"type"`
}

// streamSubscriber buffers events for one websocket client. Deliver never
// blocks. A client that falls behind is dropped by the bus.
type streamSubscriber struct {
	events    chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newStreamSubscriber() *streamSubscriber {
	return &streamSubscriber{
		events: make(chan event.Event, streamBufferEvents),
		done:   make(chan struct{}),
	}
}

func (s *streamSubscriber) Deliver(evt event.Event) error {
	select {
	case <-s.done:
		return errStreamClosed
	default:
	}
	select {
	case s.events <- evt:
		return nil
	default:
		return errStreamFull
	}
}

func (s *streamSubscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so no event published after
	// the client connects is missed
	sub := newStreamSubscriber()
	subIDs := make(map[event.EventType]event.EventSubscriberId, len(streamEventTypes))
	for _, eventType := range streamEventTypes {
		subIDs[eventType] = a.eventBus.RegisterSubscriber(eventType, sub)
	}
	unsubscribe := func() {
		for eventType, subID := range subIDs {
			a.eventBus.Unsubscribe(eventType, subID)
		}
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		// The upgrader has already replied
		a.logger.Debug(
			"failed to upgrade event stream",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		return
	}
	a.logger.Debug(
		"event stream opened",
		"remote_addr", r.RemoteAddr,
		"request_id", requestID(r.Context()),
	)

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer sub.Close()
		conn.SetReadLimit(maxStreamReadSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			// Clients only send control frames
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	a.writeStream(conn, sub)

	unsubscribe()
	_ = conn.Close()
	<-readerDone
	a.logger.Debug("event stream closed", "remote_addr", r.RemoteAddr)
}

func (a *API) writeStream(conn *websocket.Conn, sub *streamSubscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sub.done:
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		case evt := <-sub.events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteJSON(streamMessage{
				ID:        uuid.NewString(),
				Type:      evt.Type,
				Timestamp: evt.Timestamp,
				Data:      evt.Data,
			})
			if err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
