package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rkany/pigeon/pkg/logger"
	"github.com/rkany/pigeon/pkg/types"
)

// Socket is a live connection to the server's push endpoint. It implements
// Stream for the reconciler.
type Socket struct {
	conn *websocket.Conn

	mu       sync.RWMutex
	handlers map[int]func(types.Message)
	nextID   int

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the server's live endpoint, authenticating with the
// session token, and starts the read pump.
func Dial(serverURL, token string) (*Socket, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/v1/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	s := &Socket{
		conn:     conn,
		handlers: make(map[int]func(types.Message)),
		done:     make(chan struct{}),
	}
	go s.readPump()

	return s, nil
}

// SubscribeNewMessages registers a handler for newMessage events and returns
// a cancel function that removes it.
func (s *Socket) SubscribeNewMessages(handler func(types.Message)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// Close tears down the connection and stops the read pump.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) readPump() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				logger.Warnf("Live socket read error: %v", err)
			}
			return
		}

		var event types.Event
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Warnf("Malformed live frame: %v", err)
			continue
		}
		if event.Type != types.EventNewMessage {
			continue
		}

		var msg types.Message
		if err := json.Unmarshal(event.Data, &msg); err != nil {
			logger.Warnf("Malformed newMessage payload: %v", err)
			continue
		}

		s.mu.RLock()
		handlers := make([]func(types.Message), 0, len(s.handlers))
		for _, h := range s.handlers {
			handlers = append(handlers, h)
		}
		s.mu.RUnlock()

		// Events apply in arrival order; handlers run on the pump goroutine.
		for _, h := range handlers {
			h(msg)
		}
	}
}
