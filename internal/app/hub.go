// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 16
	writeWait         = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Hub fans orientation messages out to every connected websocket client.
type Hub struct {
	// forward holds messages to send to every client.
	forward chan []byte
	join    chan *wsClient
	leave   chan *wsClient
	done    chan struct{}

	// clients is owned by Run.
	clients map[*wsClient]bool
}

type wsClient struct {
	socket *websocket.Conn
	send   chan []byte
}

// NewHub returns a hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		forward: make(chan []byte),
		join:    make(chan *wsClient),
		leave:   make(chan *wsClient),
		done:    make(chan struct{}),
		clients: make(map[*wsClient]bool),
	}
}

// Run serves joins, leaves and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.join:
			h.clients[c] = true
			log.Printf("web: client joined (%d connected)", len(h.clients))
		case c := <-h.leave:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			log.Printf("web: client left (%d connected)", len(h.clients))
		case msg := <-h.forward:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow client, drop this message for it
				}
			}
		}
	}
}

// Broadcast queues msg for every client. It returns once the hub has taken
// the message, or immediately when the hub is stopped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.forward <- msg:
	case <-h.done:
	}
}

// ServeHTTP upgrades the request and streams broadcasts to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	c := &wsClient{socket: socket, send: make(chan []byte, messageBufferSize)}

	select {
	case h.join <- c:
	case <-h.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case h.leave <- c:
		case <-h.done:
		}
	}()

	go c.write()
	c.read()
}

// read discards client messages until the connection closes.
func (c *wsClient) read() {
	defer c.socket.Close()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) write() {
	defer c.socket.Close()
	for msg := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
