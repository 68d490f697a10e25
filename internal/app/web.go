// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
)

// orientationStore keeps the latest Output per stream.
type orientationStore struct {
	mu     sync.RWMutex
	latest map[string]fusion.Output
}

func newOrientationStore() *orientationStore {
	return &orientationStore{latest: make(map[string]fusion.Output)}
}

func (s *orientationStore) update(out fusion.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[out.Stream] = out
}

// handleOrientation serves the latest outputs, all streams or ?stream=name.
func (s *orientationStore) handleOrientation(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body any = s.latest
	if name := r.URL.Query().Get("stream"); name != "" {
		out, ok := s.latest[name]
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		body = out
	} else if len(s.latest) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// newWebMux wires the JSON API, the websocket stream and static files.
func newWebMux(store *orientationStore, hub *Hub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", store.handleOrientation)
	mux.Handle("/ws", hub)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb serves the latest orientation over HTTP and streams every update to
// websocket clients.
func RunWeb() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}

	store := newOrientationStore()
	hub := NewHub()
	go hub.Run(context.Background())

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var out fusion.Output
		if err := json.Unmarshal(msg.Payload(), &out); err != nil {
			log.Printf("MQTT payload unmarshal error: %v", err)
			return
		}
		store.update(out)
		hub.Broadcast(msg.Payload())
	}
	for _, topic := range []string{cfg.TopicOrientationLeft, cfg.TopicOrientationRight} {
		if err := subscribe(client, topic, handler); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(store, hub, "web"))
}
