// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.viam.com/test"

	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/orientation"
)

func TestOrientationAPI(t *testing.T) {
	store := newOrientationStore()
	hub := NewHub()
	srv := httptest.NewServer(newWebMux(store, hub, t.TempDir()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orientation")
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusServiceUnavailable)

	store.update(fusion.Output{Stream: "left", Seq: 3, Pose: orientation.Pose{Roll: 12.5}})
	store.update(fusion.Output{Stream: "right", Seq: 9})

	resp, err = http.Get(srv.URL + "/api/orientation")
	test.That(t, err, test.ShouldBeNil)
	var all map[string]fusion.Output
	test.That(t, json.NewDecoder(resp.Body).Decode(&all), test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, len(all), test.ShouldEqual, 2)
	test.That(t, all["left"].Pose.Roll, test.ShouldEqual, 12.5)

	resp, err = http.Get(srv.URL + "/api/orientation?stream=right")
	test.That(t, err, test.ShouldBeNil)
	var one fusion.Output
	test.That(t, json.NewDecoder(resp.Body).Decode(&one), test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, one.Seq, test.ShouldEqual, uint64(9))

	resp, err = http.Get(srv.URL + "/api/orientation?stream=middle")
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusServiceUnavailable)
}

func TestHubBroadcastsToWebsocketClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(newWebMux(newOrientationStore(), hub, t.TempDir()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	// the join races the first broadcast, so keep broadcasting until one lands
	want := []byte(`{"stream":"left"}`)
	received := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-received:
				return
			case <-ticker.C:
				hub.Broadcast(want)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, got, err := conn.ReadMessage()
	close(received)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, want)
}

func TestHubStopsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}
	// broadcasting to a stopped hub must not block
	hub.Broadcast([]byte("late"))
}
