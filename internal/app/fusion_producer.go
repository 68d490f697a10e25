// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/gps"
	"github.com/relabs-tech/fused/internal/sensors"
)

// gpsMaxAge bounds how old a fix may be and still serve as yaw reference.
const gpsMaxAge = 3 * time.Second

// RunFusionProducer fuses every enabled IMU stream with the configured filter
// and publishes orientation and samples to MQTT until interrupted.
func RunFusionProducer() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}

	kind, err := ahrs.ParseKind(cfg.Filter)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	var course *gps.CourseReference
	if cfg.Reference == "gps" {
		course = gps.NewCourseReference(cfg.GPSMinSpeedKnots, gpsMaxAge)
		if err := subscribe(client, cfg.TopicGPS, func(_ mqtt.Client, msg mqtt.Message) {
			var f gps.Fix
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				log.Printf("producer: gps unmarshal error: %v", err)
				return
			}
			course.Update(f)
		}); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topics := map[string][2]string{
		sensors.Left:  {cfg.TopicOrientationLeft, cfg.TopicIMULeft},
		sensors.Right: {cfg.TopicOrientationRight, cfg.TopicIMURight},
	}
	logInterval := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond

	g, ctx := errgroup.WithContext(ctx)
	for _, side := range sensors.Sides(cfg) {
		st, err := sensors.Open(cfg, side)
		if err != nil {
			return err
		}
		d, err := newDriver(cfg, kind, st, course)
		if err != nil {
			return err
		}
		d.Sinks = []fusion.Sink{
			orientationSink(client, topics[side][0]),
			sampleSink(client, topics[side][1]),
			consoleSink(logInterval),
		}
		log.Printf("producer: %s stream from %s -> %s", side, cfg.SampleSource, topics[side][0])

		g.Go(func() error { return d.Run(ctx) })
	}

	err = g.Wait()
	log.Println("producer: shutting down")
	return err
}
