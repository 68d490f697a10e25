// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/gps"
	"github.com/relabs-tech/fused/internal/imu"
)

// RunConsoleMQTT prints everything the producers publish.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	orientationHandler := func(tag string) mqtt.MessageHandler {
		return func(_ mqtt.Client, msg mqtt.Message) {
			var out fusion.Output
			if err := json.Unmarshal(msg.Payload(), &out); err != nil {
				log.Printf("console: %s unmarshal error: %v", tag, err)
				return
			}
			fmt.Printf("[%s] %s\n", tag, formatOutput(out))
		}
	}

	sampleHandler := func(tag string) mqtt.MessageHandler {
		return func(_ mqtt.Client, msg mqtt.Message) {
			var s imu.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: %s unmarshal error: %v", tag, err)
				return
			}
			fmt.Printf(
				"[%s] gx=%8.4f gy=%8.4f gz=%8.4f  ax=%7.3f ay=%7.3f az=%7.3f  mx=%7.2f my=%7.2f mz=%7.2f\n",
				tag, s.Gx, s.Gy, s.Gz, s.Ax, s.Ay, s.Az, s.Mx, s.My, s.Mz,
			)
		}
	}

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.TopicOrientationLeft, orientationHandler("ORI-L")},
		{cfg.TopicOrientationRight, orientationHandler("ORI-R")},
		{cfg.TopicIMULeft, sampleHandler("IMU-L")},
		{cfg.TopicIMURight, sampleHandler("IMU-R")},
		{cfg.TopicGPS, func(_ mqtt.Client, msg mqtt.Message) {
			var f gps.Fix
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				log.Printf("console: gps unmarshal error: %v", err)
				return
			}
			fmt.Printf(
				"[GPS  ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s\n",
				f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
			)
		}},
	}
	for _, s := range subs {
		if err := subscribe(client, s.topic, s.handler); err != nil {
			return err
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
