// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/orientation"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// DisplayData holds the latest output per stream.
type DisplayData struct {
	mu     sync.RWMutex
	latest map[string]fusion.Output
}

func (d *DisplayData) update(out fusion.Output) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.latest == nil {
		d.latest = make(map[string]fusion.Output)
	}
	d.latest[out.Stream] = out
}

// snapshot returns the outputs ordered by stream name.
func (d *DisplayData) snapshot() []fusion.Output {
	d.mu.RLock()
	defer d.mu.RUnlock()
	outs := make([]fusion.Output, 0, len(d.latest))
	for _, out := range d.latest {
		outs = append(outs, out)
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i].Stream < outs[j].Stream })
	return outs
}

// RunDisplay shows the fused orientation on an SSD1306 OLED. With two
// streams the display alternates between them on every update.
func RunDisplay() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderLines("fused", "AHRS", "Waiting..."), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var out fusion.Output
		if err := json.Unmarshal(msg.Payload(), &out); err != nil {
			log.Printf("display: orientation unmarshal error: %v", err)
			return
		}
		data.update(out)
	}
	for _, topic := range []string{cfg.TopicOrientationLeft, cfg.TopicOrientationRight} {
		if err := subscribe(client, topic, handler); err != nil {
			return fmt.Errorf("display: %w", err)
		}
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	frame := 0
	for range ticker.C {
		outs := data.snapshot()
		var img *image1bit.VerticalLSB
		if len(outs) == 0 {
			img = renderLines("Orientation", "Waiting...")
		} else {
			img = renderOrientation(outs[frame%len(outs)])
		}
		frame++

		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

// orientationLines formats one output into at most four display lines.
func orientationLines(out fusion.Output) []string {
	lines := []string{
		fmt.Sprintf("%s %s", out.Stream, out.Filter),
		fmt.Sprintf("R:%6.1f P:%6.1f", out.Pose.Roll, out.Pose.Pitch),
		fmt.Sprintf("Y:%6.1f", out.Pose.Yaw),
	}
	if out.Reference != nil {
		d := orientation.Diff(out.Pose, *out.Reference)
		lines = append(lines, fmt.Sprintf("dY:%5.1f dR:%5.1f", d.Yaw, d.Roll))
	} else {
		lines = append(lines, "no reference")
	}
	return lines
}

func renderOrientation(out fusion.Output) *image1bit.VerticalLSB {
	return renderLines(orientationLines(out)...)
}

// renderLines draws up to four lines of text in the basic 7x13 font.
func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	for i, line := range lines {
		if (i+1)*lineHeight > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}
