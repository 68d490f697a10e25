// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/sensors"
)

// RunConsole runs the configured pipeline locally and prints orientation to
// stdout, without MQTT. With SAMPLE_SOURCE=sim it needs no hardware.
func RunConsole() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if cfg.Reference == "gps" {
		return fmt.Errorf("console: REFERENCE=gps needs the MQTT producer")
	}

	kind, err := ahrs.ParseKind(cfg.Filter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
	printOut := fusion.SinkFunc(func(out fusion.Output) error {
		fmt.Println(formatOutput(out))
		return nil
	})

	g, ctx := errgroup.WithContext(ctx)
	for _, side := range sensors.Sides(cfg) {
		st, err := sensors.Open(cfg, side)
		if err != nil {
			return err
		}
		d, err := newDriver(cfg, kind, st, nil)
		if err != nil {
			return err
		}
		// one throttle per stream, Every keeps per-stream state
		d.Sinks = []fusion.Sink{fusion.Every(interval, printOut)}
		g.Go(func() error { return d.Run(ctx) })
	}
	return g.Wait()
}
