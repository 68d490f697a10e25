// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/compare/main.go
//
// Runs Madgwick and Mahony over the same samples and reports how far they
// diverge from each other and, when the source knows it, from ground truth.
//
// Run:
//
//	go run ./cmd/compare -n 6000 -trace run.yaml
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/fused/internal/app"
	"github.com/relabs-tech/fused/internal/config"
)

func main() {
	configPath := flag.String("config", "./inertial_config.txt", "path to configuration file")
	samples := flag.Int("n", 6000, "number of samples to compare")
	tracePath := flag.String("trace", "", "optional path to save the recorded samples as YAML")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCompare(*samples, *tracePath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
