// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package smartmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func newCollector(inventory []Device, registry *Registry, cfg SmartMetricsConfig, opts ...CollectorOption) *Collector {
	base := []CollectorOption{
		WithSmartctlPath(cfg.SmartctlPath),
		WithConcurrency(cfg.Concurrency),
		WithQueryTimeout(cfg.QueryTimeout),
	}
	return NewCollector(inventory, registry, append(base, opts...)...)
}

// CollectOnce builds the inventory and runs a single collection cycle
// against a throwaway registry.
func CollectOnce(ctx context.Context, cfg SmartMetricsConfig) ([]CollectionResult, error) {
	if !checkSmartctlInstalled(cfg.SmartctlPath) {
		return nil, fmt.Errorf("%s is not installed. please install smartmontools package", cfg.SmartctlPath)
	}

	inventory, err := BuildInventory(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry(prometheus.NewRegistry())
	return newCollector(inventory, registry, cfg).RunCycle(ctx), nil
}

// StartMonitoring builds the inventory, serves the metrics and collects every
// cfg.Interval seconds until ctx is done.
func StartMonitoring(ctx context.Context, cfg SmartMetricsConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("invalid refresh interval %d", cfg.Interval)
	}
	if !checkSmartctlInstalled(cfg.SmartctlPath) {
		return fmt.Errorf("%s is not installed. please install smartmontools package", cfg.SmartctlPath)
	}

	inventory, err := BuildInventory(ctx, cfg, nil)
	if err != nil {
		return err
	}

	devices := make([]string, len(inventory))
	for i, dev := range inventory {
		devices[i] = dev.ID()
	}
	log.Info().Strs("devices", devices).Msg("devices for monitoring")

	var nc *nats.Conn
	if cfg.UseNats {
		nc, err = nats.Connect(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("error connecting to nats: %w", err)
		}
		defer nc.Close()
		log.Info().Str("nats_url", cfg.NatsURL).Msg("connected to NATS server")
	}

	if cfg.DevicesConfigPath != "" {
		watchInventoryFile(ctx, cfg.DevicesConfigPath, warnInventoryChanged)
	}

	promRegistry := newPrometheusRegistry()
	registry := NewRegistry(promRegistry)
	collector := newCollector(inventory, registry, cfg, withExporterMetrics(newExporterMetrics(promRegistry, registry)))

	StartPrometheusServer(ctx, cfg.ExporterAddress, cfg.ExporterPort, promRegistry)

	ticker := time.NewTicker(time.Duration(cfg.Interval) * time.Second)
	defer ticker.Stop()

	for {
		results := collector.RunCycle(ctx)

		if nc != nil {
			if err := PublishToNATS(results, nc, cfg.NatsSubject, &cfg); err != nil {
				log.Error().Err(err).Msg("error publishing metrics to nats")
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("stopping collection")
			return nil
		case <-ticker.C:
		}
	}
}
