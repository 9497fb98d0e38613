// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// CollectionResult is the outcome of one device in one cycle: either its
// attributes or the error that prevented collecting them.
type CollectionResult struct {
	Device     Device
	Attributes AttributeSet
	Warnings   []*RawValueWarning
	Err        error
}

// Collector queries every device of the inventory and records the normalized
// attributes in the registry. A failing device is skipped for the current
// cycle only.
type Collector struct {
	inventory    []Device
	registry     *Registry
	cli          smartctlCli
	normalizerFn func(DeviceClass) Normalizer
	concurrency  int
	queryTimeout time.Duration
	metrics      *exporterMetrics
}

type CollectorOption func(*Collector)

// WithConcurrency sets how many devices are queried at the same time.
func WithConcurrency(n int) CollectorOption {
	return func(c *Collector) { c.concurrency = n }
}

// WithQueryTimeout bounds a single smartctl run. Zero disables the timeout.
func WithQueryTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) { c.queryTimeout = d }
}

// WithSmartctlPath sets the smartctl binary.
func WithSmartctlPath(path string) CollectorOption {
	return func(c *Collector) { c.cli = newExecSmartctlCli(path) }
}

func withSmartctlCli(cli smartctlCli) CollectorOption {
	return func(c *Collector) { c.cli = cli }
}

func withExporterMetrics(m *exporterMetrics) CollectorOption {
	return func(c *Collector) { c.metrics = m }
}

func NewCollector(inventory []Device, registry *Registry, opts ...CollectorOption) *Collector {
	c := &Collector{
		inventory:    inventory,
		registry:     registry,
		cli:          newExecSmartctlCli("smartctl"),
		normalizerFn: NormalizerFor,
		concurrency:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Inventory returns the monitored devices.
func (c *Collector) Inventory() []Device {
	return c.inventory
}

// RunCycle collects every device once. Results are returned in inventory
// order.
func (c *Collector) RunCycle(ctx context.Context) []CollectionResult {
	start := time.Now()
	results := make([]CollectionResult, len(c.inventory))

	if c.concurrency <= 1 || len(c.inventory) < 2 {
		for i, dev := range c.inventory {
			results[i] = c.collectDevice(ctx, dev)
			c.handleResult(results[i])
		}
	} else {
		// only the smartctl runs are parallel, recording stays on this goroutine
		p := pool.New().WithMaxGoroutines(c.concurrency)
		for i, dev := range c.inventory {
			i, dev := i, dev
			p.Go(func() {
				results[i] = c.collectDevice(ctx, dev)
			})
		}
		p.Wait()
		for _, res := range results {
			c.handleResult(res)
		}
	}

	c.metrics.observeCycle(time.Since(start))
	log.Debug().Int("devices", len(c.inventory)).Dur("duration", time.Since(start)).Msg("collection cycle finished")

	return results
}

func (c *Collector) collectDevice(ctx context.Context, dev Device) (res CollectionResult) {
	res.Device = dev

	defer func() {
		if r := recover(); r != nil {
			res.Attributes = nil
			res.Err = fmt.Errorf("panic while collecting device: %v", r)
		}
	}()

	queryCtx := ctx
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	out, err := c.cli.health(queryCtx, dev)
	if err != nil {
		res.Err = err
		return res
	}

	report, err := dev.Class.decode(out)
	if err != nil {
		res.Err = err
		return res
	}

	normalizer := c.normalizerFn(dev.Class)
	if normalizer == nil {
		res.Err = fmt.Errorf("%w: no normalizer for device class %s", ErrUnexpectedReportShape, dev.Class)
		return res
	}

	res.Attributes, res.Warnings, res.Err = normalizer.Normalize(report)
	return res
}

func (c *Collector) handleResult(res CollectionResult) {
	dev := res.Device

	if res.Err != nil {
		deviceLogger(log.Error(), dev).Err(res.Err).Msg("error collecting device, skipping it for this cycle")
		c.metrics.collectError(dev, errorReason(res.Err))
		return
	}

	for _, w := range res.Warnings {
		deviceLogger(log.Warn(), dev).Err(w).Msg("raw value skipped")
	}

	for _, name := range res.Attributes.Names() {
		if err := c.registry.Record(dev, name, res.Attributes[name]); err != nil {
			deviceLogger(log.Error(), dev).Err(err).Str("attribute", name).Msg("error recording attribute")
			c.metrics.collectError(dev, "register")
		}
	}
}

func deviceLogger(e *zerolog.Event, dev Device) *zerolog.Event {
	return e.
		Str("drive", dev.ID()).
		Str("type", dev.Type).
		Str("model_name", dev.ModelName).
		Str("serial_number", dev.SerialNumber)
}
