// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const metricNamespace = "smartprom"

// deviceLabels are attached to every value, never part of the metric name.
var deviceLabels = []string{"drive", "type", "model_name", "serial_number"}

var (
	metricNameReplacer = strings.NewReplacer("-", "_", " ", "_", ".", "_", "/", "_")
	invalidMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_:]`)
)

// MetricName derives the exported metric name of an attribute, e.g.
// "Power_On_Hours" -> "smartprom_power_on_hours".
func MetricName(attribute string) string {
	name := metricNameReplacer.Replace(attribute)
	name = invalidMetricChars.ReplaceAllString(name, "_")
	return metricNamespace + "_" + strings.ToLower(name)
}

// RegistryEntry is one dynamically created gauge.
type RegistryEntry struct {
	Name        string
	Description string

	gauge *prometheus.GaugeVec
}

// Registry creates one gauge per attribute name the first time it is seen and
// keeps it for the lifetime of the process.
type Registry struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	entries    map[string]*RegistryEntry
}

func NewRegistry(registerer prometheus.Registerer) *Registry {
	return &Registry{
		registerer: registerer,
		entries:    make(map[string]*RegistryEntry),
	}
}

// Record sets the value of attribute name for dev, creating the gauge on first
// sight.
func (r *Registry) Record(dev Device, name string, attr Attribute) error {
	metric := MetricName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[metric]
	if !ok {
		var err error
		entry, err = r.register(dev, metric, name, attr)
		if err != nil {
			return err
		}
		r.entries[metric] = entry
	}

	entry.gauge.WithLabelValues(dev.labelValues()...).Set(attr.Value)
	return nil
}

func (r *Registry) register(dev Device, metric, name string, attr Attribute) (*RegistryEntry, error) {
	// Only SATA attributes carry a vendor code, the others get a 0x0 placeholder.
	code := "0x0"
	if attr.HasCode {
		code = fmt.Sprintf("%#x", attr.Code)
	}
	desc := fmt.Sprintf("(%s) %s", code, strings.ReplaceAll(name, "_", " "))

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metric,
		Help: desc,
	}, deviceLabels)

	if err := r.registerer.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("error registering gauge %s: %w", metric, err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return nil, fmt.Errorf("error registering gauge %s: name taken by another collector", metric)
		}
		gauge = existing
	}

	log.Info().
		Str("drive", dev.ID()).
		Str("metric", metric).
		Str("code", code).
		Msg("adding new gauge")

	return &RegistryEntry{Name: metric, Description: desc, gauge: gauge}, nil
}

// Len returns the number of registered gauges.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// entry returns the registry entry of a derived metric name.
func (r *Registry) entry(metric string) (RegistryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[metric]
	if !ok {
		return RegistryEntry{}, false
	}
	return *entry, true
}
