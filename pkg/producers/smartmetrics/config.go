// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import "time"

type SmartMetricsConfig struct {
	ExporterAddress   string
	ExporterPort      int
	Interval          int // in seconds
	Devices           []DeviceSpec
	DevicesConfigPath string
	SmartctlPath      string
	StorcliPath       string
	QueryTimeout      time.Duration // 0 waits for smartctl forever
	Concurrency       int
	NodeName          string
	InstanceID        string

	NatsURL     string
	NatsSubject string
	UseNats     bool

	// NATS event thresholds
	GrownDefectsThreshold       int64
	PendingSectorsThreshold     int64
	ReallocatedSectorsThreshold int64
	LifetimeUsedThreshold       int64 // percentage
}

// DeviceSpec is a configured device, Type is the smartctl -d argument.
type DeviceSpec struct {
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"`
}

func (c SmartMetricsConfig) discover() bool {
	return len(c.Devices) == 0 || (len(c.Devices) == 1 && c.Devices[0].Name == "*")
}
