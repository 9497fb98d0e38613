// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/rs/zerolog/log"

	"github.com/cobaltcore-dev/smartprom/pkg/producers/smartmetrics"
)

// MergeInto copies the values set in the config file into cfg. Devices listed
// in the file replace the ones given on the command line.
func (c *Config) MergeInto(cfg smartmetrics.SmartMetricsConfig) smartmetrics.SmartMetricsConfig {
	cfg.NatsURL = getString(c.Global.NatsURL, cfg.NatsURL)
	cfg.NatsSubject = getString(c.Global.NatsSubject, cfg.NatsSubject)
	cfg.NodeName = getString(c.Global.NodeName, cfg.NodeName)
	cfg.InstanceID = getString(c.Global.InstanceID, cfg.InstanceID)

	if len(c.Devices) > 0 {
		log.Info().Int("devices", len(c.Devices)).Msg("using devices from config file")
		cfg.Devices = c.Devices
	}

	return cfg
}

func getString(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
