// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cobaltcore-dev/smartprom/pkg/producers/smartmetrics"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a single collection cycle and print the normalized attributes as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadSmartMetricsConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results, err := smartmetrics.CollectOnce(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("error collecting devices")
		}

		out, err := json.MarshalIndent(collectOutput(results), "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("error encoding results")
		}
		fmt.Println(string(out))
	},
}

type deviceOutput struct {
	Drive        string             `json:"drive"`
	Type         string             `json:"type"`
	ModelName    string             `json:"model_name"`
	SerialNumber string             `json:"serial_number"`
	Attributes   map[string]float64 `json:"attributes,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// collectOutput keys attribute values by attribute name and by the metric
// name they are exported under.
func collectOutput(results []smartmetrics.CollectionResult) []deviceOutput {
	out := make([]deviceOutput, 0, len(results))
	for _, res := range results {
		d := deviceOutput{
			Drive:        res.Device.ID(),
			Type:         res.Device.Type,
			ModelName:    res.Device.ModelName,
			SerialNumber: res.Device.SerialNumber,
		}
		if res.Err != nil {
			d.Error = res.Err.Error()
		} else {
			d.Attributes = make(map[string]float64, len(res.Attributes))
			d.Metrics = make(map[string]float64, len(res.Attributes))
			for name, attr := range res.Attributes {
				d.Attributes[name] = attr.Value
				d.Metrics[smartmetrics.MetricName(name)] = attr.Value
			}
		}
		for _, w := range res.Warnings {
			d.Warnings = append(d.Warnings, w.Error())
		}
		out = append(out, d)
	}
	return out
}

func init() {
	addSmartMetricsFlags(collectCmd.Flags())
}
