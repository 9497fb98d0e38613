// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cobaltcore-dev/smartprom/pkg/producers/smartmetrics"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover drives and print them as a device inventory file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadSmartMetricsConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
		// scan always discovers, whatever the inventory file says
		cfg.Devices = nil

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var bar *progressbar.ProgressBar
		probe := func(device string, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "probing devices")
			}
			bar.Describe(device)
			_ = bar.Add(1)
		}

		inventory, err := smartmetrics.BuildInventory(ctx, cfg, probe)
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("error scanning devices")
		}

		out, err := marshalInventory(inventory)
		if err != nil {
			log.Fatal().Err(err).Msg("error encoding device inventory")
		}
		fmt.Print(string(out))
	},
}

type inventoryFile struct {
	Devices []inventoryEntry `yaml:"devices"`
}

type inventoryEntry struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	ModelName    string `yaml:"model_name,omitempty"`
	SerialNumber string `yaml:"serial_number,omitempty"`
}

// marshalInventory renders devices in the format read by --config.
func marshalInventory(devices []smartmetrics.Device) ([]byte, error) {
	file := inventoryFile{Devices: make([]inventoryEntry, 0, len(devices))}
	for _, dev := range devices {
		file.Devices = append(file.Devices, inventoryEntry{
			Name:         dev.Path,
			Type:         dev.Type,
			ModelName:    dev.ModelName,
			SerialNumber: dev.SerialNumber,
		})
	}
	return yaml.Marshal(file)
}

func init() {
	addSmartMetricsFlags(scanCmd.Flags())
}
