// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ProbeFunc is called once per scanned device before it is probed.
type ProbeFunc func(device string, total int)

// BuildInventory returns the devices to monitor, enriched with model name and
// serial number. Configured devices are used as is; without any (or with the
// "*" wildcard) the devices are discovered with smartctl.
func BuildInventory(ctx context.Context, cfg SmartMetricsConfig, probe ProbeFunc) ([]Device, error) {
	return buildInventory(ctx, cfg, newExecSmartctlCli(cfg.SmartctlPath), newExecStorcli(cfg.StorcliPath), probe)
}

func buildInventory(ctx context.Context, cfg SmartMetricsConfig, cli smartctlCli, raid raidCli, probe ProbeFunc) ([]Device, error) {
	var devices []Device

	if cfg.discover() {
		discovered, err := discoverDevices(ctx, cli, raid, probe)
		if err != nil {
			return nil, err
		}
		devices = discovered
	} else {
		for _, spec := range cfg.Devices {
			dev, err := NewDevice(spec.Name, spec.Type)
			if err != nil {
				log.Warn().Err(err).Str("drive", spec.Name).Msg("skipping configured device")
				continue
			}
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		return nil, errors.New("no devices found for monitoring")
	}

	for i := range devices {
		devices[i] = lookupIdentity(ctx, cli, devices[i])
	}

	return devices, nil
}

// discoverDevices lists the devices reported by smartctl --scan-open. Disks in
// a disk shelf are reported as scsi even when they are SATA disks, so every
// device is probed with the sat type first. The OS drive of the RAID
// controller is skipped, its member disks are listed as megaraid devices.
func discoverDevices(ctx context.Context, cli smartctlCli, raid raidCli, probe ProbeFunc) ([]Device, error) {
	out, err := cli.scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("error running smartctl --scan-open: %w", err)
	}
	report, err := ParseReport(out)
	if err != nil {
		return nil, fmt.Errorf("error parsing smartctl --scan-open output: %w", err)
	}

	scanned := report.Get("devices").Array()
	if len(scanned) == 0 {
		return nil, errors.New("no devices found, make sure you have enough privileges")
	}

	raidDrive, err := raid.osDriveName(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("no megaraid virtual drive found")
	}

	var devices []Device
	for _, d := range scanned {
		name := d.Get("name").String()
		deviceType := d.Get("type").String()

		if probe != nil {
			probe(name, len(scanned))
		}

		if name == "" || deviceType == "" {
			log.Warn().Str("drive", name).Str("type", deviceType).Msg("device info missing required fields, skipping")
			continue
		}
		if raidDrive != "" && name == raidDrive {
			log.Debug().Str("drive", name).Msg("skipping megaraid virtual drive")
			continue
		}

		if isSATA(ctx, cli, name) {
			deviceType = "sat"
		}

		dev, err := NewDevice(name, deviceType)
		if err != nil {
			log.Warn().Err(err).Str("drive", name).Msg("skipping scanned device")
			continue
		}

		log.Debug().Str("drive", name).Str("type", deviceType).Msg("smartctl scan found device")
		devices = append(devices, dev)
	}

	return devices, nil
}

func isSATA(ctx context.Context, cli smartctlCli, path string) bool {
	out, err := cli.probeSATA(ctx, path)
	if err != nil {
		return false
	}
	report, err := ParseReport(out)
	if err != nil {
		return false
	}
	return len(report.Get("ata_smart_attributes.table").Array()) > 0
}

// lookupIdentity fills model name and serial number. Both stay "Unknown" when
// smartctl does not report them.
func lookupIdentity(ctx context.Context, cli smartctlCli, dev Device) Device {
	out, err := cli.info(ctx, dev.Path, dev.Type)
	if err != nil {
		log.Warn().Err(err).Str("drive", dev.ID()).Msg("error reading device identity")
		return dev
	}
	report, err := dev.Class.decode(out)
	if err != nil {
		log.Warn().Err(err).Str("drive", dev.ID()).Msg("error parsing device identity")
		return dev
	}

	modelKey := "model_name"
	if dev.Class == ClassSCSI || dev.Class == ClassRAIDMember {
		modelKey = "scsi_model_name"
	}

	if model := report.Get(modelKey).String(); model != "" {
		dev.ModelName = model
	}
	if serial := report.Get("serial_number").String(); serial != "" {
		dev.SerialNumber = serial
	}
	return dev
}
