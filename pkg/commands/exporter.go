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

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/host"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cobaltcore-dev/smartprom/pkg/producers/config"
	"github.com/cobaltcore-dev/smartprom/pkg/producers/smartmetrics"
)

var (
	smpAddress                     string
	smpPort                        int
	smpInterval                    int
	smpDevicesConfig               string
	smpDevices                     []string
	smpSmartctlPath                string
	smpStorcliPath                 string
	smpQueryTimeout                time.Duration
	smpConcurrency                 int
	smpNodeName                    string
	smpInstanceID                  string
	smpNatsURL                     string
	smpNatsSubject                 string
	smpGrownDefectsThreshold       int64
	smpPendingSectorsThreshold     int64
	smpReallocatedSectorsThreshold int64
	smpLifetimeUsedThreshold       int64
)

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Export S.M.A.R.T. attributes of all drives as Prometheus gauges",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadSmartMetricsConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}

		event := log.Info()
		event.Bool("use_nats", cfg.UseNats)
		if cfg.UseNats {
			event.Str("nats_url", cfg.NatsURL)
			event.Str("nats_subject", cfg.NatsSubject)
		}

		event.Str("address", cfg.ExporterAddress).
			Int("port", cfg.ExporterPort).
			Str("devices_config", cfg.DevicesConfigPath).
			Str("devices", fmt.Sprintf("%v", cfg.Devices)).
			Str("node_name", cfg.NodeName).
			Str("instance_id", cfg.InstanceID).
			Int("interval_seconds", cfg.Interval).
			Dur("query_timeout", cfg.QueryTimeout).
			Int("concurrency", cfg.Concurrency)

		event.Msg("configuration_loaded")

		validateSmartMetricsConfig(cfg)
		warnIfVirtualized()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := smartmetrics.StartMonitoring(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("error running exporter")
		}
	},
}

// loadSmartMetricsConfig merges flags, the device inventory file and the
// environment, in that order.
func loadSmartMetricsConfig() (smartmetrics.SmartMetricsConfig, error) {
	devices, err := parseDeviceFlags(smpDevices)
	if err != nil {
		return smartmetrics.SmartMetricsConfig{}, err
	}

	cfg := smartmetrics.SmartMetricsConfig{
		ExporterAddress:             smpAddress,
		ExporterPort:                smpPort,
		Interval:                    smpInterval,
		Devices:                     devices,
		DevicesConfigPath:           smpDevicesConfig,
		SmartctlPath:                smpSmartctlPath,
		StorcliPath:                 smpStorcliPath,
		QueryTimeout:                smpQueryTimeout,
		Concurrency:                 smpConcurrency,
		NodeName:                    smpNodeName,
		InstanceID:                  smpInstanceID,
		NatsURL:                     smpNatsURL,
		NatsSubject:                 smpNatsSubject,
		GrownDefectsThreshold:       smpGrownDefectsThreshold,
		PendingSectorsThreshold:     smpPendingSectorsThreshold,
		ReallocatedSectorsThreshold: smpReallocatedSectorsThreshold,
		LifetimeUsedThreshold:       smpLifetimeUsedThreshold,
	}

	cfg.DevicesConfigPath = getEnv("SMARTCTL_DEVICES_CONFIG", cfg.DevicesConfigPath)
	if cfg.DevicesConfigPath != "" {
		fileCfg, err := config.LoadConfig(cfg.DevicesConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg.MergeInto(cfg)
	}

	cfg = mergeSmartMetricsConfigWithEnv(cfg)
	cfg.UseNats = cfg.NatsURL != ""

	if cfg.NodeName == "" {
		cfg.NodeName = hostname()
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.New().String()
	}

	return cfg, nil
}

func mergeSmartMetricsConfigWithEnv(cfg smartmetrics.SmartMetricsConfig) smartmetrics.SmartMetricsConfig {
	cfg.ExporterAddress = getEnv("SMARTCTL_EXPORTER_ADDRESS", cfg.ExporterAddress)
	cfg.ExporterPort = getEnvInt("SMARTCTL_EXPORTER_PORT", cfg.ExporterPort)
	cfg.Interval = getEnvInt("SMARTCTL_REFRESH_INTERVAL", cfg.Interval)
	cfg.SmartctlPath = getEnv("SMARTCTL_PATH", cfg.SmartctlPath)
	cfg.StorcliPath = getEnv("STORCLI_PATH", cfg.StorcliPath)
	cfg.QueryTimeout = getEnvDuration("SMARTCTL_QUERY_TIMEOUT", cfg.QueryTimeout)
	cfg.Concurrency = getEnvInt("SMARTCTL_CONCURRENCY", cfg.Concurrency)
	cfg.NodeName = getEnv("NODE_NAME", cfg.NodeName)
	cfg.InstanceID = getEnv("INSTANCE_ID", cfg.InstanceID)
	cfg.NatsURL = getEnv("NATS_URL", cfg.NatsURL)
	cfg.NatsSubject = getEnv("NATS_SUBJECT", cfg.NatsSubject)
	cfg.GrownDefectsThreshold = getEnvInt64("GROWN_DEFECTS_THRESHOLD", cfg.GrownDefectsThreshold)
	cfg.PendingSectorsThreshold = getEnvInt64("PENDING_SECTORS_THRESHOLD", cfg.PendingSectorsThreshold)
	cfg.ReallocatedSectorsThreshold = getEnvInt64("REALLOCATED_SECTORS_THRESHOLD", cfg.ReallocatedSectorsThreshold)
	cfg.LifetimeUsedThreshold = getEnvInt64("LIFETIME_USED_THRESHOLD", cfg.LifetimeUsedThreshold)

	return cfg
}

// parseDeviceFlags parses "--device /dev/sda=sat" values. The type may
// contain a comma (megaraid,N) so devices can't be a comma separated list.
func parseDeviceFlags(values []string) ([]smartmetrics.DeviceSpec, error) {
	var devices []smartmetrics.DeviceSpec
	for _, value := range values {
		name, deviceType, found := strings.Cut(value, "=")
		if !found || name == "" || deviceType == "" {
			return nil, fmt.Errorf("invalid device %q, expected <path>=<type>", value)
		}
		devices = append(devices, smartmetrics.DeviceSpec{Name: name, Type: deviceType})
	}
	return devices, nil
}

func hostname() string {
	info, err := host.Info()
	if err != nil {
		log.Warn().Err(err).Msg("error reading host info")
		return ""
	}
	return info.Hostname
}

// warnIfVirtualized warns when running in a guest, virtual disks rarely
// report S.M.A.R.T. data.
func warnIfVirtualized() {
	info, err := host.Info()
	if err != nil {
		return
	}
	if info.VirtualizationRole == "guest" {
		log.Warn().
			Str("virtualization", info.VirtualizationSystem).
			Msg("running in a virtual machine, drives may not report S.M.A.R.T. data")
	}
}

// addSmartMetricsFlags registers the flags shared by the exporter, scan and
// collect commands.
func addSmartMetricsFlags(flags *pflag.FlagSet) {
	flags.StringVar(&smpDevicesConfig, "config", "", "Path to the device inventory file")
	flags.StringArrayVar(&smpDevices, "device", nil, "Device to monitor as <path>=<type>, e.g. /dev/sda=sat (repeatable, default: scan)")
	flags.StringVar(&smpSmartctlPath, "smartctl-path", "smartctl", "Path to the smartctl binary")
	flags.StringVar(&smpStorcliPath, "storcli-path", "/opt/storcli64", "Path to the storcli binary")
	flags.DurationVar(&smpQueryTimeout, "query-timeout", 0, "Timeout of a single smartctl run (0 waits forever)")
	flags.IntVar(&smpConcurrency, "concurrency", 1, "Number of devices queried in parallel")
}

func init() {
	addSmartMetricsFlags(exporterCmd.Flags())
	exporterCmd.Flags().StringVar(&smpAddress, "address", "0.0.0.0", "Address the metrics server listens on")
	exporterCmd.Flags().IntVar(&smpPort, "port", 9902, "Port the metrics server listens on")
	exporterCmd.Flags().IntVar(&smpInterval, "interval", 60, "Interval in seconds between metric collections")
	exporterCmd.Flags().StringVar(&smpNodeName, "node-name", "", "Node name reported in NATS events (default: hostname)")
	exporterCmd.Flags().StringVar(&smpInstanceID, "instance-id", "", "Instance ID reported in NATS events (default: random UUID)")
	exporterCmd.Flags().StringVar(&smpNatsURL, "nats-url", "", "NATS server URL")
	exporterCmd.Flags().StringVar(&smpNatsSubject, "nats-subject", "disk.smart.health", "NATS subject to publish events")
	exporterCmd.Flags().Int64Var(&smpGrownDefectsThreshold, "grown-defects-threshold", 10, "Threshold for grown defects to trigger a warning")
	exporterCmd.Flags().Int64Var(&smpPendingSectorsThreshold, "pending-sectors-threshold", 3, "Threshold for pending sectors to trigger a warning")
	exporterCmd.Flags().Int64Var(&smpReallocatedSectorsThreshold, "reallocated-sectors-threshold", 10, "Threshold for reallocated sectors to trigger a warning")
	exporterCmd.Flags().Int64Var(&smpLifetimeUsedThreshold, "lifetime-used-threshold", 80, "Threshold for SSD lifetime used percentage to trigger a critical alert")
}

func validateSmartMetricsConfig(cfg smartmetrics.SmartMetricsConfig) {
	missingParams := false

	if cfg.Interval <= 0 {
		fmt.Println("Warning: --interval or SMARTCTL_REFRESH_INTERVAL must be positive")
		missingParams = true
	}
	if cfg.ExporterPort <= 0 || cfg.ExporterPort > 65535 {
		fmt.Println("Warning: --port or SMARTCTL_EXPORTER_PORT must be a valid port")
		missingParams = true
	}

	if missingParams {
		fmt.Println("One or more required parameters are missing. Please provide them through flags or environment variables.")
		os.Exit(1)
	}
}
