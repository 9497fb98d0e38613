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
	"encoding/json"
	"fmt"
	"strconv"
)

// NatsEvent represents an event to be published to NATS
type NatsEvent struct {
	NodeName     string            `json:"node_name"`     // Name of the node where the drive is located
	InstanceID   string            `json:"instance_id"`   // ID of the exporter instance
	Device       string            `json:"device"`        // Device identifier (e.g., /dev/sda_sat)
	ModelName    string            `json:"model_name"`    // Model name reported by smartctl
	SerialNumber string            `json:"serial_number"` // Serial number reported by smartctl
	EventType    string            `json:"event_type"`    // e.g., 'health', 'health_alert', 'collection_error'
	Severity     string            `json:"severity"`      // e.g., 'info', 'warning', 'critical'
	Message      string            `json:"message"`       // Description of the event
	Details      map[string]string `json:"details"`       // Attribute values
}

// Publisher is implemented by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// convertToNatsEvent converts the result of one device to a NatsEvent
func convertToNatsEvent(res CollectionResult, cfg *SmartMetricsConfig) NatsEvent {
	event := NatsEvent{
		NodeName:     cfg.NodeName,
		InstanceID:   cfg.InstanceID,
		Device:       res.Device.ID(),
		ModelName:    res.Device.ModelName,
		SerialNumber: res.Device.SerialNumber,
		EventType:    "health",
		Severity:     "info",
		Details:      make(map[string]string),
	}

	if res.Err != nil {
		event.EventType = "collection_error"
		event.Severity = "warning"
		event.Message = "SMART data could not be collected."
		event.Details["Error"] = res.Err.Error()
		return event
	}

	for name, attr := range res.Attributes {
		event.Details[name] = strconv.FormatFloat(attr.Value, 'f', -1, 64)
	}

	checkAndSetThresholds(&event, res.Attributes, cfg)
	event.Message = generateMessage(event.Details)

	return event
}

// checkAndSetThresholds checks critical SMART metrics against thresholds and adjusts details and severity.
func checkAndSetThresholds(event *NatsEvent, attrs AttributeSet, cfg *SmartMetricsConfig) {
	warn := func(key, attribute string, threshold int64) {
		attr, ok := attrs[attribute]
		if !ok || attr.Value <= float64(threshold) {
			return
		}
		event.Details[key] = fmt.Sprintf("%.0f (Warning: Exceeds threshold of %d)", attr.Value, threshold)
		if event.Severity == "info" {
			event.Severity = "warning"
			event.EventType = "health_alert"
		}
	}

	// Grown defects (SCSI)
	warn("GrownDefects", "scsi_grown_defect_list", cfg.GrownDefectsThreshold)
	// Pending sectors (SATA)
	warn("PendingSectors", "Current_Pending_Sector_raw", cfg.PendingSectorsThreshold)
	// Reallocated sectors (SATA)
	warn("ReallocatedSectors", "Reallocated_Sector_Ct_raw", cfg.ReallocatedSectorsThreshold)

	// Lifetime used for NVMe SSDs
	if used, ok := attrs["percentage_used"]; ok && used.Value > float64(cfg.LifetimeUsedThreshold) {
		event.Details["SSDLifeUsed"] = fmt.Sprintf("%.0f%% (Warning: Exceeds threshold of %d%%)", used.Value, cfg.LifetimeUsedThreshold)
		event.Severity = "critical"
		event.EventType = "lifetime_alert"
	}

	if passed, ok := attrs[smartPassedAttribute]; ok && passed.Value == 0 {
		event.Details["SmartStatus"] = "FAILED"
		event.Severity = "critical"
		event.EventType = "health_alert"
	}
}

// generateMessage generates a summary message based on the details.
func generateMessage(details map[string]string) string {
	if _, found := details["SmartStatus"]; found {
		return "SMART overall-health self-assessment test failed."
	}
	if _, found := details["GrownDefects"]; found {
		return "SMART data indicates potential drive issues (grown defects)."
	}
	if _, found := details["PendingSectors"]; found {
		return "SMART data indicates potential drive issues (pending sectors)."
	}
	if _, found := details["ReallocatedSectors"]; found {
		return "SMART data indicates potential drive issues (reallocated sectors)."
	}
	if _, found := details["SSDLifeUsed"]; found {
		return "SMART data indicates SSD nearing end of life."
	}
	return "SMART data collected successfully."
}

func PublishToNATS(results []CollectionResult, nc Publisher, subject string, cfg *SmartMetricsConfig) error {
	for _, res := range results {
		event := convertToNatsEvent(res, cfg)

		eventJSON, err := json.Marshal(event)
		if err != nil {
			return err
		}

		if err := nc.Publish(subject, eventJSON); err != nil {
			return err
		}
	}

	return nil
}
