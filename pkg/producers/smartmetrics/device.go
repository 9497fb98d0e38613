// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"fmt"
	"strings"
)

// DeviceClass is the protocol family used to query a drive.
type DeviceClass int

const (
	ClassSATA DeviceClass = iota
	ClassNVMe
	ClassSCSI
	ClassRAIDMember
)

func (c DeviceClass) String() string {
	switch c {
	case ClassSATA:
		return "sat"
	case ClassNVMe:
		return "nvme"
	case ClassSCSI:
		return "scsi"
	case ClassRAIDMember:
		return "megaraid"
	}
	return fmt.Sprintf("DeviceClass(%d)", int(c))
}

// ParseDeviceClass maps a smartctl device type ("sat", "nvme", "scsi",
// "megaraid,N") to its class.
func ParseDeviceClass(deviceType string) (DeviceClass, error) {
	switch {
	case deviceType == "sat":
		return ClassSATA, nil
	case deviceType == "nvme":
		return ClassNVMe, nil
	case deviceType == "scsi":
		return ClassSCSI, nil
	case strings.HasPrefix(deviceType, "megaraid"):
		return ClassRAIDMember, nil
	}
	return 0, fmt.Errorf("unsupported device type %q", deviceType)
}

const unknownIdentity = "Unknown"

// Device describes one drive of the inventory. It is never modified after the
// inventory has been built.
type Device struct {
	Path         string      `json:"name" yaml:"name"`
	Type         string      `json:"type" yaml:"type"` // smartctl -d argument
	Class        DeviceClass `json:"-" yaml:"-"`
	ModelName    string      `json:"model_name" yaml:"model_name,omitempty"`
	SerialNumber string      `json:"serial_number" yaml:"serial_number,omitempty"`
}

// NewDevice builds a descriptor with unknown identity.
func NewDevice(path, deviceType string) (Device, error) {
	class, err := ParseDeviceClass(deviceType)
	if err != nil {
		return Device{}, err
	}
	return Device{
		Path:         path,
		Type:         deviceType,
		Class:        class,
		ModelName:    unknownIdentity,
		SerialNumber: unknownIdentity,
	}, nil
}

// ID is the device identifier label. Devices behind a RAID controller share a
// path, so the type is part of it.
func (d Device) ID() string {
	return d.Path + "_" + d.Type
}

func (d Device) labelValues() []string {
	return []string{d.ID(), d.Type, d.ModelName, d.SerialNumber}
}
