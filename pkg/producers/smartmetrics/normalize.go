// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Attribute is one normalized reading. Code is the vendor attribute ID and is
// only set for SATA devices.
type Attribute struct {
	Value   float64 `json:"value"`
	Code    int64   `json:"code,omitempty"`
	HasCode bool    `json:"-"`
}

// AttributeSet maps attribute names to readings for one device in one cycle.
type AttributeSet map[string]Attribute

// Names returns the attribute names in lexical order.
func (s AttributeSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalizer turns the report of one device class into an AttributeSet.
type Normalizer interface {
	Normalize(report *Report) (AttributeSet, []*RawValueWarning, error)
}

// NormalizerFor returns the normalizer of a device class.
func NormalizerFor(class DeviceClass) Normalizer {
	switch class {
	case ClassSATA:
		return sataNormalizer{}
	case ClassNVMe:
		return nvmeNormalizer{}
	case ClassSCSI:
		return scsiNormalizer{}
	case ClassRAIDMember:
		return raidNormalizer{}
	}
	return nil
}

const smartPassedAttribute = "smart_passed"

// smartStatus returns 1 if the device passed its self assessment, 0 if it
// failed and -1 if the status is unknown.
func smartStatus(report *Report) float64 {
	passed := report.Get("smart_status.passed")
	switch passed.Type {
	case gjson.True:
		return 1
	case gjson.False:
		return 0
	}
	return -1
}

type sataNormalizer struct{}

func (sataNormalizer) Normalize(report *Report) (AttributeSet, []*RawValueWarning, error) {
	table := report.Get("ata_smart_attributes.table")
	if !table.IsArray() {
		return nil, nil, fmt.Errorf("%w: ata_smart_attributes.table not found", ErrUnexpectedReportShape)
	}

	attrs := AttributeSet{
		smartPassedAttribute: {Value: smartStatus(report), Code: 0, HasCode: true},
	}
	var warnings []*RawValueWarning

	for _, row := range table.Array() {
		name := row.Get("name").String()
		if name == "" {
			continue
		}
		code := row.Get("id").Int()
		attrs[name] = Attribute{Value: row.Get("value").Float(), Code: code, HasCode: true}

		rawString := row.Get("raw.string").String()
		rawValue, ok := parseRawValue(rawString)
		if !ok {
			warnings = append(warnings, &RawValueWarning{
				Attribute: name,
				RawString: rawString,
				RawValue:  row.Get("raw.value").Int(),
			})
			continue
		}
		attrs[name+"_raw"] = Attribute{Value: float64(rawValue), Code: code, HasCode: true}
	}

	return attrs, warnings, nil
}

// parseRawValue decodes the human readable raw value of an ATA attribute.
// The integer raw value packs several fields for temperatures and timers, the
// string form is easier to use:
//
//	"33", "43 (Min/Max 39/46)" -> leading token
//	"20071h+27m+15.375s"       -> hours
func parseRawValue(raw string) (int64, bool) {
	if fields := strings.Fields(raw); len(fields) > 0 {
		if v, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			return v, true
		}
	}
	if hours, _, found := strings.Cut(raw, "h+"); found {
		if v, err := strconv.ParseInt(strings.TrimSpace(hours), 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

type nvmeNormalizer struct{}

func (nvmeNormalizer) Normalize(report *Report) (AttributeSet, []*RawValueWarning, error) {
	healthLog := report.Get("nvme_smart_health_information_log")
	if !healthLog.IsObject() {
		return nil, nil, fmt.Errorf("%w: nvme_smart_health_information_log not found", ErrUnexpectedReportShape)
	}

	attrs := AttributeSet{
		smartPassedAttribute: {Value: smartStatus(report)},
	}

	healthLog.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch {
		case value.Type == gjson.Number:
			attrs[name] = Attribute{Value: value.Float()}
		case value.IsArray():
			// temperature_sensors -> temperature_sensor1, temperature_sensor2, ...
			prefix := strings.TrimSuffix(name, "s")
			for i, v := range value.Array() {
				if v.Type == gjson.Number {
					attrs[prefix+strconv.Itoa(i+1)] = Attribute{Value: v.Float()}
				}
			}
		}
		return true
	})

	// same names as the SATA raw attributes
	for path, name := range map[string]string{
		"temperature.current": "temperature_celsius_raw",
		"power_cycle_count":   "power_cycle_count_raw",
		"power_on_time.hours": "power_on_hours_raw",
	} {
		if v := report.Get(path); v.Type == gjson.Number {
			attrs[name] = Attribute{Value: v.Float()}
		}
	}

	return attrs, nil, nil
}

// Tool metadata that carries no device information.
var reportMetadataKeys = map[string]bool{
	"json_format_version": true,
	"smartctl":            true,
	"local_time":          true,
}

// scsiRenames map flattened SCSI names to the names SATA devices export.
var scsiRenames = map[string]string{
	"temperature_current": "temperature_celsius_raw",
	"scsi_start_stop_cycle_counter_accumulated_start_stop_cycles": "power_cycle_count_raw",
	"power_on_time_hours": "power_on_hours_raw",
}

type scsiNormalizer struct{}

func (scsiNormalizer) Normalize(report *Report) (AttributeSet, []*RawValueWarning, error) {
	return flattenReport(report), nil, nil
}

// raidNormalizer handles drives behind a MegaRAID controller. The report
// layout is the SCSI one, only the decoder differs.
type raidNormalizer struct{}

func (raidNormalizer) Normalize(report *Report) (AttributeSet, []*RawValueWarning, error) {
	return flattenReport(report), nil, nil
}

// flattenReport collects every integer leaf up to two levels below the top
// level keys, joining the path with underscores.
func flattenReport(report *Report) AttributeSet {
	attrs := AttributeSet{
		smartPassedAttribute: {Value: smartStatus(report)},
	}

	report.ForEach(func(key string, value gjson.Result) bool {
		if reportMetadataKeys[key] {
			return true
		}
		if v, ok := integerLeaf(value); ok {
			attrs[key] = Attribute{Value: v}
			return true
		}
		if !value.IsObject() {
			return true
		}
		value.ForEach(func(label, child gjson.Result) bool {
			name := key + "_" + label.String()
			if v, ok := integerLeaf(child); ok {
				attrs[name] = Attribute{Value: v}
				return true
			}
			if child.IsObject() {
				child.ForEach(func(label2, grandchild gjson.Result) bool {
					if v, ok := integerLeaf(grandchild); ok {
						attrs[name+"_"+label2.String()] = Attribute{Value: v}
					}
					return true
				})
			}
			return true
		})
		return true
	})

	for from, to := range scsiRenames {
		if attr, ok := attrs[from]; ok {
			attrs[to] = attr
			delete(attrs, from)
		}
	}

	return attrs
}

// integerLeaf reports whether v is an integer. Booleans count as 0 and 1.
func integerLeaf(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.True:
		return 1, true
	case gjson.False:
		return 0, true
	case gjson.Number:
		if strings.ContainsAny(v.Raw, ".eE") {
			return 0, false
		}
		return v.Float(), true
	}
	return 0, false
}
