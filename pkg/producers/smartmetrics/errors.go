// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"errors"
	"fmt"
)

var (
	// ErrToolInvocation is returned when smartctl could not be run or reported
	// that it could not talk to the device.
	ErrToolInvocation = errors.New("tool invocation failed")
	// ErrMalformedReport is returned when the tool output is not structured data.
	ErrMalformedReport = errors.New("malformed report")
	// ErrUnexpectedReportShape is returned when a report lacks the section its
	// device class requires.
	ErrUnexpectedReportShape = errors.New("unexpected report shape")
)

// RawValueWarning reports a SATA attribute whose raw string could not be turned
// into a number. The attribute itself is still collected.
type RawValueWarning struct {
	Attribute string
	RawString string
	RawValue  int64
}

func (w *RawValueWarning) Error() string {
	return fmt.Sprintf("raw value of attribute %q can't be parsed (raw_string: %q, raw_int: %d)", w.Attribute, w.RawString, w.RawValue)
}

// errorReason returns the label used for the collect error counter.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrToolInvocation):
		return "tool"
	case errors.Is(err, ErrMalformedReport):
		return "malformed"
	case errors.Is(err, ErrUnexpectedReportShape):
		return "shape"
	}
	return "other"
}
