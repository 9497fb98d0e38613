// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Report is the generic tree of one smartctl run.
type Report struct {
	root gjson.Result
}

// Get returns the value at a gjson path.
func (r *Report) Get(path string) gjson.Result {
	return r.root.Get(path)
}

// ForEach iterates over the top level keys in document order.
func (r *Report) ForEach(fn func(key string, value gjson.Result) bool) {
	r.root.ForEach(func(key, value gjson.Result) bool {
		return fn(key.String(), value)
	})
}

// ParseReport decodes smartctl JSON output.
func ParseReport(raw []byte) (*Report, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedReport)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON output", ErrMalformedReport)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level value is not an object", ErrMalformedReport)
	}
	return &Report{root: root}, nil
}

// ParseReportPermissive decodes output the strict JSON decoder may reject
// (controller pass-through output). Valid JSON goes through ParseReport so
// duplicate keys and integers beyond 64 bits are kept; only the rest is
// decoded as YAML.
func ParseReportPermissive(raw []byte) (*Report, error) {
	if report, err := ParseReport(raw); err == nil {
		return report, nil
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedReport)
	}

	bs, err := json.Marshal(toJSONValue(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	root := gjson.ParseBytes(bs)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level value is not a mapping", ErrMalformedReport)
	}
	return &Report{root: root}, nil
}

// toJSONValue converts a YAML decoded value into something encoding/json can
// marshal. Floats keep a decimal point so they are not mistaken for integers.
func toJSONValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = toJSONValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = toJSONValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = toJSONValue(val)
		}
		return out
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if strings.ContainsAny(s, "NI") {
			// NaN and Inf have no JSON form
			return s
		}
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return json.Number(s)
	}
	return v
}

func (c DeviceClass) decode(raw []byte) (*Report, error) {
	if c == ClassRAIDMember {
		return ParseReportPermissive(raw)
	}
	return ParseReport(raw)
}
