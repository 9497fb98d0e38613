package smartmetrics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartMonitoringRejectsInvalidConfig(t *testing.T) {
	err := StartMonitoring(context.Background(), SmartMetricsConfig{Interval: 0, SmartctlPath: "smartctl"})
	assert.ErrorContains(t, err, "interval")

	err = StartMonitoring(context.Background(), SmartMetricsConfig{Interval: 60, SmartctlPath: filepath.Join(t.TempDir(), "smartctl")})
	assert.ErrorContains(t, err, "not installed")
}

func TestCollectOnceWithoutSmartctl(t *testing.T) {
	_, err := CollectOnce(context.Background(), SmartMetricsConfig{SmartctlPath: filepath.Join(t.TempDir(), "smartctl")})
	assert.ErrorContains(t, err, "not installed")
}

func TestDiscover(t *testing.T) {
	assert.True(t, SmartMetricsConfig{}.discover())
	assert.True(t, SmartMetricsConfig{Devices: []DeviceSpec{{Name: "*"}}}.discover())
	assert.False(t, SmartMetricsConfig{Devices: []DeviceSpec{{Name: "/dev/sda", Type: "sat"}}}.discover())
}
