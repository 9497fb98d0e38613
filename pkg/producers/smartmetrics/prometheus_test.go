package smartmetrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler(t *testing.T) {
	promRegistry := newPrometheusRegistry()
	registry := NewRegistry(promRegistry)
	metrics := newExporterMetrics(promRegistry, registry)

	dev := testDevice(t, "/dev/sda", "sat", "Samsung SSD 860 EVO 500GB", "S3Z1NB0K123456")
	require.NoError(t, registry.Record(dev, "Power_On_Hours_raw", Attribute{Value: 20071, Code: 9, HasCode: true}))
	metrics.observeCycle(1500 * time.Millisecond)

	srv := httptest.NewServer(newMetricsHandler(promRegistry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "# HELP smartprom_power_on_hours_raw (0x9) Power On Hours raw")
	assert.Contains(t, string(body), "# TYPE smartprom_power_on_hours_raw gauge")
	assert.Contains(t, string(body), `smartprom_power_on_hours_raw{drive="/dev/sda_sat",model_name="Samsung SSD 860 EVO 500GB",serial_number="S3Z1NB0K123456",type="sat"} 20071`)
	assert.Contains(t, string(body), "smartprom_exporter_last_cycle_duration_seconds 1.5")
	assert.Contains(t, string(body), "smartprom_exporter_registered_metrics 1")
	assert.Contains(t, string(body), "go_goroutines")

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExporterMetricsNilSafe(t *testing.T) {
	var m *exporterMetrics
	m.collectError(Device{}, "tool")
	m.observeCycle(time.Second)
}

func TestErrorReason(t *testing.T) {
	assert.Equal(t, "tool", errorReason(ErrToolInvocation))
	assert.Equal(t, "malformed", errorReason(ErrMalformedReport))
	assert.Equal(t, "shape", errorReason(ErrUnexpectedReportShape))
	assert.Equal(t, "other", errorReason(assert.AnError))
}
