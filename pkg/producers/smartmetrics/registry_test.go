package smartmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice(t *testing.T, path, deviceType, model, serial string) Device {
	t.Helper()
	dev, err := NewDevice(path, deviceType)
	require.NoError(t, err)
	dev.ModelName = model
	dev.SerialNumber = serial
	return dev
}

func TestMetricName(t *testing.T) {
	tests := map[string]string{
		"Power_On_Hours":         "smartprom_power_on_hours",
		"Power_On_Hours_raw":     "smartprom_power_on_hours_raw",
		"Unknown_SSD_Attribute":  "smartprom_unknown_ssd_attribute",
		"Runtime_Bad_Block":      "smartprom_runtime_bad_block",
		"Offline-Uncorrectable":  "smartprom_offline_uncorrectable",
		"Total LBAs Written":     "smartprom_total_lbas_written",
		"Wear.Leveling/Count":    "smartprom_wear_leveling_count",
		"Media_Wearout_Ind(%)":   "smartprom_media_wearout_ind___",
		"temperature_sensor1":    "smartprom_temperature_sensor1",
		"smart_passed":           "smartprom_smart_passed",
		"Head_Flying_Hours#":     "smartprom_head_flying_hours_",
		"scsi_grown_defect_list": "smartprom_scsi_grown_defect_list",
	}

	for attribute, expected := range tests {
		assert.Equal(t, expected, MetricName(attribute), attribute)
	}
}

func TestRegistryRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	sda := testDevice(t, "/dev/sda", "sat", "Samsung SSD 860 EVO 500GB", "S3Z1NB0K123456")
	sdb := testDevice(t, "/dev/sdb", "sat", "Samsung SSD 860 EVO 500GB", "S3Z1NB0K654321")

	require.NoError(t, r.Record(sda, "Power_On_Hours_raw", Attribute{Value: 20071, Code: 9, HasCode: true}))
	require.NoError(t, r.Record(sdb, "Power_On_Hours_raw", Attribute{Value: 100, Code: 9, HasCode: true}))
	require.NoError(t, r.Record(sda, "smart_passed", Attribute{Value: 1, HasCode: true}))

	assert.Equal(t, 2, r.Len())

	entry, ok := r.entry("smartprom_power_on_hours_raw")
	require.True(t, ok)
	assert.Equal(t, "(0x9) Power On Hours raw", entry.Description)

	entry, ok = r.entry("smartprom_smart_passed")
	require.True(t, ok)
	assert.Equal(t, "(0x0) smart passed", entry.Description)

	gauge := r.entries["smartprom_power_on_hours_raw"].gauge
	assert.Equal(t, 2, testutil.CollectAndCount(gauge))
	assert.Equal(t, 20071.0, testutil.ToFloat64(gauge.WithLabelValues("/dev/sda_sat", "sat", "Samsung SSD 860 EVO 500GB", "S3Z1NB0K123456")))
	assert.Equal(t, 100.0, testutil.ToFloat64(gauge.WithLabelValues("/dev/sdb_sat", "sat", "Samsung SSD 860 EVO 500GB", "S3Z1NB0K654321")))

	// overwritten, no new series
	require.NoError(t, r.Record(sda, "Power_On_Hours_raw", Attribute{Value: 20072, Code: 9, HasCode: true}))
	assert.Equal(t, 2, testutil.CollectAndCount(gauge))
	assert.Equal(t, 20072.0, testutil.ToFloat64(gauge.WithLabelValues("/dev/sda_sat", "sat", "Samsung SSD 860 EVO 500GB", "S3Z1NB0K123456")))

	count, err := testutil.GatherAndCount(reg, "smartprom_power_on_hours_raw")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegistryDescriptionIsFixedOnFirstSight(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	dev := testDevice(t, "/dev/sda", "sat", "model", "serial")

	require.NoError(t, r.Record(dev, "Temperature_Celsius", Attribute{Value: 57, Code: 194, HasCode: true}))
	require.NoError(t, r.Record(dev, "Temperature_Celsius", Attribute{Value: 58, Code: 190, HasCode: true}))

	entry, ok := r.entry("smartprom_temperature_celsius")
	require.True(t, ok)
	assert.Equal(t, "(0xc2) Temperature Celsius", entry.Description)
}

func TestRegistryDescriptionWithoutCode(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	dev := testDevice(t, "/dev/sdb", "scsi", "model", "serial")

	require.NoError(t, r.Record(dev, "scsi_grown_defect_list", Attribute{Value: 12, Code: 7}))

	entry, ok := r.entry("smartprom_scsi_grown_defect_list")
	require.True(t, ok)
	assert.Equal(t, "(0x0) scsi grown defect list", entry.Description)
}

func TestRegistryNeverShrinks(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	dev := testDevice(t, "/dev/sda", "sat", "model", "serial")

	lens := []int{}
	for _, names := range [][]string{
		{"a", "b"},
		{"a"},
		{},
		{"c", "b"},
	} {
		for _, name := range names {
			require.NoError(t, r.Record(dev, name, Attribute{Value: 1}))
		}
		lens = append(lens, r.Len())
	}

	assert.Equal(t, []int{2, 2, 2, 3}, lens)
}

func TestRegistryAttributesSharingAMetricName(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	dev := testDevice(t, "/dev/sdb", "scsi", "model", "serial")

	require.NoError(t, r.Record(dev, "power_on_hours_raw", Attribute{Value: 10}))
	require.NoError(t, r.Record(dev, "Power_On_Hours_raw", Attribute{Value: 11}))

	assert.Equal(t, 1, r.Len())
	gauge := r.entries["smartprom_power_on_hours_raw"].gauge
	assert.Equal(t, 11.0, testutil.ToFloat64(gauge.WithLabelValues(dev.labelValues()...)))
}

func TestRegistryAdoptsExistingGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	dev := testDevice(t, "/dev/sda", "sat", "model", "serial")

	first := NewRegistry(reg)
	require.NoError(t, first.Record(dev, "Power_On_Hours", Attribute{Value: 1, Code: 9, HasCode: true}))

	second := NewRegistry(reg)
	require.NoError(t, second.Record(dev, "Power_On_Hours", Attribute{Value: 2, Code: 9, HasCode: true}))

	gauge := first.entries["smartprom_power_on_hours"].gauge
	assert.Equal(t, 2.0, testutil.ToFloat64(gauge.WithLabelValues(dev.labelValues()...)))
}

func TestRegistryNameTakenByAnotherCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "smartprom_smart_passed", Help: "taken"}))

	r := NewRegistry(reg)
	err := r.Record(testDevice(t, "/dev/sda", "sat", "model", "serial"), "smart_passed", Attribute{Value: 1})
	assert.Error(t, err)
	assert.Equal(t, 0, r.Len())
}
