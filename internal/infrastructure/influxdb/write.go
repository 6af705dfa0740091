package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// deviceMetricsMeasurement holds single-value readings keyed by device and
// metric name.
const deviceMetricsMeasurement = "device_metrics"

// WriteDeviceMetric queues one reading, e.g. an outdoor temperature:
//
//	client.WriteDeviceMetric(uniqueID, "outdoor_temperature_c", 8)
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	c.WritePoint(deviceMetricsMeasurement,
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{"value": value},
	)
}

// WritePoint queues a point stamped with the current time. Keep tags low
// cardinality; put readings in fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime queues a point with an explicit timestamp. Points
// with no fields are dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
