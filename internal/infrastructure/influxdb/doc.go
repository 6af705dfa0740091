// Package influxdb records Toshiba unit telemetry in InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API. The bridge writes
// one climate_state point per decoded telemetry update plus single-value
// device_metrics readings such as outdoor temperature.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Warn("influx write failed", "error", err) })
//
// Writes are batched per batch_size and flush_interval and never block the
// caller. Connection and health check errors are returned directly.
package influxdb
