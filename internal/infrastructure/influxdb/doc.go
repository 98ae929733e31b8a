// Package influxdb records GripID device status history as time series.
//
// Every audited status change becomes a device_status point and every bulk
// import an import_batch point, so stock-per-location and import volume can
// be charted without querying the registry database.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // time-series recording switched off
//	}
//	defer client.Close()
//
//	client.WriteStatusChange(influxdb.StatusChange{Serial: "GRIPID100", Status: "Shipped"})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Write errors are delivered to the SetOnError callback.
package influxdb
