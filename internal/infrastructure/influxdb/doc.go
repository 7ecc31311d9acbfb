// Package influxdb stores prices and refined hours in an InfluxDB 1.x database.
//
// Writes go through the official influxdb-client-go v2 library using the 1.x
// compatibility endpoints: the token is "username:password", the organisation
// is empty and the bucket is "database/retention-policy". Reads use InfluxQL
// on the /query endpoint, which the v2 client does not speak.
//
// # Measurements
//
//	price_info  tags: date, hour   fields: price, energy, tax, level, currency
//	refined     tags: date, hour   fields: pris_snitt_24, pris_time, ... (one point per hour)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.WritePrices(ctx, info.All(), loc); err != nil {
//	    return err
//	}
//	prices, err := client.DayPrices(ctx, "2026-10-18")
//
// # Thread Safety
//
// All Client methods are safe for concurrent use.
package influxdb
