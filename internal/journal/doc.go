// Package journal records pipeline runs and caches refined hours in SQLite.
//
// Every run gets a row in the runs table that is updated after each attempt,
// so the API can show what happened and when. The refined_hours table keeps
// the latest refined values per day and hour; the hourly MQTT publisher and
// the API read from it instead of querying InfluxDB.
package journal
