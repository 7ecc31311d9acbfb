package influxdb_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/casamack/tibber-refiner/internal/infrastructure/config"
	"github.com/casamack/tibber-refiner/internal/infrastructure/influxdb"
	"github.com/casamack/tibber-refiner/internal/refiner"
)

func TestDayPrices(t *testing.T) {
	fake := &fakeInflux{queryBody: `{"results":[{"statement_id":0,"series":[{"name":"price_info","columns":["time","price"],
		"values":[[1768431600,0.5],[1768435200,0.45],[1768438800,1.2]]}]}]}`}
	client := connectFake(t, fake, func(cfg *config.InfluxDBConfig) {
		cfg.Username = "reader"
		cfg.Password = "pw"
		cfg.RetentionPolicy = "autogen"
	})

	prices, err := client.DayPrices(context.Background(), "2026-01-15")
	if err != nil {
		t.Fatalf("DayPrices() error = %v", err)
	}
	if want := []float64{0.5, 0.45, 1.2}; !reflect.DeepEqual(prices, want) {
		t.Errorf("DayPrices() = %v, want %v", prices, want)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if q := fake.queries[0]; !strings.Contains(q, "SELECT price FROM price_info WHERE date = '2026-01-15'") {
		t.Errorf("query = %q", q)
	}
	if fake.auth[0] != "reader:pw" {
		t.Errorf("basic auth = %q", fake.auth[0])
	}
	params := fake.queryURLs[0]
	for _, want := range []string{"POST ", "db=tibber", "rp=autogen", "epoch=s"} {
		if !strings.Contains(params, want) {
			t.Errorf("query request %q missing %q", params, want)
		}
	}
}

func TestDayPrices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		date    string
		wantErr error
	}{
		{name: "no series", body: `{"results":[{"statement_id":0}]}`, date: "2026-01-15", wantErr: influxdb.ErrNoData},
		{name: "no results", body: `{"results":[]}`, date: "2026-01-15", wantErr: influxdb.ErrNoData},
		{name: "empty values", body: `{"results":[{"series":[{"columns":["time","price"],"values":[]}]}]}`, date: "2026-01-15", wantErr: influxdb.ErrNoData},
		{name: "null price mid-day", body: `{"results":[{"series":[{"columns":["time","price"],"values":[[0,1.0],[3600,null],[7200,3.0]]}]}]}`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "short row", body: `{"results":[{"series":[{"columns":["time","price"],"values":[[0,1.0],[3600]]}]}]}`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "string price", body: `{"results":[{"series":[{"columns":["time","price"],"values":[[0,"cheap"]]}]}]}`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "statement error", body: `{"results":[{"statement_id":0,"error":"database not found: tibber"}]}`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "http error", status: http.StatusUnauthorized, body: `{"error":"authorization failed"}`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "bad json", body: `{`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "missing column", body: `{"results":[{"series":[{"columns":["time"],"values":[[1]]}]}]}`, date: "2026-01-15", wantErr: influxdb.ErrQueryFailed},
		{name: "invalid date", body: `{}`, date: "2026-01-15' OR 1=1 --", wantErr: refiner.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := connectFake(t, &fakeInflux{queryStatus: tt.status, queryBody: tt.body}, nil)
			_, err := client.DayPrices(context.Background(), tt.date)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DayPrices() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
