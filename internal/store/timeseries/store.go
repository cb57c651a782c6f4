// Package timeseries backs the record store on InfluxDB: every
// ingested record is a point in the nav_records measurement, tagged by
// client_id and session_id so range queries stay index-friendly.
package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/pathwatch/navguard/internal/navtypes"
)

const measurement = "nav_records"

// buildFluxQuery composes the range/filter/pivot pipeline shared by every
// Query call; sessionID == "" omits the session filter stage entirely.
func buildFluxQuery(bucket, start, stop, clientID, sessionID string) string {
	var sessionFilter string
	if sessionID != "" {
		sessionFilter = fmt.Sprintf(`|> filter(fn: (r) => r.session_id == %q)`, sessionID)
	}

	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r.client_id == %q)
  %s
  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])
`, bucket, start, stop, measurement, clientID, sessionFilter)
}

// Store is the indexer's RecordStore collaborator, backed by InfluxDB.
type Store struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	org    string
	bucket string
}

// New opens an InfluxDB client against url/token and binds it to
// org/bucket for both writes and queries.
func New(url, token, org, bucket string) *Store {
	client := influxdb2.NewClient(url, token)
	return &Store{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
		query:  client.QueryAPI(org),
		org:    org,
		bucket: bucket,
	}
}

// Close releases the underlying HTTP client.
func (s *Store) Close() {
	s.client.Close()
}

// Put writes a validated record as a single Influx point.
func (s *Store) Put(ctx context.Context, r *navtypes.Record) error {
	fields := map[string]interface{}{
		"confidence": r.Confidence,
		"events":     strings.Join(r.Events, "|"),
		"classes":    strings.Join(r.Classes, "|"),
		"app":        r.App,
	}
	if r.FreeAheadM != nil {
		fields["free_ahead_m"] = *r.FreeAheadM
	}

	point := influxdb2.NewPoint(
		measurement,
		map[string]string{
			"client_id":  r.ClientID,
			"session_id": r.SessionID,
		},
		fields,
		time.Unix(r.T, 0).UTC(),
	)

	return s.write.WritePoint(ctx, point)
}

// Query returns every record for clientID (optionally scoped to
// sessionID and a half-open [timeStart, timeEnd) range), ascending by t.
func (s *Store) Query(ctx context.Context, clientID, sessionID string, timeStart, timeEnd *int64) ([]*navtypes.Record, error) {
	start := "0"
	if timeStart != nil {
		start = strconv.FormatInt(*timeStart, 10)
	}
	stop := "now()"
	if timeEnd != nil {
		stop = strconv.FormatInt(*timeEnd, 10)
	}

	flux := buildFluxQuery(s.bucket, start, stop, clientID, sessionID)

	result, err := s.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("query influx: %w", err)
	}
	defer result.Close()

	var records []*navtypes.Record
	for result.Next() {
		rec := result.Record()

		r := &navtypes.Record{
			ClientID:  clientID,
			SessionID: sessionID,
			T:         rec.Time().Unix(),
		}
		if v, ok := rec.ValueByKey("confidence").(float64); ok {
			r.Confidence = v
		}
		if v, ok := rec.ValueByKey("events").(string); ok && v != "" {
			r.Events = strings.Split(v, "|")
		}
		if v, ok := rec.ValueByKey("classes").(string); ok && v != "" {
			r.Classes = strings.Split(v, "|")
		}
		if v, ok := rec.ValueByKey("app").(string); ok {
			r.App = v
		}
		if v, ok := rec.ValueByKey("free_ahead_m").(float64); ok {
			r.FreeAheadM = &v
		}

		if tag := rec.ValueByKey("session_id"); tag != nil {
			r.SessionID = tag.(string)
		}

		records = append(records, r)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("influx result error: %w", err)
	}

	return records, nil
}
