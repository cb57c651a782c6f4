// Package postgres backs the alert ledger, the contacts/is_authorized
// lookup, and the caretaker account table behind lib/pq.
package postgres

import (
	"context"
	"database/sql"

	"github.com/pathwatch/navguard/internal/navtypes"
)

// AlertStore is the append-only alert ledger consumed by the watchdog.
type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

// Put appends an alert. Alerts are never updated in place; a clear or
// ack is a separate row, not a mutation of this one.
func (s *AlertStore) Put(ctx context.Context, alert *navtypes.Alert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, client_id, kind, t, rationale, since, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		alert.ID, alert.ClientID, alert.Kind, alert.T, alert.Rationale, alert.Since, alert.CreatedAt,
	)
	return err
}

// List returns the most recent alerts for a client, newest first.
func (s *AlertStore) List(ctx context.Context, clientID string, limit int) ([]*navtypes.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, kind, t, rationale, since, created_at
		 FROM alerts WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2`,
		clientID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*navtypes.Alert
	for rows.Next() {
		var a navtypes.Alert
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Kind, &a.T, &a.Rationale, &a.Since, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
