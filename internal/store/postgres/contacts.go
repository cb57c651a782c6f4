package postgres

import (
	"context"
	"database/sql"

	"github.com/pathwatch/navguard/internal/navtypes"
)

// ContactStore is the contacts collaborator: add, list, and the
// single indexed is_authorized(requester_id, client_id) lookup.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) Add(ctx context.Context, c *navtypes.EmergencyContact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (client_id, contact_id, name, phone, email, authorized)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (client_id, contact_id) DO UPDATE SET
		   name = EXCLUDED.name, phone = EXCLUDED.phone, email = EXCLUDED.email, authorized = EXCLUDED.authorized`,
		c.ClientID, c.ContactID, c.Name, c.Phone, c.Email, c.Authorized,
	)
	return err
}

// List returns every contact registered for a client, active or not;
// callers filter on Authorized for notification fan-out.
func (s *ContactStore) List(ctx context.Context, clientID string) ([]*navtypes.EmergencyContact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, contact_id, name, phone, email, authorized FROM contacts WHERE client_id = $1`,
		clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*navtypes.EmergencyContact
	for rows.Next() {
		var c navtypes.EmergencyContact
		if err := rows.Scan(&c.ClientID, &c.ContactID, &c.Name, &c.Phone, &c.Email, &c.Authorized); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// IsAuthorized is the query planner's single indexed lookup gating
// every query.
func (s *ContactStore) IsAuthorized(ctx context.Context, requesterID, clientID string) (bool, error) {
	var authorized bool
	err := s.db.QueryRowContext(ctx,
		`SELECT authorized FROM contacts WHERE contact_id = $1 AND client_id = $2`,
		requesterID, clientID,
	).Scan(&authorized)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return authorized, nil
}

// CaretakerStore backs the CaretakerAccount table consumed by
// internal/auth.
type CaretakerStore struct {
	db *sql.DB
}

func NewCaretakerStore(db *sql.DB) *CaretakerStore {
	return &CaretakerStore{db: db}
}

func (s *CaretakerStore) Get(ctx context.Context, caretakerID string) (*navtypes.CaretakerAccount, error) {
	var acct navtypes.CaretakerAccount
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM caretakers WHERE id = $1`,
		caretakerID,
	).Scan(&acct.CaretakerID, &acct.Email, &acct.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
