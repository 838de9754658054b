package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CardAtOffice is the holder value meaning the guest card is back at the
// association office.
const CardAtOffice = "CLIC"

// CardStore tracks who currently holds the association guest card. The table
// holds a single row.
type CardStore struct {
	db *sqlx.DB
}

// NewCardStore wraps the given database handle.
func NewCardStore(db *sqlx.DB) *CardStore {
	return &CardStore{db: db}
}

// Holder returns the current card holder, or CardAtOffice when nobody has it.
func (s *CardStore) Holder(ctx context.Context) (string, error) {
	var holder string
	err := s.db.GetContext(ctx, &holder, `SELECT holder FROM guest_card WHERE id = 1`)
	if err != nil {
		return "", fmt.Errorf("card holder: %w", err)
	}
	return holder, nil
}

// SetHolder records a new card holder, overwriting the previous one.
func (s *CardStore) SetHolder(ctx context.Context, holder string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE guest_card SET holder = $1 WHERE id = 1`, holder); err != nil {
		return fmt.Errorf("set card holder: %w", err)
	}
	return nil
}
