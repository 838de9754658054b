// Package storage persists the admin roster, per-chat command grants, and the
// guest card holder in Postgres. Compound check-then-write operations run in a
// single serializable transaction; single-statement mutations rely on the
// uniqueness constraints of the schema.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clic-epfl/clicbot/internal/logger"
)

// ErrDuplicateAdmin is returned when an identity is already in the admin set.
var ErrDuplicateAdmin = errors.New("storage: admin already exists")

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Admin is one entry of the persisted admin roster.
type Admin struct {
	Identity string `db:"telegram_id"`
	Name     string `db:"name"`
}

// AccessStore implements the persisted authorization model: who is an admin,
// and which chat may run which command.
type AccessStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewAccessStore wraps the given database handle.
func NewAccessStore(db *sqlx.DB) *AccessStore {
	return &AccessStore{db: db, log: logger.Component("service.access")}
}

// IsAdmin reports whether the identity is in the admin set. A storage error
// is treated as "not an admin" (fail closed) and logged.
func (s *AccessStore) IsAdmin(ctx context.Context, identity string) bool {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE telegram_id = $1)`, identity)
	if err != nil {
		s.logQueryError(ctx, "admin.check", err)
		return false
	}
	return exists
}

// AddAdmin inserts a new admin. A duplicate identity yields ErrDuplicateAdmin.
// The existence check and the insert share one serializable transaction so two
// concurrent calls cannot both succeed.
func (s *AccessStore) AddAdmin(ctx context.Context, identity, name string) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin add admin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE telegram_id = $1)`, identity); err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return ErrDuplicateAdmin
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO admins(telegram_id, name) VALUES ($1, $2)`, identity, name); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAdmin
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAdmin
		}
		return fmt.Errorf("commit add admin: %w", err)
	}
	return nil
}

// RemoveAdmin deletes an admin by display name. It reports whether a matching
// entry existed; an unknown name is not an error.
func (s *AccessStore) RemoveAdmin(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete admin result: %w", err)
	}
	return affected > 0, nil
}

// Admins returns the current admin roster.
func (s *AccessStore) Admins(ctx context.Context) ([]Admin, error) {
	var admins []Admin
	if err := s.db.SelectContext(ctx, &admins,
		`SELECT telegram_id, name FROM admins ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// IsAuthorized reports whether a grant exists for the exact (chat, command)
// pair. Absence of a grant means refusal; storage errors also mean refusal.
func (s *AccessStore) IsAuthorized(ctx context.Context, chatID int64, command string) bool {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM authorizations WHERE chat_id = $1 AND command = $2)`,
		chatID, command)
	if err != nil {
		s.logQueryError(ctx, "grant.check", err)
		return false
	}
	return exists
}

// Grant allows a chat to use a command. Granting an existing grant is a no-op;
// the primary key on (chat_id, command) makes concurrent grants collapse into
// a single row.
func (s *AccessStore) Grant(ctx context.Context, chatID int64, command string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO authorizations(chat_id, command) VALUES ($1, $2)
		 ON CONFLICT (chat_id, command) DO NOTHING`, chatID, command); err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

// Revoke removes a grant. Revoking a missing grant is a no-op.
func (s *AccessStore) Revoke(ctx context.Context, chatID int64, command string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM authorizations WHERE chat_id = $1 AND command = $2`,
		chatID, command); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

// Authorizations lists the commands the given chat may use.
func (s *AccessStore) Authorizations(ctx context.Context, chatID int64) ([]string, error) {
	var commands []string
	if err := s.db.SelectContext(ctx, &commands,
		`SELECT command FROM authorizations WHERE chat_id = $1 ORDER BY command`,
		chatID); err != nil {
		return nil, fmt.Errorf("list authorizations: %w", err)
	}
	return commands, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (s *AccessStore) logQueryError(ctx context.Context, event string, err error) {
	if s.log == nil {
		return
	}
	s.log.LogAttrs(ctx, slog.LevelError, event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
}
