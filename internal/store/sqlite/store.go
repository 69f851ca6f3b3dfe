// Package sqlite provides a SQLite-backed PolicyStore.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Store persists the single policy row in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite policy store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases coherent.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the stored policy; found is false when no policy has been written.
func (s *Store) Get(ctx context.Context) (domain.Policy, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Policy{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Policy{}, false, fmt.Errorf("storage is not configured")
	}

	var (
		p         domain.Policy
		paidOut   int64
		payout    int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT beneficiary, location, threshold_mm, payout_amount, paid_out, credential, updated_at
		   FROM policy WHERE id = 1`,
	).Scan(&p.Beneficiary, &p.Location, &p.ThresholdMm, &payout, &paidOut, &p.Credential, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Policy{}, false, nil
	}
	if err != nil {
		return domain.Policy{}, false, fmt.Errorf("get policy: %w", err)
	}
	p.PayoutAmount = uint64(payout)
	p.PaidOut = paidOut != 0
	p.UpdatedAt = fromMillis(updatedAt)
	return p, true, nil
}

// Put replaces the stored policy row.
func (s *Store) Put(ctx context.Context, p domain.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	paidOut := 0
	if p.PaidOut {
		paidOut = 1
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO policy (id, beneficiary, location, threshold_mm, payout_amount, paid_out, credential, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   beneficiary = excluded.beneficiary,
		   location = excluded.location,
		   threshold_mm = excluded.threshold_mm,
		   payout_amount = excluded.payout_amount,
		   paid_out = excluded.paid_out,
		   credential = excluded.credential,
		   updated_at = excluded.updated_at`,
		p.Beneficiary,
		p.Location,
		p.ThresholdMm,
		int64(p.PayoutAmount),
		paidOut,
		p.Credential,
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put policy: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}
