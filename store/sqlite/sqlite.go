/*
Package sqlite provides a SQLite-backed implementation of the storage seam.

PURPOSE:
  Implements affiliate.Store and affiliate.AdminStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  affiliates:   Partner records (tier, status, running balances)
  commissions:  Append-only commission ledger
  tier_changes: Audit log of applied tier movements with reasons

LEDGER CONTRACT:
  No UPDATE touches a commission's amount or type. The only mutation is
  the forward-only status transition, validated in Go before the write.

MONEY PRECISION:
  Amounts are stored as TEXT and summed in Go with decimal.Decimal.
  SQLite's SUM would coerce to float and drift on large ledgers.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus WAL mode so readers don't
  block. The engine serializes writes per affiliate by running batches
  single-threaded; the mutex covers overlapping admin calls.

USAGE:
  store, err := sqlite.New("./data/affiliates.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - affiliate/store.go: Interface definitions
  - affiliate/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/affiliate-engine/affiliate"
)

// Store implements affiliate.AdminStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ affiliate.AdminStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Affiliates (partner records)
	CREATE TABLE IF NOT EXISTS affiliates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		tier TEXT NOT NULL DEFAULT 'BRONZE',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		conversion_rate REAL NOT NULL DEFAULT 0,
		total_earnings TEXT NOT NULL DEFAULT '0',
		pending_earnings TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_affiliates_status
		ON affiliates(status);

	-- Commissions (append-only ledger)
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		affiliate_id TEXT NOT NULL,
		conversion_id TEXT,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		conversion_type TEXT NOT NULL,
		description TEXT,
		due_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: trailing-window and calendar-month aggregates
	CREATE INDEX IF NOT EXISTS idx_commissions_affiliate_status_created
		ON commissions(affiliate_id, status, created_at);
	CREATE INDEX IF NOT EXISTS idx_commissions_affiliate
		ON commissions(affiliate_id);

	-- Tier changes (audit log with reasons)
	CREATE TABLE IF NOT EXISTS tier_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		affiliate_id TEXT NOT NULL,
		from_tier TEXT NOT NULL,
		to_tier TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tier_changes_affiliate
		ON tier_changes(affiliate_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AFFILIATES
// =============================================================================

func (s *Store) GetAffiliate(ctx context.Context, id string) (*affiliate.Affiliate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, tier, status, conversion_rate,
		       total_earnings, pending_earnings, created_at, updated_at
		FROM affiliates WHERE id = ?`, id)

	aff, err := scanAffiliate(row)
	if err == sql.ErrNoRows {
		return nil, affiliate.ErrAffiliateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get affiliate %s: %v", affiliate.ErrStoreFailure, id, err)
	}
	return aff, nil
}

func (s *Store) ListAffiliates(ctx context.Context, status affiliate.AffiliateStatus) ([]affiliate.Affiliate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, tier, status, conversion_rate,
		       total_earnings, pending_earnings, created_at, updated_at
		FROM affiliates WHERE status = ? ORDER BY id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: list affiliates: %v", affiliate.ErrStoreFailure, err)
	}
	defer rows.Close()

	var result []affiliate.Affiliate
	for rows.Next() {
		aff, err := scanAffiliate(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan affiliate: %v", affiliate.ErrStoreFailure, err)
		}
		result = append(result, *aff)
	}
	return result, rows.Err()
}

func (s *Store) CreateAffiliate(ctx context.Context, a affiliate.Affiliate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO affiliates (id, name, email, tier, status, conversion_rate,
			total_earnings, pending_earnings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, string(a.Tier), string(a.Status), a.ConversionRate,
		a.TotalEarnings.String(), a.PendingEarnings.String(),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: create affiliate %s: %v", affiliate.ErrStoreFailure, a.ID, err)
	}
	return nil
}

func (s *Store) UpdateTier(ctx context.Context, affiliateID string, tier affiliate.Tier, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tier update: %v", affiliate.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT tier FROM affiliates WHERE id = ?`, affiliateID).Scan(&current)
	if err == sql.ErrNoRows {
		return affiliate.ErrAffiliateNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: read tier for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE affiliates SET tier = ?, updated_at = ? WHERE id = ?`,
		string(tier), now, affiliateID); err != nil {
		return fmt.Errorf("%w: update tier for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tier_changes (affiliate_id, from_tier, to_tier, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		affiliateID, current, string(tier), reason, now); err != nil {
		return fmt.Errorf("%w: log tier change for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}

	return tx.Commit()
}

func (s *Store) AddEarnings(ctx context.Context, affiliateID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin earnings update: %v", affiliate.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	var totalStr, pendingStr string
	err = tx.QueryRowContext(ctx, `
		SELECT total_earnings, pending_earnings FROM affiliates WHERE id = ?`,
		affiliateID).Scan(&totalStr, &pendingStr)
	if err == sql.ErrNoRows {
		return affiliate.ErrAffiliateNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: read balances for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}

	total := affiliate.MustDecimal(totalStr).Add(amount)
	pending := affiliate.MustDecimal(pendingStr).Add(amount)

	if _, err := tx.ExecContext(ctx, `
		UPDATE affiliates SET total_earnings = ?, pending_earnings = ?, updated_at = ?
		WHERE id = ?`,
		total.String(), pending.String(), time.Now().UTC().Format(time.RFC3339), affiliateID); err != nil {
		return fmt.Errorf("%w: update balances for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}

	return tx.Commit()
}

// =============================================================================
// COMMISSIONS
// =============================================================================

func (s *Store) AppendCommission(ctx context.Context, rec affiliate.CommissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commissions (id, affiliate_id, conversion_id, amount, status,
			conversion_type, description, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AffiliateID, rec.ConversionID, rec.Amount.String(),
		string(rec.Status), string(rec.Type), rec.Description,
		formatNullableTime(rec.DueDate), rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return affiliate.ErrDuplicateCommission
		}
		return fmt.Errorf("%w: append commission %s: %v", affiliate.ErrStoreFailure, rec.ID, err)
	}
	return nil
}

func (s *Store) AggregateCommissions(ctx context.Context, affiliateID string, statuses []affiliate.CommissionStatus, from, to time.Time) (affiliate.CommissionAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := affiliate.CommissionAggregate{Total: decimal.Zero}
	if len(statuses) == 0 {
		return agg, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")

	args := []any{affiliateID}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	// Amounts are TEXT; summed in Go with decimal to avoid float drift.
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT amount FROM commissions
		WHERE affiliate_id = ? AND status IN (%s)
		  AND created_at >= ? AND created_at <= ?`, placeholders), args...)
	if err != nil {
		return agg, fmt.Errorf("%w: aggregate commissions for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return agg, fmt.Errorf("%w: scan amount: %v", affiliate.ErrStoreFailure, err)
		}
		agg.Total = agg.Total.Add(affiliate.MustDecimal(amountStr))
		agg.Count++
	}
	return agg, rows.Err()
}

func (s *Store) ListCommissions(ctx context.Context, affiliateID string) ([]affiliate.CommissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, affiliate_id, conversion_id, amount, status,
		       conversion_type, description, due_date, created_at
		FROM commissions WHERE affiliate_id = ?
		ORDER BY created_at DESC`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("%w: list commissions for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}
	defer rows.Close()

	var result []affiliate.CommissionRecord
	for rows.Next() {
		rec, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan commission: %v", affiliate.ErrStoreFailure, err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (s *Store) GetCommission(ctx context.Context, id string) (*affiliate.CommissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, affiliate_id, conversion_id, amount, status,
		       conversion_type, description, due_date, created_at
		FROM commissions WHERE id = ?`, id)

	rec, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, affiliate.ErrCommissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get commission %s: %v", affiliate.ErrStoreFailure, id, err)
	}
	return rec, nil
}

func (s *Store) UpdateCommissionStatus(ctx context.Context, id string, status affiliate.CommissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin status update: %v", affiliate.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	var currentStr, amountStr, affiliateID string
	err = tx.QueryRowContext(ctx, `
		SELECT status, amount, affiliate_id FROM commissions WHERE id = ?`,
		id).Scan(&currentStr, &amountStr, &affiliateID)
	if err == sql.ErrNoRows {
		return affiliate.ErrCommissionNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: read commission %s: %v", affiliate.ErrStoreFailure, id, err)
	}

	current := affiliate.CommissionStatus(currentStr)
	if !current.CanTransitionTo(status) {
		return &affiliate.TransitionError{CommissionID: id, From: current, To: status}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE commissions SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("%w: update status for %s: %v", affiliate.ErrStoreFailure, id, err)
	}

	// Paying out releases the amount from the pending balance.
	if status == affiliate.StatusPaid {
		var pendingStr string
		if err := tx.QueryRowContext(ctx, `
			SELECT pending_earnings FROM affiliates WHERE id = ?`,
			affiliateID).Scan(&pendingStr); err == nil {
			pending := affiliate.MustDecimal(pendingStr).Sub(affiliate.MustDecimal(amountStr))
			if _, err := tx.ExecContext(ctx, `
				UPDATE affiliates SET pending_earnings = ?, updated_at = ? WHERE id = ?`,
				pending.String(), time.Now().UTC().Format(time.RFC3339), affiliateID); err != nil {
				return fmt.Errorf("%w: release pending for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
			}
		}
	}

	return tx.Commit()
}

// =============================================================================
// TIER CHANGE LOG
// =============================================================================

// TierChangeRecord is one row from the tier change audit log.
type TierChangeRecord struct {
	AffiliateID string
	FromTier    affiliate.Tier
	ToTier      affiliate.Tier
	Reason      string
	CreatedAt   time.Time
}

// ListTierChanges returns an affiliate's tier history, newest first.
func (s *Store) ListTierChanges(ctx context.Context, affiliateID string) ([]TierChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT affiliate_id, from_tier, to_tier, reason, created_at
		FROM tier_changes WHERE affiliate_id = ?
		ORDER BY created_at DESC, id DESC`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("%w: list tier changes for %s: %v", affiliate.ErrStoreFailure, affiliateID, err)
	}
	defer rows.Close()

	var result []TierChangeRecord
	for rows.Next() {
		var rec TierChangeRecord
		var from, to, created string
		if err := rows.Scan(&rec.AffiliateID, &from, &to, &rec.Reason, &created); err != nil {
			return nil, fmt.Errorf("%w: scan tier change: %v", affiliate.ErrStoreFailure, err)
		}
		rec.FromTier = affiliate.Tier(from)
		rec.ToTier = affiliate.Tier(to)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAffiliate(row rowScanner) (*affiliate.Affiliate, error) {
	var aff affiliate.Affiliate
	var tier, status, total, pending, created, updated string
	var email sql.NullString

	if err := row.Scan(&aff.ID, &aff.Name, &email, &tier, &status,
		&aff.ConversionRate, &total, &pending, &created, &updated); err != nil {
		return nil, err
	}

	aff.Email = email.String
	aff.Tier = affiliate.Tier(tier)
	aff.Status = affiliate.AffiliateStatus(status)
	aff.TotalEarnings = affiliate.MustDecimal(total)
	aff.PendingEarnings = affiliate.MustDecimal(pending)
	aff.CreatedAt, _ = time.Parse(time.RFC3339, created)
	aff.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &aff, nil
}

func scanCommission(row rowScanner) (*affiliate.CommissionRecord, error) {
	var rec affiliate.CommissionRecord
	var amount, status, ctype, created string
	var conversionID, description, dueDate sql.NullString

	if err := row.Scan(&rec.ID, &rec.AffiliateID, &conversionID, &amount,
		&status, &ctype, &description, &dueDate, &created); err != nil {
		return nil, err
	}

	rec.ConversionID = conversionID.String
	rec.Amount = affiliate.MustDecimal(amount)
	rec.Status = affiliate.CommissionStatus(status)
	rec.Type = affiliate.ConversionType(ctype)
	rec.Description = description.String
	if dueDate.Valid && dueDate.String != "" {
		rec.DueDate, _ = time.Parse(time.RFC3339, dueDate.String)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &rec, nil
}

func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
