/*
Package sqlite provides a SQLite-backed implementation of contract.Store.

PURPOSE:
  Persists contracts, milestones, calculated revenue schedules and
  forward-book snapshots.

KEY TABLES:
  contracts:              Ingested contracts and editor changes
  milestones:             Ordered milestones of a contract
  revenue_items:          The current schedule of a contract
  forward_book_snapshots: Forward book history

MONEY AND DATES:
  Decimals are stored as TEXT so no precision is lost. Calendar dates are
  stored as YYYY-MM-DD and read back at noon UTC; timestamps as RFC 3339.

SCHEMA:
  Managed by goose from the embedded migrations/ directory. New() applies
  pending migrations before returning.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Writes that touch more than one table
  run inside a single SQL transaction.

USAGE:
  store, err := sqlite.New("./data/contracts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - contract/store.go: Interface definition
  - contract/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/revenue"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements contract.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ contract.Store = (*Store)(nil)

// New opens the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on"
	if !isMemory(dbPath) {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isMemory(dbPath) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// =============================================================================
// CONTRACTS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveContract upserts a contract and replaces its milestones.
func (s *Store) SaveContract(ctx context.Context, c contract.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deliverables, err := json.Marshal(nonNil(c.Deliverables))
	if err != nil {
		return fmt.Errorf("failed to encode deliverables: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO contracts
		(id, filename, original_text, status, contract_value,
		 start_date, end_date, work_start_date, work_end_date, billing_start_date, billing_end_date,
		 client_name, description, payment_terms, deliverables_json, confidence, reasoning,
		 recognition_method, actual_revenue, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			original_text = excluded.original_text,
			status = excluded.status,
			contract_value = excluded.contract_value,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			work_start_date = excluded.work_start_date,
			work_end_date = excluded.work_end_date,
			billing_start_date = excluded.billing_start_date,
			billing_end_date = excluded.billing_end_date,
			client_name = excluded.client_name,
			description = excluded.description,
			payment_terms = excluded.payment_terms,
			deliverables_json = excluded.deliverables_json,
			confidence = excluded.confidence,
			reasoning = excluded.reasoning,
			recognition_method = excluded.recognition_method,
			actual_revenue = excluded.actual_revenue,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		c.ID, c.Filename, c.OriginalText, string(c.Status), nullDecimal(c.Value),
		nullDate(c.StartDate), nullDate(c.EndDate),
		nullDate(c.WorkStartDate), nullDate(c.WorkEndDate),
		nullDate(c.BillingStartDate), nullDate(c.BillingEndDate),
		c.ClientName, c.Description, c.PaymentTerms, string(deliverables), c.Confidence, c.Reasoning,
		string(c.Method), c.ActualRevenue.String(),
		formatTimestamp(c.CreatedAt), formatTimestamp(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM milestones WHERE contract_id = ?", c.ID); err != nil {
		return fmt.Errorf("failed to clear milestones: %w", err)
	}
	for i, m := range c.Milestones {
		if err := insertMilestone(ctx, tx, c.ID, i, m); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertMilestone(ctx context.Context, db execer, contractID string, position int, m contract.Milestone) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO milestones (id, contract_id, position, name, amount, due_date, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, contractID, position, m.Name, m.Amount.String(), nullDate(m.DueDate), m.Completed)
	if err != nil {
		return fmt.Errorf("failed to save milestone %q: %w", m.Name, err)
	}
	return nil
}

const contractColumns = `
	id, filename, original_text, status, contract_value,
	start_date, end_date, work_start_date, work_end_date, billing_start_date, billing_end_date,
	client_name, description, payment_terms, deliverables_json, confidence, reasoning,
	recognition_method, actual_revenue, created_at, updated_at`

// GetContract retrieves a contract with its milestones.
func (s *Store) GetContract(ctx context.Context, id string) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+contractColumns+" FROM contracts WHERE id = ?", id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contract.ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}

	byContract, err := s.loadMilestones(ctx, "WHERE contract_id = ?", id)
	if err != nil {
		return nil, err
	}
	c.Milestones = nonNilMilestones(byContract[id])
	return &c, nil
}

// ListContracts returns all contracts, newest first.
func (s *Store) ListContracts(ctx context.Context) ([]contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+contractColumns+" FROM contracts ORDER BY created_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := []contract.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byContract, err := s.loadMilestones(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range contracts {
		contracts[i].Milestones = nonNilMilestones(byContract[contracts[i].ID])
	}
	return contracts, nil
}

// DeleteContract removes a contract; milestones, schedule and snapshots
// cascade.
func (s *Store) DeleteContract(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return contract.ErrContractNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContract(row scanner) (contract.Contract, error) {
	var c contract.Contract
	var status, deliverables, method, actual, createdAt, updatedAt string
	var value, start, end, workStart, workEnd, billStart, billEnd sql.NullString

	err := row.Scan(
		&c.ID, &c.Filename, &c.OriginalText, &status, &value,
		&start, &end, &workStart, &workEnd, &billStart, &billEnd,
		&c.ClientName, &c.Description, &c.PaymentTerms, &deliverables, &c.Confidence, &c.Reasoning,
		&method, &actual, &createdAt, &updatedAt,
	)
	if err != nil {
		return c, err
	}

	c.Status = contract.Status(status)
	c.Method = revenue.Method(method)
	c.Value = parseNullDecimal(value)
	c.ActualRevenue = parseDecimal(actual)
	c.StartDate = parseNullDate(start)
	c.EndDate = parseNullDate(end)
	c.WorkStartDate = parseNullDate(workStart)
	c.WorkEndDate = parseNullDate(workEnd)
	c.BillingStartDate = parseNullDate(billStart)
	c.BillingEndDate = parseNullDate(billEnd)
	c.CreatedAt = parseTimestamp(createdAt)
	c.UpdatedAt = parseTimestamp(updatedAt)

	c.Deliverables = []string{}
	if err := json.Unmarshal([]byte(deliverables), &c.Deliverables); err != nil {
		return c, fmt.Errorf("contract %s: bad deliverables: %w", c.ID, err)
	}
	return c, nil
}

func (s *Store) loadMilestones(ctx context.Context, where string, args ...any) (map[string][]contract.Milestone, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, contract_id, name, amount, due_date, completed FROM milestones "+where+" ORDER BY contract_id, position",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]contract.Milestone)
	for rows.Next() {
		var m contract.Milestone
		var amount string
		var due sql.NullString
		if err := rows.Scan(&m.ID, &m.ContractID, &m.Name, &amount, &due, &m.Completed); err != nil {
			return nil, err
		}
		m.Amount = parseDecimal(amount)
		m.DueDate = parseNullDate(due)
		out[m.ContractID] = append(out[m.ContractID], m)
	}
	return out, rows.Err()
}

// =============================================================================
// SCHEDULES
// =============================================================================

// ReplaceSchedule deletes the stored schedule and inserts items in one
// transaction.
func (s *Store) ReplaceSchedule(ctx context.Context, contractID string, items []contract.RevenueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM contracts WHERE id = ?", contractID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.ErrContractNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM revenue_items WHERE contract_id = ?", contractID); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO revenue_items
		(id, contract_id, method, sequence, amount, recognition_date, kind, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		_, err := stmt.ExecContext(ctx,
			it.ID, contractID, string(it.Method), it.Sequence,
			it.Amount.String(), formatDate(it.RecognitionDate), string(it.Kind), it.Description,
			formatTimestamp(it.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save revenue item %d: %w", it.Sequence, err)
		}
	}

	return tx.Commit()
}

// LoadSchedule returns the stored schedule ordered by sequence.
func (s *Store) LoadSchedule(ctx context.Context, contractID string) ([]contract.RevenueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, method, sequence, amount, recognition_date, kind, description, created_at
		FROM revenue_items WHERE contract_id = ? ORDER BY sequence
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []contract.RevenueItem{}
	for rows.Next() {
		var it contract.RevenueItem
		var method, amount, recognized, kind, createdAt string
		if err := rows.Scan(&it.ID, &it.ContractID, &method, &it.Sequence, &amount, &recognized, &kind, &it.Description, &createdAt); err != nil {
			return nil, err
		}
		it.Method = revenue.Method(method)
		it.Kind = revenue.Kind(kind)
		it.Amount = parseDecimal(amount)
		it.RecognitionDate = parseDate(recognized)
		it.CreatedAt = parseTimestamp(createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func (s *Store) SaveSnapshot(ctx context.Context, snap contract.ForwardBookSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forward_book_snapshots
		(id, contract_id, total_contracted, earned_to_date, unearned, forward_book, actual_revenue, as_of, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID, snap.ContractID,
		snap.TotalContracted.String(), snap.EarnedToDate.String(), snap.Unearned.String(), snap.ForwardBook.String(),
		snap.ActualRevenue.String(), formatTimestamp(snap.AsOf), formatTimestamp(snap.TakenAt),
	)
	if isForeignKeyViolation(err) {
		return contract.ErrContractNotFound
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// ListSnapshots returns the snapshots of a contract, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, contractID string) ([]contract.ForwardBookSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, total_contracted, earned_to_date, unearned, forward_book, actual_revenue, as_of, taken_at
		FROM forward_book_snapshots WHERE contract_id = ? ORDER BY taken_at, id
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := []contract.ForwardBookSnapshot{}
	for rows.Next() {
		var snap contract.ForwardBookSnapshot
		var total, earned, unearned, forward, actual, asOf, takenAt string
		if err := rows.Scan(&snap.ID, &snap.ContractID, &total, &earned, &unearned, &forward, &actual, &asOf, &takenAt); err != nil {
			return nil, err
		}
		snap.TotalContracted = parseDecimal(total)
		snap.EarnedToDate = parseDecimal(earned)
		snap.Unearned = parseDecimal(unearned)
		snap.ForwardBook = parseDecimal(forward)
		snap.ActualRevenue = parseDecimal(actual)
		snap.AsOf = parseTimestamp(asOf)
		snap.TakenAt = parseTimestamp(takenAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Helper functions

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatDate(t time.Time) string {
	return t.Format(contract.DateLayout)
}

func parseDate(s string) time.Time {
	t, _ := contract.ParseDate(s)
	return t
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := contract.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid {
		return nil
	}
	d := parseDecimal(s.String)
	return &d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMilestones(m []contract.Milestone) []contract.Milestone {
	if m == nil {
		return []contract.Milestone{}
	}
	return m
}
