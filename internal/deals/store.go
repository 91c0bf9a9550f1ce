package deals

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ajitpratap0/fxengine/internal/db"
	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// keyedLocks hands out a per-deal mutex so utilisations and transitions
// against the same deal_id serialise (spec §5 "a per-deal lock for
// utilisations and state transitions").
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Store persists deals through db.PoolInterface, which pgxmock can stand
// in for in tests.
type Store struct {
	pool  db.PoolInterface
	locks *keyedLocks
}

// NewStore builds a Store over an already-connected pool.
func NewStore(pool db.PoolInterface) *Store {
	return &Store{pool: pool, locks: newKeyedLocks()}
}

// Create persists a new deal in DRAFT status. The caller supplies
// everything except deal_id and the opening audit entry.
func (s *Store) Create(ctx context.Context, d *Deal, now time.Time) (*Deal, error) {
	if d.Status == "" {
		d.Status = StatusDraft
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.DealID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("deals: generate id: %w", err)
		}
		d.DealID = id.String()
	}
	if d.RemainingAmount == 0 {
		d.RemainingAmount = d.Amount
	}
	d.Audit = append(d.Audit, AuditEntry{TS: now, From: "", To: d.Status, Actor: d.CreatedBy})

	auditJSON, err := json.Marshal(d.Audit)
	if err != nil {
		return nil, fmt.Errorf("deals: marshal audit: %w", err)
	}
	utilJSON, err := json.Marshal(d.Utilisations)
	if err != nil {
		return nil, fmt.Errorf("deals: marshal utilisations: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO deals (deal_id, pair, side, buy_rate, sell_rate, amount, min_amount,
			remaining_amount, valid_from, valid_until, status, created_by, audit, utilisations)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.DealID, d.Pair, string(d.Side), d.BuyRate, d.SellRate, d.Amount, d.MinAmount,
		d.RemainingAmount, d.ValidFrom, d.ValidUntil, string(d.Status), d.CreatedBy, auditJSON, utilJSON,
	)
	if err != nil {
		return nil, &fxerrors.PersistenceError{Op: "deals.Create", Cause: err}
	}
	return d, nil
}

// Get loads a deal and applies the lazy EXPIRED/FULLY_UTILIZED
// transition on read (spec §4.4: "automatic ... evaluated on read"),
// persisting the transition if one occurred.
func (s *Store) Get(ctx context.Context, dealID string, now time.Time) (*Deal, error) {
	d, err := s.load(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if applied := s.applyLazyTransition(d, now); applied {
		if err := s.persistTransition(ctx, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// List returns a point-in-time snapshot of every deal, applying lazy
// transitions to the in-memory copies only (not persisted, to keep the
// listing a pure read per spec §5).
func (s *Store) List(ctx context.Context, now time.Time) ([]*Deal, error) {
	rows, err := s.pool.Query(ctx, `SELECT deal_id, pair, side, buy_rate, sell_rate, amount, min_amount,
		remaining_amount, valid_from, valid_until, status, created_by, audit, utilisations FROM deals`)
	if err != nil {
		return nil, &fxerrors.PersistenceError{Op: "deals.List", Cause: err}
	}
	defer rows.Close()

	var out []*Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, &fxerrors.PersistenceError{Op: "deals.List.scan", Cause: err}
		}
		s.applyLazyTransition(d, now)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &fxerrors.PersistenceError{Op: "deals.List.rows", Cause: err}
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, dealID string) (*Deal, error) {
	row := s.pool.QueryRow(ctx, `SELECT deal_id, pair, side, buy_rate, sell_rate, amount, min_amount,
		remaining_amount, valid_from, valid_until, status, created_by, audit, utilisations
		FROM deals WHERE deal_id = $1`, dealID)
	d, err := scanDeal(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, &fxerrors.DealStateConflictError{DealID: dealID, CurrentState: "NOT_FOUND", AttemptedEdge: "read"}
		}
		return nil, &fxerrors.PersistenceError{Op: "deals.load", Cause: err}
	}
	return d, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*Deal, error) {
	var d Deal
	var side, status string
	var auditJSON, utilJSON []byte
	if err := row.Scan(&d.DealID, &d.Pair, &side, &d.BuyRate, &d.SellRate, &d.Amount, &d.MinAmount,
		&d.RemainingAmount, &d.ValidFrom, &d.ValidUntil, &status, &d.CreatedBy, &auditJSON, &utilJSON); err != nil {
		return nil, err
	}
	d.Side = toSide(side)
	d.Status = Status(status)
	if len(auditJSON) > 0 {
		if err := json.Unmarshal(auditJSON, &d.Audit); err != nil {
			return nil, fmt.Errorf("unmarshal audit: %w", err)
		}
	}
	if len(utilJSON) > 0 {
		if err := json.Unmarshal(utilJSON, &d.Utilisations); err != nil {
			return nil, fmt.Errorf("unmarshal utilisations: %w", err)
		}
	}
	return &d, nil
}

// applyLazyTransition mutates d in place if the ACTIVE->EXPIRED or
// ACTIVE->FULLY_UTILIZED edge now applies, returning whether it did.
func (s *Store) applyLazyTransition(d *Deal, now time.Time) bool {
	if d.Status != StatusActive {
		return false
	}
	if now.After(d.ValidUntil) {
		s.recordTransition(d, StatusExpired, "system", "valid_until elapsed", now)
		return true
	}
	if d.RemainingAmount < d.MinAmount {
		s.recordTransition(d, StatusFullyUtilized, "system", "remaining below min_amount", now)
		return true
	}
	return false
}

func (s *Store) recordTransition(d *Deal, to Status, actor, reason string, now time.Time) {
	d.Audit = append(d.Audit, AuditEntry{TS: now, From: d.Status, To: to, Actor: actor, Reason: reason})
	d.Status = to
}

func (s *Store) persistTransition(ctx context.Context, d *Deal) error {
	auditJSON, err := json.Marshal(d.Audit)
	if err != nil {
		return fmt.Errorf("deals: marshal audit: %w", err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE deals SET status=$1, audit=$2, updated_at=NOW() WHERE deal_id=$3`,
		string(d.Status), auditJSON, d.DealID)
	if err != nil {
		return &fxerrors.PersistenceError{Op: "deals.persistTransition", Cause: err}
	}
	return nil
}

func toSide(s string) reference.Side {
	return reference.Side(s)
}
