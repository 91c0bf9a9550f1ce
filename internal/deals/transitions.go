package deals

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
)

// transition loads the deal, applies any lazy transition, checks the
// requested edge against the DAG, appends the audit entry, and persists
// — all while holding the deal's per-id lock so concurrent transitions
// against the same deal serialise (spec §5).
func (s *Store) transition(ctx context.Context, dealID string, to Status, actor, reason string, now time.Time, precondition func(*Deal) error) (*Deal, error) {
	unlock := s.locks.lock(dealID)
	defer unlock()

	d, err := s.load(ctx, dealID)
	if err != nil {
		return nil, err
	}
	s.applyLazyTransition(d, now)

	if !canTransition(d.Status, to) {
		return nil, &fxerrors.DealStateConflictError{DealID: dealID, CurrentState: string(d.Status), AttemptedEdge: string(to)}
	}
	if precondition != nil {
		if err := precondition(d); err != nil {
			return nil, err
		}
	}

	s.recordTransition(d, to, actor, reason, now)
	if err := s.persistTransition(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Submit moves DRAFT -> PENDING_APPROVAL.
func (s *Store) Submit(ctx context.Context, dealID, submittedBy string, now time.Time) (*Deal, error) {
	return s.transition(ctx, dealID, StatusPendingApproval, submittedBy, "", now, nil)
}

// Approve moves PENDING_APPROVAL -> ACTIVE, provided now >= valid_from.
func (s *Store) Approve(ctx context.Context, dealID, approvedBy string, now time.Time) (*Deal, error) {
	return s.transition(ctx, dealID, StatusActive, approvedBy, "", now, func(d *Deal) error {
		if now.Before(d.ValidFrom) {
			return &fxerrors.DealStateConflictError{DealID: dealID, CurrentState: string(d.Status), AttemptedEdge: "approve before valid_from"}
		}
		return nil
	})
}

// Reject moves PENDING_APPROVAL -> REJECTED.
func (s *Store) Reject(ctx context.Context, dealID, rejectedBy, reason string, now time.Time) (*Deal, error) {
	return s.transition(ctx, dealID, StatusRejected, rejectedBy, reason, now, nil)
}

// Cancel moves any of {DRAFT, PENDING_APPROVAL, ACTIVE} -> CANCELLED.
func (s *Store) Cancel(ctx context.Context, dealID, cancelledBy, reason string, now time.Time) (*Deal, error) {
	return s.transition(ctx, dealID, StatusCancelled, cancelledBy, reason, now, nil)
}

// Utilise draws amount down against the deal's remaining_amount. The
// linearisation point is the per-deal lock held for the duration of the
// read-check-write; two concurrent utilisations that each individually
// fit may both succeed iff their sum still fits (spec §5).
func (s *Store) Utilise(ctx context.Context, dealID string, amount float64, by string, now time.Time) (*Deal, error) {
	unlock := s.locks.lock(dealID)
	defer unlock()

	d, err := s.load(ctx, dealID)
	if err != nil {
		return nil, err
	}
	s.applyLazyTransition(d, now)

	if d.Status != StatusActive {
		return nil, &fxerrors.DealStateConflictError{DealID: dealID, CurrentState: string(d.Status), AttemptedEdge: "utilize"}
	}
	if amount <= 0 {
		return nil, fxerrors.NewValidationError("amount", "utilisation amount must be positive")
	}
	if amount > d.RemainingAmount {
		return nil, &fxerrors.InsufficientDealBalanceError{DealID: dealID, Requested: amount, RemainingAmount: d.RemainingAmount}
	}

	d.RemainingAmount -= amount
	d.Utilisations = append(d.Utilisations, UtilisationEntry{TS: now, AmountUtilised: amount, RemainingAfter: d.RemainingAmount, By: by})

	if d.RemainingAmount < d.MinAmount {
		s.recordTransition(d, StatusFullyUtilized, "system", "remaining below min_amount", now)
	}

	if err := s.persistUtilisation(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) persistUtilisation(ctx context.Context, d *Deal) error {
	utilJSON, err := json.Marshal(d.Utilisations)
	if err != nil {
		return err
	}
	auditJSON, err := json.Marshal(d.Audit)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE deals SET remaining_amount=$1, status=$2, utilisations=$3, audit=$4, updated_at=NOW()
		WHERE deal_id=$5`, d.RemainingAmount, string(d.Status), utilJSON, auditJSON, d.DealID)
	if err != nil {
		return &fxerrors.PersistenceError{Op: "deals.Utilise", Cause: err}
	}
	return nil
}
