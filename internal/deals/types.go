// Package deals implements the deals state machine and best-rate
// arbitration (spec §4.4): negotiated rate agreements that a customer
// can draw down against instead of the treasury rate, with an
// append-only audit trail and write-ahead-atomic persistence.
package deals

import (
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/reference"
)

// Status is a node in the deal lifecycle DAG.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusPendingApproval  Status = "PENDING_APPROVAL"
	StatusActive           Status = "ACTIVE"
	StatusExpired          Status = "EXPIRED"
	StatusFullyUtilized    Status = "FULLY_UTILIZED"
	StatusCancelled        Status = "CANCELLED"
	StatusRejected         Status = "REJECTED"
)

// AuditEntry records one state transition.
type AuditEntry struct {
	TS     time.Time `json:"ts"`
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
}

// UtilisationEntry records one drawdown against a deal's remaining amount.
type UtilisationEntry struct {
	TS             time.Time `json:"ts"`
	AmountUtilised float64   `json:"amount_utilised"`
	RemainingAfter float64   `json:"remaining_after"`
	By             string    `json:"by"`
}

// Deal is a negotiated rate agreement (spec §3 "Deal").
type Deal struct {
	DealID          string             `json:"deal_id"`
	Pair            string             `json:"pair"`
	Side            reference.Side     `json:"side"`
	BuyRate         float64            `json:"buy_rate"`
	SellRate        float64            `json:"sell_rate"`
	Amount          float64            `json:"amount"`
	MinAmount       float64            `json:"min_amount"`
	RemainingAmount float64            `json:"remaining_amount"`
	ValidFrom       time.Time          `json:"valid_from"`
	ValidUntil      time.Time          `json:"valid_until"`
	Status          Status             `json:"status"`
	CreatedBy       string             `json:"created_by"`
	Audit           []AuditEntry       `json:"audit"`
	Utilisations    []UtilisationEntry `json:"utilisations"`
}

// Validate checks the entity invariants from spec §3.
func (d *Deal) Validate() error {
	if d.RemainingAmount > d.Amount {
		return fxerrors.NewValidationError("remaining_amount", "must not exceed amount")
	}
	if d.MinAmount > d.Amount {
		return fxerrors.NewValidationError("min_amount", "must not exceed amount")
	}
	if !d.ValidFrom.Before(d.ValidUntil) {
		return fxerrors.NewValidationError("valid_from", "must precede valid_until")
	}
	if d.BuyRate > d.SellRate {
		return fxerrors.NewValidationError("buy_rate", "must not exceed sell_rate")
	}
	return nil
}

// allowedEdges is the state transition DAG from spec §4.4.
var allowedEdges = map[Status]map[Status]bool{
	StatusDraft:           {StatusPendingApproval: true, StatusCancelled: true},
	StatusPendingApproval: {StatusActive: true, StatusRejected: true, StatusCancelled: true},
	StatusActive:          {StatusExpired: true, StatusFullyUtilized: true, StatusCancelled: true},
}

func canTransition(from, to Status) bool {
	edges, ok := allowedEdges[from]
	return ok && edges[to]
}
