package deals

import (
	"context"
	"sort"
	"time"

	"github.com/ajitpratap0/fxengine/internal/reference"
)

// ArbitrationSource names where the quoted rate came from.
type ArbitrationSource string

const (
	SourceDeal     ArbitrationSource = "DEAL"
	SourceTreasury ArbitrationSource = "TREASURY"
)

// ArbitrationResult is the outcome of best_rate (spec §4.4).
type ArbitrationResult struct {
	Source    ArbitrationSource
	DealID    string
	Rate      float64
	SavingsBps float64
}

// BestRate implements spec §4.4's best-rate arbitration: select eligible
// active deals for pair/side/amount, rank them, and compare the top
// candidate against treasuryRate (already adjusted per §4.1).
func (s *Store) BestRate(ctx context.Context, pair string, side reference.Side, amount float64, now time.Time, treasuryRate float64) (*ArbitrationResult, error) {
	all, err := s.List(ctx, now)
	if err != nil {
		return nil, err
	}

	var candidates []*Deal
	for _, d := range all {
		if d.Status != StatusActive {
			continue
		}
		if d.Pair != pair || d.Side != side {
			continue
		}
		if d.RemainingAmount < amount {
			continue
		}
		if amount < d.MinAmount {
			continue
		}
		if now.Before(d.ValidFrom) || now.After(d.ValidUntil) {
			continue
		}
		candidates = append(candidates, d)
	}

	if len(candidates) == 0 {
		return &ArbitrationResult{Source: SourceTreasury, Rate: treasuryRate, SavingsBps: 0}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if side == reference.SideSell {
			if a.SellRate != b.SellRate {
				return a.SellRate > b.SellRate
			}
		} else {
			if a.BuyRate != b.BuyRate {
				return a.BuyRate < b.BuyRate
			}
		}
		return a.ValidUntil.Before(b.ValidUntil)
	})

	top := candidates[0]
	dealRate := top.SellRate
	if side == reference.SideBuy {
		dealRate = top.BuyRate
	}

	betterForCustomer := (side == reference.SideSell && dealRate > treasuryRate) ||
		(side == reference.SideBuy && dealRate < treasuryRate)

	if !betterForCustomer {
		return &ArbitrationResult{Source: SourceTreasury, Rate: treasuryRate, SavingsBps: 0}, nil
	}

	savingsBps := (dealRate - treasuryRate) / treasuryRate * 10000
	if side == reference.SideBuy {
		savingsBps = (treasuryRate - dealRate) / treasuryRate * 10000
	}

	return &ArbitrationResult{Source: SourceDeal, DealID: top.DealID, Rate: dealRate, SavingsBps: savingsBps}, nil
}
