package ratesource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViaUSD_ComposesMidsAndWorstSpread(t *testing.T) {
	now := time.Now()
	gbpUSD := TreasuryRate{Pair: "GBPUSD", Bid: 1.264, Mid: 1.265, Ask: 1.266, Position: PositionNeutral, ValidUntil: now.Add(time.Minute)}
	usdSGD := TreasuryRate{Pair: "USDSGD", Bid: 1.349, Mid: 1.350, Ask: 1.351, Position: PositionNeutral, ValidUntil: now.Add(2 * time.Minute)}

	cross := ViaUSD("GBPSGD", gbpUSD, usdSGD)

	assert.Equal(t, "GBPSGD", cross.Pair)
	assert.InDelta(t, gbpUSD.Mid*usdSGD.Mid, cross.Mid, 1e-9)
	assert.LessOrEqual(t, cross.Bid, cross.Mid)
	assert.LessOrEqual(t, cross.Mid, cross.Ask)
	assert.Equal(t, now.Add(time.Minute), cross.ValidUntil) // earlier of the two expiries
}

func TestViaUSD_PositionOnlyCarriesWhenLegsAgree(t *testing.T) {
	now := time.Now()
	legA := TreasuryRate{Pair: "GBPUSD", Bid: 1.2, Mid: 1.25, Ask: 1.3, Position: PositionLong, ValidUntil: now}
	legB := TreasuryRate{Pair: "USDSGD", Bid: 1.3, Mid: 1.35, Ask: 1.4, Position: PositionShort, ValidUntil: now}

	cross := ViaUSD("GBPSGD", legA, legB)
	assert.Equal(t, PositionNeutral, cross.Position)

	legB.Position = PositionLong
	cross = ViaUSD("GBPSGD", legA, legB)
	assert.Equal(t, PositionLong, cross.Position)
}
