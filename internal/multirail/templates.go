// Package multirail implements the multi-rail router (spec §4.2, §4.6):
// resolving a (source, target) currency pair to a rail-pair class and
// scoring the route templates that apply to it.
package multirail

import "github.com/ajitpratap0/fxengine/internal/reference"

// Name identifies one route template in the catalogue.
type Name string

const (
	TemplateSWIFT          Name = "SWIFT"
	TemplateLocal          Name = "LOCAL"
	TemplateFintech        Name = "FINTECH"
	TemplateTriangulated   Name = "TRIANGULATED"
	TemplateDirectMint     Name = "DIRECT_MINT"
	TemplateFXThenMint     Name = "FX_THEN_MINT"
	TemplateMBridgeRoute   Name = "MBRIDGE_ROUTE"
	TemplateDirectRedeem   Name = "DIRECT_REDEEM"
	TemplateRedeemThenFX   Name = "REDEEM_THEN_FX"
	TemplateMBridgePVP     Name = "MBRIDGE_PVP"
	TemplateProjectNexus   Name = "PROJECT_NEXUS"
	TemplateFiatBridge     Name = "FIAT_BRIDGE"
	TemplateCircleOnramp   Name = "CIRCLE_ONRAMP"
	TemplateCEXOnramp      Name = "CEX_ONRAMP"
	TemplateFXOnramp       Name = "FX_ONRAMP"
	TemplateCircleOfframp  Name = "CIRCLE_OFFRAMP"
	TemplateCEXOfframp     Name = "CEX_OFFRAMP"
	TemplateOfframpFX      Name = "OFFRAMP_FX"
	TemplateCurve          Name = "CURVE"
	TemplateUniswap        Name = "UNISWAP"
	TemplateCEX            Name = "CEX"
	TemplateCEXBridge      Name = "CEX_BRIDGE"
	TemplateMBridgeHybrid  Name = "MBRIDGE_HYBRID"
	TemplateDEXLiquidity   Name = "DEX_LIQUIDITY"
	TemplateAtomicSwap     Name = "ATOMIC_SWAP"
	TemplateOTC            Name = "OTC"
	TemplateLiquidityPool  Name = "LIQUIDITY_POOL"
)

// RailPair is one of the 9 (SrcRail, TgtRail) classes.
type RailPair struct {
	Src reference.RailType
	Tgt reference.RailType
}

// Template is the catalogue's static description of one route kind:
// its rail-pair class, base fee in bps, a default settlement time and
// reliability used when no richer registry entry applies, and whether
// it is considered a "regulated" route for tie-breaking (spec §4.2
// "the regulated one wins"). Legs counts how many sequential hops the
// route represents, used for the fewer-legs tie-break.
type Template struct {
	Name              Name
	Pair              RailPair
	BaseFeeBps        float64
	DefaultSettlement float64 // seconds
	DefaultReliability float64
	STPCapable        bool
	Regulated         bool
	Legs              int
}

// Catalogue is the fixed 31-template table from spec §6. Any change
// here is a semantic change to the router's contract.
var Catalogue = []Template{
	// F -> F
	{Name: TemplateSWIFT, Pair: RailPair{reference.RailFiat, reference.RailFiat}, BaseFeeBps: 25, DefaultSettlement: 86400, DefaultReliability: 0.98, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateLocal, Pair: RailPair{reference.RailFiat, reference.RailFiat}, BaseFeeBps: 15, DefaultSettlement: 14400, DefaultReliability: 0.96, STPCapable: false, Regulated: true, Legs: 1},
	{Name: TemplateFintech, Pair: RailPair{reference.RailFiat, reference.RailFiat}, BaseFeeBps: 6, DefaultSettlement: 3600, DefaultReliability: 0.97, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateTriangulated, Pair: RailPair{reference.RailFiat, reference.RailFiat}, BaseFeeBps: 30, DefaultSettlement: 7200, DefaultReliability: 0.95, STPCapable: true, Regulated: true, Legs: 2},

	// F -> C
	{Name: TemplateDirectMint, Pair: RailPair{reference.RailFiat, reference.RailCBDC}, BaseFeeBps: 0, DefaultSettlement: 10, DefaultReliability: 0.97, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateFXThenMint, Pair: RailPair{reference.RailFiat, reference.RailCBDC}, BaseFeeBps: 20, DefaultSettlement: 3600, DefaultReliability: 0.95, STPCapable: true, Regulated: true, Legs: 2},
	{Name: TemplateMBridgeRoute, Pair: RailPair{reference.RailFiat, reference.RailCBDC}, BaseFeeBps: 13, DefaultSettlement: 30, DefaultReliability: 0.95, STPCapable: true, Regulated: true, Legs: 2},

	// C -> F
	{Name: TemplateDirectRedeem, Pair: RailPair{reference.RailCBDC, reference.RailFiat}, BaseFeeBps: 0, DefaultSettlement: 10, DefaultReliability: 0.97, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateRedeemThenFX, Pair: RailPair{reference.RailCBDC, reference.RailFiat}, BaseFeeBps: 20, DefaultSettlement: 3600, DefaultReliability: 0.95, STPCapable: true, Regulated: true, Legs: 2},

	// C -> C
	{Name: TemplateMBridgePVP, Pair: RailPair{reference.RailCBDC, reference.RailCBDC}, BaseFeeBps: 13, DefaultSettlement: 30, DefaultReliability: 0.95, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateProjectNexus, Pair: RailPair{reference.RailCBDC, reference.RailCBDC}, BaseFeeBps: 35, DefaultSettlement: 60, DefaultReliability: 0.93, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateFiatBridge, Pair: RailPair{reference.RailCBDC, reference.RailCBDC}, BaseFeeBps: 40, DefaultSettlement: 7200, DefaultReliability: 0.94, STPCapable: true, Regulated: true, Legs: 3},

	// F -> S
	{Name: TemplateCircleOnramp, Pair: RailPair{reference.RailFiat, reference.RailStablecoin}, BaseFeeBps: 0, DefaultSettlement: 30, DefaultReliability: 0.98, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateCEXOnramp, Pair: RailPair{reference.RailFiat, reference.RailStablecoin}, BaseFeeBps: 25, DefaultSettlement: 120, DefaultReliability: 0.9, STPCapable: false, Regulated: false, Legs: 1},
	{Name: TemplateFXOnramp, Pair: RailPair{reference.RailFiat, reference.RailStablecoin}, BaseFeeBps: 50, DefaultSettlement: 3600, DefaultReliability: 0.92, STPCapable: false, Regulated: true, Legs: 2},

	// S -> F
	{Name: TemplateCircleOfframp, Pair: RailPair{reference.RailStablecoin, reference.RailFiat}, BaseFeeBps: 0, DefaultSettlement: 30, DefaultReliability: 0.98, STPCapable: true, Regulated: true, Legs: 1},
	{Name: TemplateCEXOfframp, Pair: RailPair{reference.RailStablecoin, reference.RailFiat}, BaseFeeBps: 25, DefaultSettlement: 120, DefaultReliability: 0.9, STPCapable: false, Regulated: false, Legs: 1},
	{Name: TemplateOfframpFX, Pair: RailPair{reference.RailStablecoin, reference.RailFiat}, BaseFeeBps: 50, DefaultSettlement: 3600, DefaultReliability: 0.92, STPCapable: false, Regulated: true, Legs: 2},

	// S -> S
	{Name: TemplateCurve, Pair: RailPair{reference.RailStablecoin, reference.RailStablecoin}, BaseFeeBps: 4, DefaultSettlement: 15, DefaultReliability: 0.97, STPCapable: true, Regulated: false, Legs: 1},
	{Name: TemplateUniswap, Pair: RailPair{reference.RailStablecoin, reference.RailStablecoin}, BaseFeeBps: 30, DefaultSettlement: 15, DefaultReliability: 0.94, STPCapable: true, Regulated: false, Legs: 1},
	{Name: TemplateCEX, Pair: RailPair{reference.RailStablecoin, reference.RailStablecoin}, BaseFeeBps: 20, DefaultSettlement: 60, DefaultReliability: 0.9, STPCapable: false, Regulated: false, Legs: 1},

	// C -> S
	{Name: TemplateFiatBridge, Pair: RailPair{reference.RailCBDC, reference.RailStablecoin}, BaseFeeBps: 25, DefaultSettlement: 7200, DefaultReliability: 0.94, STPCapable: true, Regulated: true, Legs: 3},
	{Name: TemplateCEXBridge, Pair: RailPair{reference.RailCBDC, reference.RailStablecoin}, BaseFeeBps: 50, DefaultSettlement: 3600, DefaultReliability: 0.9, STPCapable: false, Regulated: false, Legs: 2},
	{Name: TemplateMBridgeHybrid, Pair: RailPair{reference.RailCBDC, reference.RailStablecoin}, BaseFeeBps: 38, DefaultSettlement: 150, DefaultReliability: 0.93, STPCapable: true, Regulated: true, Legs: 2},
	{Name: TemplateDEXLiquidity, Pair: RailPair{reference.RailCBDC, reference.RailStablecoin}, BaseFeeBps: 35, DefaultSettlement: 600, DefaultReliability: 0.9, STPCapable: true, Regulated: false, Legs: 2},
	{Name: TemplateAtomicSwap, Pair: RailPair{reference.RailCBDC, reference.RailStablecoin}, BaseFeeBps: 5, DefaultSettlement: 300, DefaultReliability: 0.9, STPCapable: true, Regulated: false, Legs: 1},

	// S -> C
	{Name: TemplateFiatBridge, Pair: RailPair{reference.RailStablecoin, reference.RailCBDC}, BaseFeeBps: 25, DefaultSettlement: 7200, DefaultReliability: 0.94, STPCapable: true, Regulated: true, Legs: 3},
	{Name: TemplateCEXBridge, Pair: RailPair{reference.RailStablecoin, reference.RailCBDC}, BaseFeeBps: 50, DefaultSettlement: 3600, DefaultReliability: 0.9, STPCapable: false, Regulated: false, Legs: 2},
	{Name: TemplateOTC, Pair: RailPair{reference.RailStablecoin, reference.RailCBDC}, BaseFeeBps: 15, DefaultSettlement: 3600, DefaultReliability: 0.93, STPCapable: false, Regulated: false, Legs: 2},
	{Name: TemplateLiquidityPool, Pair: RailPair{reference.RailStablecoin, reference.RailCBDC}, BaseFeeBps: 40, DefaultSettlement: 600, DefaultReliability: 0.9, STPCapable: true, Regulated: false, Legs: 2},
	{Name: TemplateAtomicSwap, Pair: RailPair{reference.RailStablecoin, reference.RailCBDC}, BaseFeeBps: 5, DefaultSettlement: 300, DefaultReliability: 0.9, STPCapable: true, Regulated: false, Legs: 1},
}

// TemplatesFor returns the catalogue subset matching a rail-pair class.
func TemplatesFor(pair RailPair) []Template {
	var out []Template
	for _, t := range Catalogue {
		if t.Pair == pair {
			out = append(out, t)
		}
	}
	return out
}
