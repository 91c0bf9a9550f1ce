package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
)

// Snapshot is an immutable view of all reference tables. Readers obtain
// one via Registry.Snapshot and hold it for the lifetime of a single
// request; a concurrent Reload never mutates a Snapshot in place.
type Snapshot struct {
	Providers         map[string]Provider
	CustomerTiers     map[string]CustomerTier
	PricingSegments   map[string]PricingSegment
	AmountTiers       []AmountTier
	CurrencyCategories map[string]CurrencyCategory // currency code -> category
	CBDCs             map[string]CBDCEntry
	Stablecoins       map[string]StablecoinEntry
	Ramps             []OnOffRamp
	AtomicSwapPairs   []AtomicSwapEntry
	MBridgeSet        map[string]struct{} // CBDC codes participating in mBridge
	NexusFiatSet      map[string]struct{} // fiat codes reachable via Project Nexus
}

// providersFile mirrors the JSON document shape under testdata/providers.json.
type providersFile struct {
	Providers []Provider `json:"providers"`
}

type customerTiersFile struct {
	Tiers []CustomerTier `json:"tiers"`
}

type pricingSegmentsFile struct {
	Segments []PricingSegment `json:"segments"`
}

type amountTiersFile struct {
	Tiers []AmountTier `json:"tiers"`
}

type currencyCategoriesFile struct {
	Categories []struct {
		Name               CurrencyCategoryName `json:"name"`
		Currencies         []string             `json:"currencies"`
		MarkupBpsBySegment map[string]float64   `json:"markup_bps_by_segment"`
	} `json:"categories"`
}

type cbdcRegistryFile struct {
	CBDCs      []CBDCEntry `json:"cbdcs"`
	MBridgeSet []string    `json:"mbridge_set"`
}

type stablecoinRegistryFile struct {
	Stablecoins []StablecoinEntry `json:"stablecoins"`
}

type rampRegistryFile struct {
	Ramps []OnOffRamp `json:"ramps"`
}

type atomicSwapFile struct {
	Pairs []AtomicSwapEntry `json:"pairs"`
}

type nexusFile struct {
	FiatSet []string `json:"fiat_set"`
}

// Paths names the JSON documents a Registry loads from. Every field is
// optional; an empty string disables the corresponding table (it loads
// as empty, not an error) to keep partial test fixtures workable.
type Paths struct {
	Providers         string
	CustomerTiers     string
	PricingSegments   string
	AmountTiers       string
	CurrencyCategories string
	CBDCRegistry      string
	StablecoinRegistry string
	RampRegistry      string
	AtomicSwapTable   string
	NexusFiatSet      string
}

// Registry owns the reference tables behind a single-writer atomic
// snapshot swap: Reload builds a brand new Snapshot and publishes it
// with one atomic store, so concurrent readers never observe a
// partially updated table set (spec §3 "Ownership").
type Registry struct {
	current atomic.Pointer[Snapshot]
	paths   Paths
}

// NewRegistry constructs a Registry and performs the initial load.
func NewRegistry(paths Paths) (*Registry, error) {
	r := &Registry{paths: paths}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the currently published Snapshot. Safe for
// concurrent use; never returns nil once NewRegistry has succeeded.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Reload reads every configured reference document from disk, builds a
// new Snapshot, and atomically publishes it. Concurrent readers observe
// either the old or the new Snapshot in full, never a mix.
func (r *Registry) Reload() error {
	snap := &Snapshot{
		Providers:          map[string]Provider{},
		CustomerTiers:      map[string]CustomerTier{},
		PricingSegments:    map[string]PricingSegment{},
		CurrencyCategories: map[string]CurrencyCategory{},
		CBDCs:              map[string]CBDCEntry{},
		Stablecoins:        map[string]StablecoinEntry{},
		MBridgeSet:         map[string]struct{}{},
		NexusFiatSet:       map[string]struct{}{},
	}

	if r.paths.Providers != "" {
		var f providersFile
		if err := readJSON(r.paths.Providers, &f); err != nil {
			return fmt.Errorf("reference: load providers: %w", err)
		}
		for _, p := range f.Providers {
			snap.Providers[p.ID] = p
		}
	}

	if r.paths.CustomerTiers != "" {
		var f customerTiersFile
		if err := readJSON(r.paths.CustomerTiers, &f); err != nil {
			return fmt.Errorf("reference: load customer tiers: %w", err)
		}
		for _, t := range f.Tiers {
			snap.CustomerTiers[t.ID] = t
		}
	}

	if r.paths.PricingSegments != "" {
		var f pricingSegmentsFile
		if err := readJSON(r.paths.PricingSegments, &f); err != nil {
			return fmt.Errorf("reference: load pricing segments: %w", err)
		}
		for _, s := range f.Segments {
			snap.PricingSegments[s.ID] = s
		}
	}

	if r.paths.AmountTiers != "" {
		var f amountTiersFile
		if err := readJSON(r.paths.AmountTiers, &f); err != nil {
			return fmt.Errorf("reference: load amount tiers: %w", err)
		}
		snap.AmountTiers = f.Tiers
	}

	if r.paths.CurrencyCategories != "" {
		var f currencyCategoriesFile
		if err := readJSON(r.paths.CurrencyCategories, &f); err != nil {
			return fmt.Errorf("reference: load currency categories: %w", err)
		}
		for _, c := range f.Categories {
			cat := CurrencyCategory{Name: c.Name, MarkupBpsBySegment: c.MarkupBpsBySegment}
			for _, code := range c.Currencies {
				snap.CurrencyCategories[code] = cat
			}
		}
	}

	if r.paths.CBDCRegistry != "" {
		var f cbdcRegistryFile
		if err := readJSON(r.paths.CBDCRegistry, &f); err != nil {
			return fmt.Errorf("reference: load cbdc registry: %w", err)
		}
		for _, c := range f.CBDCs {
			snap.CBDCs[c.Code] = c
		}
		for _, code := range f.MBridgeSet {
			snap.MBridgeSet[code] = struct{}{}
		}
	}

	if r.paths.StablecoinRegistry != "" {
		var f stablecoinRegistryFile
		if err := readJSON(r.paths.StablecoinRegistry, &f); err != nil {
			return fmt.Errorf("reference: load stablecoin registry: %w", err)
		}
		for _, s := range f.Stablecoins {
			snap.Stablecoins[s.Code] = s
		}
	}

	if r.paths.RampRegistry != "" {
		var f rampRegistryFile
		if err := readJSON(r.paths.RampRegistry, &f); err != nil {
			return fmt.Errorf("reference: load ramp registry: %w", err)
		}
		snap.Ramps = f.Ramps
	}

	if r.paths.AtomicSwapTable != "" {
		var f atomicSwapFile
		if err := readJSON(r.paths.AtomicSwapTable, &f); err != nil {
			return fmt.Errorf("reference: load atomic swap table: %w", err)
		}
		snap.AtomicSwapPairs = f.Pairs
	}

	if r.paths.NexusFiatSet != "" {
		var f nexusFile
		if err := readJSON(r.paths.NexusFiatSet, &f); err != nil {
			return fmt.Errorf("reference: load nexus fiat set: %w", err)
		}
		for _, code := range f.FiatSet {
			snap.NexusFiatSet[code] = struct{}{}
		}
	}

	r.current.Store(snap)
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ClassifyCurrency maps a currency code to its rail type. Classification
// is total: anything not found in the CBDC or stablecoin registries is
// FIAT by default (spec §3 "Currency classification is total and
// deterministic").
func (s *Snapshot) ClassifyCurrency(code string) RailType {
	if _, ok := s.CBDCs[code]; ok {
		return RailCBDC
	}
	if _, ok := s.Stablecoins[code]; ok {
		return RailStablecoin
	}
	return RailFiat
}

// AmountTierFor returns the tier whose half-open interval contains
// amount, or false if no tier matches (a misconfigured table).
func (s *Snapshot) AmountTierFor(amount float64) (AmountTier, bool) {
	for _, t := range s.AmountTiers {
		if t.Contains(amount) {
			return t, true
		}
	}
	return AmountTier{}, false
}

// CategoryFor returns the currency category for code. A currency absent
// from the table yields the zero value and false; no default category is
// applied here (the pricing engine treats such a currency as RESTRICTED).
func (s *Snapshot) CategoryFor(code string) (CurrencyCategory, bool) {
	c, ok := s.CurrencyCategories[code]
	return c, ok
}

// IsMBridgeParticipant reports whether the given CBDC code is in the
// mBridge corridor set.
func (s *Snapshot) IsMBridgeParticipant(code string) bool {
	_, ok := s.MBridgeSet[code]
	return ok
}

// IsNexusFiat reports whether the given fiat code is reachable via
// Project Nexus.
func (s *Snapshot) IsNexusFiat(code string) bool {
	_, ok := s.NexusFiatSet[code]
	return ok
}
