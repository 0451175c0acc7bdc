// Package adherence implements the stock-timeline reconstruction and
// medication-identity matching engine of the review tool. It pairs
// prescribed medications with their pharmacy dispensing history and
// simulates the patient's day-by-day stock level.
package adherence

import (
	"context"
	"sort"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/interfaces"
	"github.com/giygas/adherence-api/logging"
)

// Session owns the identity-resolution cache for one matching pass. It is
// rebuilt on every refresh, so a stale cache can never leak across data
// sets. A session is not safe for concurrent use.
type Session struct {
	resolver interfaces.CodeResolver
	cache    map[string]entities.VMPCode // normalized CNK -> canonical code
	degraded bool
}

// NewSession creates a fresh resolution session with an empty cache.
func NewSession(resolver interfaces.CodeResolver) *Session {
	return &Session{
		resolver: resolver,
		cache:    make(map[string]entities.VMPCode),
	}
}

// Resolve fills the cache for all product codes present in the pass. Codes
// that already carry a canonical code on either side are entered into the
// cache directly and never sent to the remote lookup. The remaining codes
// go out in a single batched request. When that batch fails, the whole
// pass degrades to code-level matching; per spec of the original tool the
// degradation is all-or-nothing, not per code.
func (s *Session) Resolve(ctx context.Context, medications []entities.PrescribedMedication, groups []entities.DispensingGroup) {
	// Seed from codes already resolved upstream.
	for _, m := range medications {
		if cnk := entities.NormalizeCNK(m.Cnk); cnk != "" && m.Vmp.IsKnown() {
			s.cache[cnk] = m.Vmp
		}
	}
	for _, g := range groups {
		if cnk := entities.NormalizeCNK(g.Cnk); cnk != "" && g.Vmp.IsKnown() {
			s.cache[cnk] = g.Vmp
		}
	}

	unknown := s.collectUnknown(medications, groups)
	if len(unknown) == 0 {
		return
	}

	resolved, err := s.resolver.ResolveBatch(ctx, unknown)
	if err != nil {
		logging.Warn("Canonical code batch lookup failed, matching degrades to product codes",
			"codes_requested", len(unknown),
			"error", err)
		s.degraded = true
		return
	}

	found := 0
	for cnk, vmp := range resolved {
		if vmp.IsKnown() {
			s.cache[entities.NormalizeCNK(cnk)] = vmp
			found++
		}
	}

	logging.Debug("Canonical code batch lookup completed",
		"codes_requested", len(unknown),
		"codes_resolved", found)
}

// collectUnknown gathers every distinct product code that still lacks a
// cache entry, in deterministic order.
func (s *Session) collectUnknown(medications []entities.PrescribedMedication, groups []entities.DispensingGroup) []string {
	seen := make(map[string]bool)
	var unknown []string

	add := func(raw string) {
		cnk := entities.NormalizeCNK(raw)
		if cnk == "" || seen[cnk] {
			return
		}
		seen[cnk] = true
		if _, ok := s.cache[cnk]; !ok {
			unknown = append(unknown, cnk)
		}
	}

	for _, m := range medications {
		add(m.Cnk)
	}
	for _, g := range groups {
		add(g.Cnk)
	}

	sort.Strings(unknown)
	return unknown
}

// CanonicalFor returns the cached canonical code for a product code. In a
// degraded session nothing resolves, which forces the matcher onto its
// product-code fallback for the entire pass.
func (s *Session) CanonicalFor(cnk string) (entities.VMPCode, bool) {
	if s.degraded {
		return 0, false
	}
	vmp, ok := s.cache[entities.NormalizeCNK(cnk)]
	return vmp, ok && vmp.IsKnown()
}

// Degraded reports whether the batch lookup failed for this session.
func (s *Session) Degraded() bool { return s.degraded }
