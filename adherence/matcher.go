package adherence

import (
	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/shopspring/decimal"
)

// MatchMedications pairs every prescribed medication with at most one
// dispensing group. Canonical-code equality wins over product-code
// equality, and within each strategy the first satisfying group in the
// original scan order wins, so the result is stable and deterministic.
//
// Canonical codes are compared numerically: upstream systems deliver VMP
// codes as numbers or numeric strings interchangeably, and that is
// flattened into VMPCode at the unmarshalling boundary. In a degraded
// session (failed batch lookup) the canonical step is skipped wholesale
// and only product codes are compared.
//
// overrides carries user-adjusted units-per-package values by medication
// ID; medications without an override default to their package size.
func (s *Session) MatchMedications(medications []entities.PrescribedMedication, groups []entities.DispensingGroup, overrides map[string]decimal.Decimal) []entities.MatchedMedication {
	matches := make([]entities.MatchedMedication, 0, len(medications))

	for _, med := range medications {
		match := entities.MatchedMedication{
			Medication:      med,
			UnitsPerPackage: med.PackageSize,
			Kind:            entities.MatchNone,
		}
		if upp, ok := overrides[med.ID]; ok {
			match.UnitsPerPackage = upp
		}

		if group, kind := s.findGroup(med, groups); group != nil {
			match.Group = group
			match.Kind = kind
		}

		matches = append(matches, match)
	}

	return matches
}

// findGroup applies the matching strategies in order, first success wins.
func (s *Session) findGroup(med entities.PrescribedMedication, groups []entities.DispensingGroup) (*entities.DispensingGroup, entities.MatchKind) {
	if canonical, ok := s.canonicalForMedication(med); ok {
		for i := range groups {
			if groupCanonical, ok := s.canonicalForGroup(&groups[i]); ok && groupCanonical == canonical {
				return &groups[i], entities.MatchByVmp
			}
		}
	}

	// Fallback: exact product-code equality on normalized codes.
	if cnk := entities.NormalizeCNK(med.Cnk); cnk != "" {
		for i := range groups {
			if entities.NormalizeCNK(groups[i].Cnk) == cnk {
				return &groups[i], entities.MatchByCnk
			}
		}
	}

	return nil, entities.MatchNone
}

// canonicalForMedication resolves the medication's canonical code: its own
// value first, the session cache second. A degraded session suppresses
// both, forcing product-code matching for the whole pass.
func (s *Session) canonicalForMedication(med entities.PrescribedMedication) (entities.VMPCode, bool) {
	if s.degraded {
		return 0, false
	}
	if med.Vmp.IsKnown() {
		return med.Vmp, true
	}
	return s.CanonicalFor(med.Cnk)
}

func (s *Session) canonicalForGroup(group *entities.DispensingGroup) (entities.VMPCode, bool) {
	if s.degraded {
		return 0, false
	}
	if group.Vmp.IsKnown() {
		return group.Vmp, true
	}
	return s.CanonicalFor(group.Cnk)
}
