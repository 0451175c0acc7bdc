// Package validation provides data validation functionality for the adherence API.
package validation

import (
	"fmt"
	"strings"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/interfaces"
)

// Dangerous patterns as strings (faster than regex for simple substring matching)
// strings.Contains is 5-10x faster than regex for these patterns
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
	"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
	"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
	// SQL injection patterns
	"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
	"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
	// Command injection patterns
	"; ", "| ", "& ", "`", "$(", "${",
	// Path traversal patterns
	"../", "..\\", "%2e%2e", "file://",
}

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateMedication checks if a prescribed medication is valid
func (v *DataValidatorImpl) ValidateMedication(m *entities.PrescribedMedication) error {
	if m == nil {
		return fmt.Errorf("medication is nil")
	}

	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("empty medication ID")
	}

	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("empty name for medication %s", m.ID)
	}

	if len(m.Name) > 200 {
		return fmt.Errorf("name too long for medication %s: %d characters", m.ID, len(m.Name))
	}

	if m.Cnk != "" {
		if _, err := v.ValidateCNK(m.Cnk); err != nil {
			return fmt.Errorf("invalid CNK for medication %s: %w", m.ID, err)
		}
	}

	if m.Doses.DailyUsage().IsNegative() {
		return fmt.Errorf("negative daily usage for medication %s", m.ID)
	}

	if m.PackageSize.IsNegative() {
		return fmt.Errorf("negative package size for medication %s", m.ID)
	}

	return nil
}

// ValidateCNK validates and normalizes a CNK product code
// CNK codes are numeric identifiers 7 digits long, sometimes exported with
// separators. Normalization strips everything that is not a digit.
func (v *DataValidatorImpl) ValidateCNK(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("input cannot be empty")
	}

	normalized := entities.NormalizeCNK(input)
	if normalized == "" {
		return "", fmt.Errorf("input contains no digits")
	}

	if len(normalized) != 7 {
		return "", fmt.Errorf("CNK should have 7 digits, got %d", len(normalized))
	}

	return normalized, nil
}

// ValidateAmount validates a dispensing package count
func (v *DataValidatorImpl) ValidateAmount(amount int) error {
	if amount < 1 {
		return fmt.Errorf("amount must be at least 1 package")
	}

	if amount > 100 {
		return fmt.Errorf("amount too large: maximum 100 packages per dispensing")
	}

	return nil
}

// ValidateInput validates user input strings with enhanced security
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) > 200 {
		return fmt.Errorf("input too long: maximum 200 characters")
	}

	// Check for potentially dangerous patterns using string matching (5-10x faster than regex)
	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	// Additional checks for repeated characters (potential DoS)
	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ReportDataQuality generates a data quality report for one import. The
// report never blocks a rebuild; it surfaces on the health endpoint so
// reviewers know which medications will be missing a timeline and why.
func (v *DataValidatorImpl) ReportDataQuality(
	medications []entities.PrescribedMedication,
	groups []entities.DispensingGroup,
	stats *interfaces.ImportStats,
) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateCNKs:           []string{},
		MedicationsWithoutCNK:   []string{},
		MedicationsWithoutDoses: []string{},
		GroupsWithoutMoments:    []string{},
	}

	if stats != nil {
		report.SkippedPrescriptionRows = stats.PrescriptionRowsSkipped
		report.SkippedDispensingRows = stats.DispensingRowsSkipped
	}

	// Check 1: Find CNK codes appearing in more than one dispensing group
	cnkSeen := make(map[string]bool)
	for _, group := range groups {
		if group.Cnk == "" {
			continue
		}
		if cnkSeen[group.Cnk] {
			report.DuplicateCNKs = append(report.DuplicateCNKs, group.Cnk)
		}
		cnkSeen[group.Cnk] = true
	}

	// Check 2: Medications without a product code (store first 10 IDs)
	for _, med := range medications {
		if entities.NormalizeCNK(med.Cnk) == "" {
			if len(report.MedicationsWithoutCNK) < 10 {
				report.MedicationsWithoutCNK = append(report.MedicationsWithoutCNK, med.ID)
			}
		}
	}

	// Check 3: Medications with no usable usage rate (store first 10 IDs)
	for _, med := range medications {
		if med.AsNeeded {
			report.AsNeededMedications++
			continue
		}
		if !med.Doses.DailyUsage().IsPositive() {
			if len(report.MedicationsWithoutDoses) < 10 {
				report.MedicationsWithoutDoses = append(report.MedicationsWithoutDoses, med.ID)
			}
		}
	}

	// Check 4: Groups that lost all their moments to row filtering
	for _, group := range groups {
		if len(group.Moments) == 0 {
			report.GroupsWithoutMoments = append(report.GroupsWithoutMoments, group.Cnk)
		}
	}

	return report
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	// Check for the same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
