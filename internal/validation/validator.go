// =============================================================================
// YO TE LLEVO Importer - Collection Validator
// =============================================================================
//
// This module checks the persisted collections against the invariants every
// import must preserve:
//   - DNI is unique across passengers
//   - a reservation has at least one member and never more members than its
//     declared passenger count
//   - reservation members, trips and boarding points resolve
//   - boarding point ids are a single letter
//
// ERROR HANDLING:
//   - Findings are collected, not returned as a failure
//   - Each finding names the entity and id it concerns
//   - "error" findings mean an invariant is broken; "warning" findings point
//     at dangling references that do not corrupt the data
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yotellevo/passenger-import/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Entity is the collection the finding concerns ("passenger", ...).
	Entity string

	// ID identifies the offending record.
	ID string

	// Rule is the invariant that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s %s: %s (%s)",
		strings.ToUpper(e.Severity),
		e.Entity,
		e.ID,
		e.Message,
		e.Rule,
	)
}

// ValidationResult summarises a validation pass.
type ValidationResult struct {
	// IsValid is true when there are no error-level findings.
	IsValid bool

	Errors       []*ValidationError
	ErrorCount   int
	WarningCount int
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks c and returns every finding.
func Validate(c *types.Collections) *ValidationResult {
	var findings []*ValidationError
	add := func(severity, entity, id, rule, format string, args ...interface{}) {
		findings = append(findings, &ValidationError{
			Severity: severity,
			Entity:   entity,
			ID:       id,
			Rule:     rule,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	passengers := make(map[string]bool, len(c.Passengers))
	seenDNI := make(map[string]bool, len(c.Passengers))
	for _, p := range c.Passengers {
		passengers[p.ID] = true
		if p.DNI == "" {
			add(SeverityError, "passenger", p.ID, "dni_required", "passenger has no DNI")
			continue
		}
		if seenDNI[p.DNI] {
			add(SeverityError, "passenger", p.ID, "dni_unique", "DNI %s appears more than once", p.DNI)
		}
		seenDNI[p.DNI] = true
	}

	trips := make(map[string]bool, len(c.Trips))
	for _, t := range c.Trips {
		trips[t.ID] = true
	}

	boarding := make(map[string]bool, len(c.BoardingPoints))
	for _, bp := range c.BoardingPoints {
		boarding[bp.ID] = true
		if utf8.RuneCountInString(bp.ID) != 1 {
			add(SeverityWarning, "boarding_point", bp.ID, "single_letter_id", "boarding point id is not a single letter")
		}
	}

	for _, r := range c.Reservations {
		switch {
		case len(r.PassengerIDs) == 0:
			add(SeverityError, "reservation", r.ID, "members_required", "reservation has no passengers")
		case len(r.PassengerIDs) > r.PassengerCount:
			add(SeverityError, "reservation", r.ID, "members_within_count",
				"%d passengers for a declared count of %d", len(r.PassengerIDs), r.PassengerCount)
		}
		if !trips[r.TripID] {
			add(SeverityError, "reservation", r.ID, "trip_exists", "trip %q does not exist", r.TripID)
		}
		for _, id := range r.PassengerIDs {
			if !passengers[id] {
				add(SeverityWarning, "reservation", r.ID, "member_exists", "passenger %q does not exist", id)
			}
		}
		if r.BoardingPointID != "" && !boarding[r.BoardingPointID] {
			add(SeverityWarning, "reservation", r.ID, "boarding_point_exists", "boarding point %q does not exist", r.BoardingPointID)
		}
	}

	result := &ValidationResult{Errors: findings}
	for _, f := range findings {
		if f.Severity == SeverityError {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}
	result.IsValid = result.ErrorCount == 0
	return result
}

// FormatErrors renders findings one per line.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d validation finding(s):\n", len(errors))
	for i, e := range errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, e.Error())
	}
	return b.String()
}
