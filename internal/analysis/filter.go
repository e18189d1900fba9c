package analysis

import (
	"math"

	"immopilot/server/internal/models"
)

// FilterCandidates narrows the transaction set to candidates comparable to
// the target. The first pass keeps same-postal-code transactions within the
// surface tolerance; when that yields nothing, it widens to the two-digit
// administrative department with a relaxed tolerance.
//
// The tolerance is wider when a full address is available, because the
// geocoded scorer can re-rank a broad pool precisely; room/surface-only
// scoring needs a tighter prefilter.
func FilterCandidates(transactions []models.Transaction, target models.TargetProperty, tolerance, departmentTolerance float64) []models.Transaction {
	var candidates []models.Transaction
	for _, tx := range transactions {
		if tx.PostalCode == target.PostalCode && math.Abs(tx.LivingArea-target.LivingArea) <= tolerance {
			candidates = append(candidates, tx)
		}
	}
	if len(candidates) > 0 {
		return candidates
	}

	if len(target.PostalCode) < 2 {
		return nil
	}
	department := target.PostalCode[:2]
	for _, tx := range transactions {
		if len(tx.PostalCode) >= 2 && tx.PostalCode[:2] == department &&
			math.Abs(tx.LivingArea-target.LivingArea) <= departmentTolerance {
			candidates = append(candidates, tx)
		}
	}
	return candidates
}
