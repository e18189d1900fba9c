package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"immopilot/server/internal/models"
)

func tx(id, postalCode string, area float64) models.Transaction {
	return models.Transaction{ID: id, PostalCode: postalCode, LivingArea: area, Price: area * 5000, PricePerArea: 5000}
}

func TestFilterCandidates_ExactPostalCode(t *testing.T) {
	transactions := []models.Transaction{
		tx("A", "75011", 50),
		tx("B", "75011", 65),
		tx("C", "75011", 95), // outside ±20
		tx("D", "75012", 50), // wrong postal code
	}
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50}

	candidates := FilterCandidates(transactions, target, 20, 30)
	assert.Len(t, candidates, 2)
	assert.Equal(t, "A", candidates[0].ID)
	assert.Equal(t, "B", candidates[1].ID)
}

func TestFilterCandidates_DepartmentWidening(t *testing.T) {
	transactions := []models.Transaction{
		tx("A", "75012", 55), // same department, within relaxed tolerance
		tx("B", "75020", 85), // same department, outside ±30
		tx("C", "92100", 50), // different department
	}
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50}

	candidates := FilterCandidates(transactions, target, 20, 30)
	assert.Len(t, candidates, 1)
	assert.Equal(t, "A", candidates[0].ID)
}

func TestFilterCandidates_EmptyResult(t *testing.T) {
	transactions := []models.Transaction{
		tx("A", "13001", 50),
	}
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50}

	candidates := FilterCandidates(transactions, target, 20, 30)
	assert.Empty(t, candidates)
}

func TestFilterCandidates_PrimaryPassBlocksWidening(t *testing.T) {
	transactions := []models.Transaction{
		tx("A", "75011", 50),
		tx("B", "75012", 50),
	}
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50}

	// One exact match exists, so the department pass never runs
	candidates := FilterCandidates(transactions, target, 20, 30)
	assert.Len(t, candidates, 1)
	assert.Equal(t, "A", candidates[0].ID)
}
