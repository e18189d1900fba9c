package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immopilot/server/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return st
}

func seed(t *testing.T, st *Store, vintage string, ppas ...float64) {
	t.Helper()
	batch := make([]*models.Transaction, len(ppas))
	for i, ppa := range ppas {
		batch[i] = &models.Transaction{
			ID:           vintage + "-" + string(rune('A'+i)),
			PostalCode:   "75011",
			LivingArea:   50,
			Price:        ppa * 50,
			PricePerArea: ppa,
		}
	}
	require.NoError(t, UpsertTransactions(st.DB(), batch, vintage))
}

func TestUpsertTransactions_InsertAndUpdate(t *testing.T) {
	st := testStore(t)

	tx := &models.Transaction{ID: "M1", PostalCode: "75011", Price: 250000, LivingArea: 45, PricePerArea: 5555.56}
	require.NoError(t, UpsertTransactions(st.DB(), []*models.Transaction{tx}, "2024"))

	// Same ID with a corrected price replaces the row
	tx.Price = 260000
	require.NoError(t, UpsertTransactions(st.DB(), []*models.Transaction{tx}, "2024"))

	var record TransactionRecord
	require.NoError(t, st.DB().First(&record, "id = ?", "M1").Error)
	assert.Equal(t, 260000.0, record.Price)

	counts, err := st.CountByVintage()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["2024"])
}

func TestUpsertTransactions_EmptyBatch(t *testing.T) {
	st := testStore(t)
	assert.NoError(t, UpsertTransactions(st.DB(), nil, "2024"))
}

func TestGetAreaStats(t *testing.T) {
	st := testStore(t)
	seed(t, st, "2024", 4000, 5000, 6000)

	stats, err := st.GetAreaStats("75011")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TransactionCount)
	assert.Equal(t, 5000.0, stats.MedianPricePerSqm)
	assert.Equal(t, 4000.0, stats.MinPricePerSqm)
	assert.Equal(t, 6000.0, stats.MaxPricePerSqm)
}

func TestGetAreaStats_EmptyArea(t *testing.T) {
	st := testStore(t)
	stats, err := st.GetAreaStats("99999")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TransactionCount)
	assert.Equal(t, 0.0, stats.MedianPricePerSqm)
}
