package analysis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immopilot/server/config"
	"immopilot/server/internal/models"
)

func analysisConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analysis.ToleranceWithAddress = 40
	cfg.Analysis.ToleranceNoAddress = 20
	cfg.Analysis.ToleranceDepartment = 30
	cfg.Analysis.MaxCandidates = 1000
	cfg.Analysis.TopByScore = 50
	cfg.Analysis.MedianSample = 30
	cfg.Analysis.DivergenceThreshold = 0.15
	cfg.Analysis.ProximityWeight = 0.6
	cfg.Analysis.RoomWeight = 0.25
	cfg.Analysis.AreaWeight = 0.15
	cfg.Analysis.ExactRoomStrongMin = 10
	cfg.Analysis.DisplayLimit = 25
	return cfg
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(testLogger(), analysisConfig(), nil)
}

func exactRoomBatch(n int, rooms int, basePrice float64) []models.Transaction {
	transactions := make([]models.Transaction, n)
	for i := range transactions {
		ppa := basePrice + float64(i)*100
		transactions[i] = models.Transaction{
			ID:           fmt.Sprintf("T%d", i),
			PostalCode:   "75011",
			LivingArea:   50,
			RoomCount:    rooms,
			Price:        ppa * 50,
			PricePerArea: ppa,
			Commune:      "Paris",
		}
	}
	return transactions
}

func TestAnalyzeMarket_NoCandidates(t *testing.T) {
	a := newTestAnalyzer()
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), []models.Transaction{
		{ID: "X", PostalCode: "13001", LivingArea: 50, PricePerArea: 3000},
	}, target)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestAnalyzeMarket_ExactRoomStrong(t *testing.T) {
	a := newTestAnalyzer()
	// 12 exact room-count matches: strong reliability, median estimate
	transactions := exactRoomBatch(12, 3, 5000)
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.ReliabilityStrong, result.Reliability)
	assert.Equal(t, 12, result.SimilarTransactionCount)

	// Median of 5000,5100..6100 is 5550
	assert.InDelta(t, 5550, result.AvgPricePerAreaDistrict, 0.01)
	assert.InDelta(t, 5550*50, result.EstimatedValueMedian, 0.01)
}

func TestAnalyzeMarket_ExactRoomSmallSampleIsWeak(t *testing.T) {
	a := newTestAnalyzer()
	transactions := exactRoomBatch(4, 3, 5000)
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ReliabilityWeak, result.Reliability)
}

func TestAnalyzeMarket_NoExactMatchUsesWeightedSeries(t *testing.T) {
	a := newTestAnalyzer()
	transactions := append(exactRoomBatch(5, 2, 4000), exactRoomBatch(5, 4, 6000)...)
	for i := range transactions {
		transactions[i].ID = fmt.Sprintf("W%d", i)
	}
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ReliabilityWeak, result.Reliability)
	assert.Greater(t, result.AvgPricePerAreaDistrict, 0.0)
}

func TestAnalyzeMarket_ValueBandOrdering(t *testing.T) {
	a := newTestAnalyzer()
	transactions := exactRoomBatch(12, 3, 5000)
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.LessOrEqual(t, result.EstimatedValueLow, result.EstimatedValueMedian)
	assert.LessOrEqual(t, result.EstimatedValueMedian, result.EstimatedValueHigh)
	assert.InDelta(t, result.EstimatedValueMedian*0.85, result.EstimatedValueLow, 0.01)
	assert.InDelta(t, result.EstimatedValueMedian*1.15, result.EstimatedValueHigh, 0.01)
}

func TestAnalyzeMarket_MarketRangeOverFullSet(t *testing.T) {
	a := newTestAnalyzer()
	transactions := exactRoomBatch(12, 3, 5000)
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 5000.0, result.MinPricePerArea)
	assert.Equal(t, 6100.0, result.MaxPricePerArea)
}

func TestAnalyzeMarket_Conclusions(t *testing.T) {
	tests := []struct {
		name        string
		askingPrice float64
		want        models.Conclusion
	}{
		{"good deal", 240000, models.ConclusionGoodDeal},  // well below estimate
		{"overpriced", 330000, models.ConclusionOverpriced}, // well above estimate
		{"fair", 280000, models.ConclusionFair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer()
			transactions := exactRoomBatch(12, 3, 5000) // estimate 5550*50 = 277500
			target := models.TargetProperty{
				PostalCode:  "75011",
				LivingArea:  50,
				RoomCount:   3,
				AskingPrice: tt.askingPrice,
			}

			result, err := a.AnalyzeMarket(context.Background(), transactions, target)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Conclusion)
		})
	}
}

func TestAnalyzeMarket_RoomBreakdown(t *testing.T) {
	a := newTestAnalyzer()
	transactions := append(exactRoomBatch(6, 3, 5000), exactRoomBatch(3, 4, 5500)...)
	transactions = append(transactions, exactRoomBatch(2, 5, 6000)...)
	transactions = append(transactions, exactRoomBatch(1, 7, 7000)...)
	for i := range transactions {
		transactions[i].ID = fmt.Sprintf("R%d", i)
	}
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.RoomStatistics, 4)

	assert.Equal(t, models.RoomPriorityExact, result.RoomStatistics[0].Priority)
	assert.Equal(t, 3, result.RoomStatistics[0].RoomCount)
	assert.Equal(t, 6, result.RoomStatistics[0].TransactionCount)

	assert.Equal(t, models.RoomPriorityClose, result.RoomStatistics[1].Priority)
	assert.Equal(t, models.RoomPriorityBroad, result.RoomStatistics[2].Priority)
	assert.Equal(t, models.RoomPriorityOther, result.RoomStatistics[3].Priority)
}

func TestAnalyzeMarket_SimilarTransactionsBounded(t *testing.T) {
	a := newTestAnalyzer()
	transactions := exactRoomBatch(40, 3, 5000)
	target := models.TargetProperty{PostalCode: "75011", LivingArea: 50, RoomCount: 3}

	result, err := a.AnalyzeMarket(context.Background(), transactions, target)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.SimilarTransactions, 25)
	assert.Equal(t, 40, result.SimilarTransactionCount)
}

func TestEstimateWithAddress_MedianPreferredOnDivergence(t *testing.T) {
	a := newTestAnalyzer()

	// Mostly 5000 €/m² with a few high-score outliers at 12000 €/m²
	scored := make([]models.ScoredTransaction, 0, 12)
	for i := 0; i < 10; i++ {
		scored = append(scored, models.ScoredTransaction{
			Transaction:   models.Transaction{ID: fmt.Sprintf("N%d", i), PricePerArea: 5000},
			CombinedScore: 40,
		})
	}
	for i := 0; i < 2; i++ {
		scored = append(scored, models.ScoredTransaction{
			Transaction:   models.Transaction{ID: fmt.Sprintf("O%d", i), PricePerArea: 12000},
			CombinedScore: 100,
		})
	}

	estimate, _ := a.estimateWithAddress(scored)
	// Weighted mean (~7300) diverges from the median (5000) by more than
	// 15%: the median wins
	assert.Equal(t, 5000.0, estimate)
}

func TestEstimateWithAddress_Reliability(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		score    float64
		expected models.Reliability
	}{
		{"many high-score samples", 25, 80, models.ReliabilityStrong},
		{"ten good samples", 10, 65, models.ReliabilityStrong},
		{"five medium samples", 5, 55, models.ReliabilityMedium},
		{"three low samples", 3, 45, models.ReliabilityMedium},
		{"too few", 2, 90, models.ReliabilityWeak},
		{"low scores", 30, 30, models.ReliabilityWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, addressReliability(tt.count, tt.score))
		})
	}
}

func TestWeightedSeriesMedian(t *testing.T) {
	values := []float64{4000, 5000, 6000}
	weights := []float64{1, 1, 1}
	assert.Equal(t, 5000.0, weightedSeriesMedian(values, weights))

	// Heavier low end pulls the weighted median down
	weights = []float64{10, 1, 1}
	assert.Equal(t, 4000.0, weightedSeriesMedian(values, weights))

	assert.Equal(t, 0.0, weightedSeriesMedian(nil, nil))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 5000.0, median([]float64{4000, 5000, 6000}))
	assert.Equal(t, 4500.0, median([]float64{4000, 5000}))
	assert.Equal(t, 0.0, median(nil))
}
