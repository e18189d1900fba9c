package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"immopilot/server/config"
	"immopilot/server/internal/geocoding"
	"immopilot/server/internal/models"
)

// Analyzer turns a transaction set and a target property into a market
// analysis. It selects the scoring strategy from the presence of a full
// address on the target.
type Analyzer struct {
	logger   *logrus.Logger
	cfg      *config.Config
	geocoder *geocoding.Geocoder
}

func NewAnalyzer(logger *logrus.Logger, cfg *config.Config, geocoder *geocoding.Geocoder) *Analyzer {
	return &Analyzer{logger: logger, cfg: cfg, geocoder: geocoder}
}

func (a *Analyzer) weights() Weights {
	return Weights{
		Proximity: a.cfg.Analysis.ProximityWeight,
		Room:      a.cfg.Analysis.RoomWeight,
		Area:      a.cfg.Analysis.AreaWeight,
	}
}

// AnalyzeMarket produces the market analysis for a target property, or
// (nil, nil) when no usable candidates exist for the area. The nil result
// is a legitimate outcome, not an error; the caller decides the fallback.
func (a *Analyzer) AnalyzeMarket(ctx context.Context, transactions []models.Transaction, target models.TargetProperty) (*models.MarketAnalysis, error) {
	hasAddress := target.FullAddress != ""

	tolerance := float64(a.cfg.Analysis.ToleranceNoAddress)
	if hasAddress {
		tolerance = float64(a.cfg.Analysis.ToleranceWithAddress)
	}
	candidates := FilterCandidates(transactions, target, tolerance, float64(a.cfg.Analysis.ToleranceDepartment))
	if len(candidates) == 0 {
		a.logger.WithFields(logrus.Fields{
			"postal_code": target.PostalCode,
			"living_area": target.LivingArea,
		}).Info("No comparable candidates found")
		return nil, nil
	}

	var scorer Scorer
	if hasAddress {
		scorer = NewGeocodedScorer(a.logger, a.geocoder, a.weights())
	} else {
		scorer = NewHeuristicScorer(a.logger, a.weights())
	}

	scored := scorer.Score(ctx, candidates, target)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CombinedScore > scored[j].CombinedScore
	})
	if len(scored) > a.cfg.Analysis.MaxCandidates {
		scored = scored[:a.cfg.Analysis.MaxCandidates]
	}

	var pricePerArea float64
	var reliability models.Reliability
	if hasAddress {
		pricePerArea, reliability = a.estimateWithAddress(scored)
	} else {
		pricePerArea, reliability = a.estimateByRooms(scored, target.RoomCount)
	}

	// Observed market range over the full candidate set, independent of
	// which subset anchored the point estimate
	minPPA := math.Inf(1)
	maxPPA := math.Inf(-1)
	for _, s := range scored {
		if s.PricePerArea < minPPA {
			minPPA = s.PricePerArea
		}
		if s.PricePerArea > maxPPA {
			maxPPA = s.PricePerArea
		}
	}

	estimatedMedian := pricePerArea * target.LivingArea
	analysis := &models.MarketAnalysis{
		AvgPricePerAreaDistrict: pricePerArea,
		MinPricePerArea:         minPPA,
		MaxPricePerArea:         maxPPA,
		EstimatedValueLow:       estimatedMedian * 0.85,
		EstimatedValueMedian:    estimatedMedian,
		EstimatedValueHigh:      estimatedMedian * 1.15,
		SimilarTransactionCount: len(scored),
		Reliability:             reliability,
		RoomStatistics:          roomBreakdown(scored, target.RoomCount),
		SimilarTransactions:     similarTransactions(scored, a.cfg.Analysis.DisplayLimit),
	}

	if target.AskingPrice > 0 && estimatedMedian > 0 {
		gap := (target.AskingPrice - estimatedMedian) / estimatedMedian * 100
		analysis.PriceGapVsAskingPct = gap
		switch {
		case gap < -5:
			analysis.Conclusion = models.ConclusionGoodDeal
		case gap > 10:
			analysis.Conclusion = models.ConclusionOverpriced
		default:
			analysis.Conclusion = models.ConclusionFair
		}
	}

	return analysis, nil
}

// estimateWithAddress anchors the price on the top candidates by combined
// score: a score-weighted mean reconciled against the median, preferring
// the median when they diverge too far. Guards against a few high-score
// outlier prices skewing the weighted mean.
func (a *Analyzer) estimateWithAddress(scored []models.ScoredTransaction) (float64, models.Reliability) {
	top := scored
	if len(top) > a.cfg.Analysis.TopByScore {
		top = top[:a.cfg.Analysis.TopByScore]
	}

	values := make([]float64, len(top))
	weights := make([]float64, len(top))
	scores := make([]float64, len(top))
	for i, s := range top {
		values[i] = s.PricePerArea
		weights[i] = s.CombinedScore
		scores[i] = s.CombinedScore
	}
	weighted := weightedMean(values, weights)

	medianSample := values
	if len(medianSample) > a.cfg.Analysis.MedianSample {
		medianSample = medianSample[:a.cfg.Analysis.MedianSample]
	}
	med := median(medianSample)

	estimate := weighted
	if med > 0 && math.Abs(weighted-med)/med > a.cfg.Analysis.DivergenceThreshold {
		a.logger.WithFields(logrus.Fields{
			"weighted_mean": weighted,
			"median":        med,
		}).Debug("Weighted mean diverges from median, preferring median")
		estimate = med
	}

	return estimate, addressReliability(len(top), mean(scores))
}

func addressReliability(sampleSize int, avgScore float64) models.Reliability {
	switch {
	case (sampleSize >= 20 && avgScore > 70) || (sampleSize >= 10 && avgScore > 60):
		return models.ReliabilityStrong
	case (sampleSize >= 5 && avgScore > 50) || (sampleSize >= 3 && avgScore > 40):
		return models.ReliabilityMedium
	default:
		return models.ReliabilityWeak
	}
}

// estimateByRooms anchors the price on exact room-count matches when
// enough exist, degrading to a room-distance-weighted series otherwise.
func (a *Analyzer) estimateByRooms(scored []models.ScoredTransaction, roomCount int) (float64, models.Reliability) {
	var exact []float64
	for _, s := range scored {
		if s.RoomCount == roomCount {
			exact = append(exact, s.PricePerArea)
		}
	}

	if len(exact) >= a.cfg.Analysis.ExactRoomStrongMin {
		return median(exact), models.ReliabilityStrong
	}
	if len(exact) > 0 {
		// Small sample, still an exact match
		return median(exact), models.ReliabilityWeak
	}

	values := make([]float64, len(scored))
	weights := make([]float64, len(scored))
	for i, s := range scored {
		values[i] = s.PricePerArea
		weights[i] = roomDistanceWeight(s.RoomCount, roomCount)
	}
	return weightedSeriesMedian(values, weights), models.ReliabilityWeak
}

func roomDistanceWeight(rooms, target int) float64 {
	diff := rooms - target
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 1.0
	case 1:
		return 0.8
	case 2:
		return 0.6
	default:
		return 0.4
	}
}

// weightedSeriesMedian takes the weighted median of a price series: the
// value at which half the total weight is accumulated.
func weightedSeriesMedian(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	type pair struct {
		value  float64
		weight float64
	}
	pairs := make([]pair, len(values))
	var total float64
	for i := range values {
		pairs[i] = pair{values[i], weights[i]}
		total += weights[i]
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

	var acc float64
	for _, p := range pairs {
		acc += p.weight
		if acc >= total/2 {
			return p.value
		}
	}
	return pairs[len(pairs)-1].value
}

// roomBreakdown groups all candidates by room count and tags each group by
// its distance to the target room count.
func roomBreakdown(scored []models.ScoredTransaction, targetRooms int) []models.RoomStatistic {
	groups := make(map[int][]float64)
	for _, s := range scored {
		groups[s.RoomCount] = append(groups[s.RoomCount], s.PricePerArea)
	}

	stats := make([]models.RoomStatistic, 0, len(groups))
	for rooms, prices := range groups {
		minPrice := prices[0]
		maxPrice := prices[0]
		for _, p := range prices {
			if p < minPrice {
				minPrice = p
			}
			if p > maxPrice {
				maxPrice = p
			}
		}
		stats = append(stats, models.RoomStatistic{
			RoomCount:        rooms,
			TransactionCount: len(prices),
			MedianPrice:      median(prices),
			MinPrice:         minPrice,
			MaxPrice:         maxPrice,
			Priority:         roomPriority(rooms, targetRooms),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		pi, pj := priorityRank(stats[i].Priority), priorityRank(stats[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return stats[i].TransactionCount > stats[j].TransactionCount
	})
	return stats
}

func roomPriority(rooms, target int) models.RoomPriority {
	diff := rooms - target
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return models.RoomPriorityExact
	case 1:
		return models.RoomPriorityClose
	case 2:
		return models.RoomPriorityBroad
	default:
		return models.RoomPriorityOther
	}
}

func priorityRank(p models.RoomPriority) int {
	switch p {
	case models.RoomPriorityExact:
		return 0
	case models.RoomPriorityClose:
		return 1
	case models.RoomPriorityBroad:
		return 2
	default:
		return 3
	}
}

// similarTransactions returns the display list: ascending by distance,
// unknown distances last, truncated to the display limit.
func similarTransactions(scored []models.ScoredTransaction, limit int) []models.ScoredTransaction {
	out := make([]models.ScoredTransaction, len(scored))
	copy(out, scored)

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DistanceMeters, out[j].DistanceMeters
		switch {
		case di != nil && dj != nil:
			return *di < *dj
		case di != nil:
			return true
		default:
			return false
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
