package analysis

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"immopilot/server/internal/geocoding"
	"immopilot/server/internal/models"
)

// Weights holds the composite score coefficients.
type Weights struct {
	Proximity float64
	Room      float64
	Area      float64
}

// Scorer ranks candidate transactions by similarity to the target.
type Scorer interface {
	Score(ctx context.Context, candidates []models.Transaction, target models.TargetProperty) []models.ScoredTransaction
}

// HeuristicScorer scores proximity from address strings alone, without any
// network calls. Used when no full address is available, and as the
// fallback when geocoding fails.
type HeuristicScorer struct {
	logger  *logrus.Logger
	weights Weights
}

func NewHeuristicScorer(logger *logrus.Logger, weights Weights) *HeuristicScorer {
	return &HeuristicScorer{logger: logger, weights: weights}
}

func (s *HeuristicScorer) Score(_ context.Context, candidates []models.Transaction, target models.TargetProperty) []models.ScoredTransaction {
	proximities := make([]float64, len(candidates))
	for i, tx := range candidates {
		proximities[i] = heuristicProximity(target, tx)
	}
	return compose(candidates, target, proximities, nil, s.weights)
}

// heuristicProximity scores one candidate by cascading address rules, most
// to least specific.
func heuristicProximity(target models.TargetProperty, tx models.Transaction) float64 {
	targetParts := parseStreet(target.FullAddress)
	candidateParts := parseStreet(tx.FullAddress)
	inSameCommune := sameCommune(target.City, tx.Commune)

	nameSimilarity := wordOverlap(targetParts.StreetName, candidateParts.StreetName)

	if nameSimilarity > 0.8 {
		if targetParts.HouseNumber != "" && candidateParts.HouseNumber != "" {
			targetNo, _ := strconv.Atoi(targetParts.HouseNumber)
			candidateNo, _ := strconv.Atoi(candidateParts.HouseNumber)
			diff := targetNo - candidateNo
			if diff < 0 {
				diff = -diff
			}
			switch {
			case diff <= 10:
				return 100
			case diff <= 20:
				return 95
			case diff <= 50:
				return 85
			default:
				return 60
			}
		}
		return 95
	}

	if targetParts.StreetType != "" && targetParts.StreetType == candidateParts.StreetType && inSameCommune {
		if nameSimilarity > 0.5 {
			return 55
		}
		return 25
	}

	if inSameCommune {
		if wordOverlap(targetParts.Normalized, candidateParts.Normalized) > 0.4 {
			return 50
		}
		return 15
	}

	// Already filtered to the same or adjacent postal area upstream
	return 20
}

// GeocodedScorer scores proximity by real geocoded distance, resolving all
// candidate addresses concurrently. Any candidate that fails to geocode
// falls back to the heuristic score; if the target itself fails, the whole
// batch does.
type GeocodedScorer struct {
	logger    *logrus.Logger
	geocoder  *geocoding.Geocoder
	heuristic *HeuristicScorer
	weights   Weights
}

func NewGeocodedScorer(logger *logrus.Logger, geocoder *geocoding.Geocoder, weights Weights) *GeocodedScorer {
	return &GeocodedScorer{
		logger:    logger,
		geocoder:  geocoder,
		heuristic: NewHeuristicScorer(logger, weights),
		weights:   weights,
	}
}

func (s *GeocodedScorer) Score(ctx context.Context, candidates []models.Transaction, target models.TargetProperty) []models.ScoredTransaction {
	targetPoint := s.geocoder.Resolve(ctx, target.FullAddress, target.PostalCode, target.City)
	if targetPoint == nil {
		s.logger.WithField("address", target.FullAddress).Info("Target address did not geocode, using heuristic scoring")
		return s.heuristic.Score(ctx, candidates, target)
	}

	// Fan out candidate lookups; the geocoder cache deduplicates repeats.
	points := make([]*orb.Point, len(candidates))
	var wg sync.WaitGroup
	for i, tx := range candidates {
		if tx.FullAddress == "" {
			continue
		}
		wg.Add(1)
		go func(i int, tx models.Transaction) {
			defer wg.Done()
			points[i] = s.geocoder.Resolve(ctx, tx.FullAddress, tx.PostalCode, tx.Commune)
		}(i, tx)
	}
	wg.Wait()

	proximities := make([]float64, len(candidates))
	distances := make([]*float64, len(candidates))
	for i, tx := range candidates {
		if points[i] == nil {
			proximities[i] = heuristicProximity(target, tx)
			continue
		}
		d := geocoding.DistanceMeters(*targetPoint, *points[i])
		distances[i] = &d
		proximities[i] = distanceProximity(d)
	}

	return compose(candidates, target, proximities, distances, s.weights)
}

// distanceProximity maps a real distance in meters to a proximity band.
func distanceProximity(meters float64) float64 {
	switch {
	case meters <= 50:
		return 100
	case meters <= 100:
		return 95
	case meters <= 250:
		return 85
	case meters <= 500:
		return 70
	default:
		return 50
	}
}

// compose derives room and area scores from the batch's maximum observed
// differences and combines them with proximity into the final score. The
// normalization is relative to the current candidate pool.
func compose(candidates []models.Transaction, target models.TargetProperty, proximities []float64, distances []*float64, w Weights) []models.ScoredTransaction {
	maxRoomDiff := 1.0
	maxAreaDiff := 1.0
	for _, tx := range candidates {
		if d := math.Abs(float64(tx.RoomCount - target.RoomCount)); d > maxRoomDiff {
			maxRoomDiff = d
		}
		if d := math.Abs(tx.LivingArea - target.LivingArea); d > maxAreaDiff {
			maxAreaDiff = d
		}
	}

	scored := make([]models.ScoredTransaction, len(candidates))
	for i, tx := range candidates {
		roomScore := math.Max(0, 100-math.Abs(float64(tx.RoomCount-target.RoomCount))/maxRoomDiff*100)
		areaScore := math.Max(0, 100-math.Abs(tx.LivingArea-target.LivingArea)/maxAreaDiff*100)

		scored[i] = models.ScoredTransaction{
			Transaction:    tx,
			ProximityScore: proximities[i],
			RoomScore:      roomScore,
			AreaScore:      areaScore,
			CombinedScore:  w.Proximity*proximities[i] + w.Room*roomScore + w.Area*areaScore,
		}
		if distances != nil {
			scored[i].DistanceMeters = distances[i]
		}
	}
	return scored
}
