package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"immopilot/server/internal/models"
)

// TransactionRecord is the persisted form of an ingested transaction.
// The snapshot backs the API stats endpoints and warm starts; the analysis
// core itself never reads from it.
type TransactionRecord struct {
	ID           string  `gorm:"primaryKey"`
	SaleDate     string  `gorm:"index"`
	Price        float64 `gorm:"not null"`
	PropertyType string
	LivingArea   float64
	PostalCode   string `gorm:"index"`
	PricePerArea float64
	RoomCount    int
	FullAddress  string
	Commune      string
	Vintage      string `gorm:"index"`
	UpdatedAt    time.Time
}

// AreaStats aggregates the snapshot for one postal code.
type AreaStats struct {
	PostalCode        string  `json:"postal_code"`
	TransactionCount  int     `json:"transaction_count"`
	MedianPricePerSqm float64 `json:"median_price_per_sqm"`
	MinPricePerSqm    float64 `json:"min_price_per_sqm"`
	MaxPricePerSqm    float64 `json:"max_price_per_sqm"`
}

type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := db.AutoMigrate(&TransactionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for the batch processor's transactions.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// UpsertTransactions inserts or replaces a batch of transactions within
// the given gorm handle (usually a transaction started by the processor).
func UpsertTransactions(tx *gorm.DB, batch []*models.Transaction, vintage string) error {
	if len(batch) == 0 {
		return nil
	}

	records := make([]TransactionRecord, len(batch))
	for i, t := range batch {
		records[i] = TransactionRecord{
			ID:           t.ID,
			SaleDate:     t.SaleDate,
			Price:        t.Price,
			PropertyType: t.PropertyType,
			LivingArea:   t.LivingArea,
			PostalCode:   t.PostalCode,
			PricePerArea: t.PricePerArea,
			RoomCount:    t.RoomCount,
			FullAddress:  t.FullAddress,
			Commune:      t.Commune,
			Vintage:      vintage,
		}
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&records).Error
}

// GetAreaStats aggregates the snapshot for one postal code.
func (s *Store) GetAreaStats(postalCode string) (*AreaStats, error) {
	var prices []float64
	err := s.db.Model(&TransactionRecord{}).
		Where("postal_code = ?", postalCode).
		Order("price_per_area").
		Pluck("price_per_area", &prices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query area stats: %w", err)
	}

	stats := &AreaStats{PostalCode: postalCode, TransactionCount: len(prices)}
	if len(prices) == 0 {
		return stats, nil
	}

	stats.MinPricePerSqm = prices[0]
	stats.MaxPricePerSqm = prices[len(prices)-1]
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		stats.MedianPricePerSqm = prices[mid]
	} else {
		stats.MedianPricePerSqm = (prices[mid-1] + prices[mid]) / 2
	}
	return stats, nil
}

// CountByVintage returns the number of persisted transactions per vintage.
func (s *Store) CountByVintage() (map[string]int64, error) {
	type row struct {
		Vintage string
		Count   int64
	}
	var rows []row
	err := s.db.Model(&TransactionRecord{}).
		Select("vintage, count(*) as count").
		Group("vintage").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count snapshot by vintage: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Vintage] = r.Count
	}
	return counts, nil
}
