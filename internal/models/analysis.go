package models

// Reliability is a coarse confidence label attached to a market estimate.
type Reliability string

const (
	ReliabilityStrong Reliability = "strong"
	ReliabilityMedium Reliability = "medium"
	ReliabilityWeak   Reliability = "weak"
)

// Conclusion classifies the asking price against the market estimate.
type Conclusion string

const (
	ConclusionGoodDeal   Conclusion = "good-deal"
	ConclusionOverpriced Conclusion = "overpriced"
	ConclusionFair       Conclusion = "fair"
)

// RoomPriority tags a room-count group relative to the target room count.
type RoomPriority string

const (
	RoomPriorityExact RoomPriority = "exact"
	RoomPriorityClose RoomPriority = "close"
	RoomPriorityBroad RoomPriority = "broad"
	RoomPriorityOther RoomPriority = "other"
)

// RoomStatistic summarizes the transactions sharing one room count.
type RoomStatistic struct {
	RoomCount        int          `json:"room_count"`
	TransactionCount int          `json:"transaction_count"`
	MedianPrice      float64      `json:"median_price"`
	MinPrice         float64      `json:"min_price"`
	MaxPrice         float64      `json:"max_price"`
	Priority         RoomPriority `json:"priority"`
}

// MarketAnalysis is the aggregated result of one analysis request.
type MarketAnalysis struct {
	AvgPricePerAreaDistrict float64 `json:"avg_price_per_sqm_district"`
	MinPricePerArea         float64 `json:"min_price_per_sqm"`
	MaxPricePerArea         float64 `json:"max_price_per_sqm"`

	EstimatedValueLow    float64 `json:"estimated_value_low"`
	EstimatedValueMedian float64 `json:"estimated_value_median"`
	EstimatedValueHigh   float64 `json:"estimated_value_high"`

	SimilarTransactionCount int `json:"similar_transaction_count"`

	PriceGapVsAskingPct float64    `json:"price_gap_vs_asking_pct"`
	Conclusion          Conclusion `json:"conclusion"`

	DataVintage string      `json:"data_vintage"`
	Reliability Reliability `json:"reliability"`

	RoomStatistics      []RoomStatistic     `json:"room_statistics"`
	SimilarTransactions []ScoredTransaction `json:"similar_transactions"`
}

// LoadStage identifies one phase of a transaction load.
type LoadStage string

const (
	LoadStageLoading   LoadStage = "loading"
	LoadStageParsing   LoadStage = "parsing"
	LoadStageFiltering LoadStage = "filtering"
	LoadStageComplete  LoadStage = "complete"
	LoadStageError     LoadStage = "error"
)

// LoadProgress is one ordered stage notification emitted during a load.
// Percent is monotonically non-decreasing across a single load.
type LoadProgress struct {
	Stage        LoadStage `json:"stage"`
	Percent      int       `json:"percent"`
	RowsRead     int       `json:"rows_read"`
	RowsAccepted int       `json:"rows_accepted"`
}
