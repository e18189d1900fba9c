package models

// Transaction represents one recorded property sale from the DVF dataset.
type Transaction struct {
	ID           string  `json:"id"`
	SaleDate     string  `json:"sale_date"` // YYYY-MM-DD
	Price        float64 `json:"price"`
	PropertyType string  `json:"property_type"`
	LivingArea   float64 `json:"living_area"`
	PostalCode   string  `json:"postal_code"`
	PricePerArea float64 `json:"price_per_area"`
	RoomCount    int     `json:"room_count"`
	FullAddress  string  `json:"full_address,omitempty"`
	Commune      string  `json:"commune,omitempty"`
}

// ScoredTransaction augments a transaction with similarity scores against
// a target property. Scores are 0-100.
type ScoredTransaction struct {
	Transaction
	CombinedScore  float64  `json:"combined_score"`
	ProximityScore float64  `json:"proximity_score"`
	RoomScore      float64  `json:"room_score"`
	AreaScore      float64  `json:"area_score"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// TargetProperty holds the query parameters of one market analysis request.
type TargetProperty struct {
	PostalCode  string  `json:"postal_code" binding:"required"`
	City        string  `json:"city"`
	LivingArea  float64 `json:"living_area" binding:"required"`
	RoomCount   int     `json:"room_count"`
	FullAddress string  `json:"full_address"`

	// Financial context, used only for downstream reconciliation
	AskingPrice      float64 `json:"asking_price"`
	Floor            *int    `json:"floor,omitempty"`
	ConstructionYear *int    `json:"construction_year,omitempty"`
	Condition        string  `json:"condition,omitempty"`
}
