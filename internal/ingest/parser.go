package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"immopilot/server/internal/models"
)

// Admissibility bounds for a transaction to enter scoring. Records outside
// these bounds are data-quality noise (parking lots, land sales, typos) and
// are dropped silently.
const (
	MinLivingArea   = 9.0
	MaxLivingArea   = 400.0
	MinPricePerArea = 500.0
	MaxPricePerArea = 15000.0
	MinPrice        = 10000.0
)

// ParseError describes why a single raw row was rejected. Rows failing to
// parse never abort the batch; callers count these and move on.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row rejected: field %q value %q: %s", e.Field, e.Value, e.Reason)
}

// ColumnIndex maps the consumed DVF columns to their positions in a row.
// Optional columns are -1 when absent from the header.
type ColumnIndex struct {
	ID         int
	Date       int
	Price      int
	Type       int
	Area       int
	PostalCode int
	Rooms      int

	// Optional enrichment columns
	StreetNumber int
	StreetName   int
	Commune      int
}

// ResolveColumns locates the consumed columns in a DVF header row.
func ResolveColumns(header []string) (ColumnIndex, error) {
	idx := ColumnIndex{
		ID: -1, Date: -1, Price: -1, Type: -1, Area: -1,
		PostalCode: -1, Rooms: -1,
		StreetNumber: -1, StreetName: -1, Commune: -1,
	}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id_mutation":
			idx.ID = i
		case "date_mutation":
			idx.Date = i
		case "valeur_fonciere":
			idx.Price = i
		case "type_local":
			idx.Type = i
		case "surface_reelle_bati":
			idx.Area = i
		case "code_postal":
			idx.PostalCode = i
		case "nombre_pieces_principales":
			idx.Rooms = i
		case "adresse_numero":
			idx.StreetNumber = i
		case "adresse_nom_voie":
			idx.StreetName = i
		case "nom_commune":
			idx.Commune = i
		}
	}

	for _, required := range []struct {
		name string
		pos  int
	}{
		{"id_mutation", idx.ID},
		{"date_mutation", idx.Date},
		{"valeur_fonciere", idx.Price},
		{"type_local", idx.Type},
		{"surface_reelle_bati", idx.Area},
		{"code_postal", idx.PostalCode},
		{"nombre_pieces_principales", idx.Rooms},
	} {
		if required.pos < 0 {
			return idx, fmt.Errorf("missing required column %q in header", required.name)
		}
	}
	return idx, nil
}

// ParseRow converts one raw DVF record into a Transaction. It returns a
// *ParseError (never a panic) for malformed or inadmissible rows.
func ParseRow(record []string, cols ColumnIndex) (*models.Transaction, error) {
	field := func(pos int) string {
		if pos < 0 || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	price, err := parseDecimal(field(cols.Price))
	if err != nil || price <= 0 {
		return nil, &ParseError{Field: "valeur_fonciere", Value: field(cols.Price), Reason: "unparseable price"}
	}

	area, err := parseDecimal(field(cols.Area))
	if err != nil || area <= 0 {
		return nil, &ParseError{Field: "surface_reelle_bati", Value: field(cols.Area), Reason: "unparseable area"}
	}

	postalCode := field(cols.PostalCode)
	if len(postalCode) != 5 {
		return nil, &ParseError{Field: "code_postal", Value: postalCode, Reason: "postal code must be 5 characters"}
	}

	propertyType := field(cols.Type)

	rooms := 0
	if raw := field(cols.Rooms); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			rooms = n
		}
	}

	tx := &models.Transaction{
		ID:           field(cols.ID),
		SaleDate:     NormalizeDate(field(cols.Date)),
		Price:        price,
		PropertyType: propertyType,
		LivingArea:   area,
		PostalCode:   postalCode,
		PricePerArea: price / area,
		RoomCount:    rooms,
		Commune:      field(cols.Commune),
	}

	if number, street := field(cols.StreetNumber), field(cols.StreetName); street != "" {
		if number != "" {
			tx.FullAddress = number + " " + street
		} else {
			tx.FullAddress = street
		}
	}

	if reason := admissibilityFailure(tx); reason != "" {
		return nil, &ParseError{Field: "admissibility", Value: tx.ID, Reason: reason}
	}
	return tx, nil
}

// IsAdmissible reports whether a transaction passes the data-quality
// invariant that gates entry into scoring.
func IsAdmissible(tx *models.Transaction) bool {
	return admissibilityFailure(tx) == ""
}

func admissibilityFailure(tx *models.Transaction) string {
	if !isResidentialType(tx.PropertyType) {
		return "property type is not apartment or house"
	}
	if tx.LivingArea < MinLivingArea || tx.LivingArea > MaxLivingArea {
		return "living area out of bounds"
	}
	if tx.PricePerArea < MinPricePerArea || tx.PricePerArea > MaxPricePerArea {
		return "price per m² out of bounds"
	}
	if tx.Price <= MinPrice {
		return "price too low"
	}
	return ""
}

func isResidentialType(label string) bool {
	lower := strings.ToLower(label)
	for _, want := range []string{"appartement", "apartment", "maison", "house"} {
		if strings.Contains(lower, want) {
			return true
		}
	}
	return false
}

// parseDecimal parses a decimal-comma formatted number ("468000,00").
// Plain dot-decimal input is accepted as well.
func parseDecimal(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	normalized := strings.ReplaceAll(raw, ",", ".")
	// Strip thousands separators sometimes present in exports
	normalized = strings.ReplaceAll(normalized, " ", "")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// NormalizeDate converts DD/MM/YYYY to YYYY-MM-DD. A string in any other
// shape is passed through unchanged.
func NormalizeDate(raw string) string {
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return raw
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(day) != 2 || len(month) != 2 || len(year) != 4 {
		return raw
	}
	for _, part := range parts {
		if _, err := strconv.Atoi(part); err != nil {
			return raw
		}
	}
	return year + "-" + month + "-" + day
}
