package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"
)

// cacheEntry holds one memoized lookup result. A nil point records a
// negative result: the address could not be geocoded this session.
type cacheEntry struct {
	point     *orb.Point
	expiresAt time.Time
}

// Geocoder resolves free-text addresses to coordinates through the BAN
// address search service. Results, including negative ones, are memoized
// for a fixed TTL so repeated analyses do not re-issue lookups.
type Geocoder struct {
	logger    *logrus.Logger
	baseURL   string
	ttl       time.Duration
	cache     map[string]cacheEntry
	cacheLock sync.RWMutex
	client    *http.Client

	lookupCount int64
}

func NewGeocoder(logger *logrus.Logger, baseURL string, ttl time.Duration, timeout time.Duration) *Geocoder {
	return &Geocoder{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
		client:  &http.Client{Timeout: timeout},
	}
}

type banResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Label    string `json:"label"`
			Postcode string `json:"postcode"`
			City     string `json:"city"`
			Street   string `json:"street"`
		} `json:"properties"`
	} `json:"features"`
}

// Resolve returns the coordinates of an address, or nil when the address
// cannot be geocoded. A nil result is cached and must be treated as
// permanent for the session, not as a retry signal.
func (g *Geocoder) Resolve(ctx context.Context, address, postalCode, city string) *orb.Point {
	query := enrichAddress(address, postalCode, city)
	cacheKey := strings.ToLower(query)

	g.cacheLock.RLock()
	entry, ok := g.cache[cacheKey]
	g.cacheLock.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.point
	}

	point := g.lookup(ctx, query)

	g.cacheLock.Lock()
	g.cache[cacheKey] = cacheEntry{point: point, expiresAt: time.Now().Add(g.ttl)}
	g.lookupCount++
	g.cacheLock.Unlock()

	return point
}

func (g *Geocoder) lookup(ctx context.Context, query string) *orb.Point {
	params := url.Values{
		"q":     []string{query},
		"limit": []string{"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search/", nil)
	if err != nil {
		g.logger.WithError(err).WithField("query", query).Error("Failed to create geocoding request")
		return nil
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "ImmoPilot Market Analyzer/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("query", query).Warn("Geocoding request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"query":  query,
			"status": resp.StatusCode,
		}).Warn("Geocoding service returned non-success status")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.WithError(err).WithField("query", query).Warn("Failed to read geocoding response")
		return nil
	}

	var result banResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("query", query).Warn("Failed to parse geocoding response")
		return nil
	}

	if len(result.Features) == 0 || len(result.Features[0].Geometry.Coordinates) != 2 {
		g.logger.WithField("query", query).Debug("No geocoding result")
		return nil
	}

	coords := result.Features[0].Geometry.Coordinates
	point := orb.Point{coords[0], coords[1]}

	g.logger.WithFields(logrus.Fields{
		"query":     query,
		"label":     result.Features[0].Properties.Label,
		"latitude":  point.Lat(),
		"longitude": point.Lon(),
	}).Debug("Geocoded address")

	return &point
}

// LookupCount returns the number of lookups issued past the cache.
func (g *Geocoder) LookupCount() int64 {
	g.cacheLock.RLock()
	defer g.cacheLock.RUnlock()
	return g.lookupCount
}

// ClearCache drops all memoized results.
func (g *Geocoder) ClearCache() {
	g.cacheLock.Lock()
	defer g.cacheLock.Unlock()
	g.cache = make(map[string]cacheEntry)
}

// enrichAddress appends the postal code and city to the raw address when
// they are not already part of it, to disambiguate the lookup.
func enrichAddress(address, postalCode, city string) string {
	query := strings.TrimSpace(address)
	lower := strings.ToLower(query)
	if postalCode != "" && !strings.Contains(query, postalCode) {
		query = fmt.Sprintf("%s %s", query, postalCode)
	}
	if city != "" && !strings.Contains(lower, strings.ToLower(city)) {
		query = fmt.Sprintf("%s %s", query, city)
	}
	return query
}

// DistanceMeters returns the great-circle distance between two points.
// It is symmetric and zero only for identical points.
func DistanceMeters(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}
