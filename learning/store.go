// Package learning provides the persistent store for self-learned data:
// pincode coordinates and location details, regional soil profiles, and
// weather observations. Entries use composite (partition, sort) keys and
// carry TTLs so stale data ages out on its own.
//
// The store is strictly best-effort. Every reader tolerates a miss and
// every writer tolerates a failure; the advisory pipeline never blocks
// on learning data.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krishimitra/advisor/core"
)

// Entry TTLs. Coordinates are geocoded and may drift, location details
// and soil profiles change slowly, weather observations age out after a
// year so the per-region series stays bounded.
const (
	CoordsTTL      = 365 * 24 * time.Hour
	LocationTTL    = 730 * 24 * time.Hour
	SoilTTL        = 730 * 24 * time.Hour
	ObservationTTL = 365 * 24 * time.Hour
)

// Coordinates is a learned latitude/longitude pair with provenance
type Coordinates struct {
	Pincode      string  `json:"pincode"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Source       string  `json:"source"`
	LocationName string  `json:"location_name,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// PostOffice is one post office serving a pincode
type PostOffice struct {
	Name           string `json:"name"`
	BranchType     string `json:"branch_type"`
	DeliveryStatus string `json:"delivery_status"`
	Block          string `json:"block"`
}

// LocationPayload is the full location detail learned for a pincode
type LocationPayload struct {
	Pincode         string       `json:"pincode"`
	State           string       `json:"state"`
	District        string       `json:"district"`
	Division        string       `json:"division"`
	Region          string       `json:"region"`
	Circle          string       `json:"circle"`
	Block           string       `json:"block"`
	BranchType      string       `json:"branch_type"`
	DeliveryStatus  string       `json:"delivery_status"`
	PostOffices     []PostOffice `json:"post_offices"`
	PrimaryLocation string       `json:"primary_location"`
	Latitude        float64      `json:"latitude,omitempty"`
	Longitude       float64      `json:"longitude,omitempty"`
	Source          string       `json:"source"`
}

// SoilProfile is a learned regional soil profile
type SoilProfile struct {
	PrimarySoil   string     `json:"primary_soil"`
	PHRange       [2]float64 `json:"ph_range"`
	Confidence    float64    `json:"confidence"`
	OrganicMatter float64    `json:"organic_matter,omitempty"`
	Nitrogen      float64    `json:"nitrogen,omitempty"`
	Phosphorus    float64    `json:"phosphorus,omitempty"`
	Potassium     float64    `json:"potassium,omitempty"`
	Source        string     `json:"source"`
	LearnedAt     string     `json:"learned_at"`
}

// PH returns the midpoint of the learned pH range
func (p *SoilProfile) PH() float64 {
	return (p.PHRange[0] + p.PHRange[1]) / 2
}

// WeatherProfile is a learned regional weather profile
type WeatherProfile struct {
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Rainfall float64 `json:"rainfall"`
	Humidity float64 `json:"humidity"`
	Source   string  `json:"source"`
}

// RateLimitRecord is the stored state of one fixed rate-limit window
type RateLimitRecord struct {
	Count       int   `json:"request_count"`
	WindowStart int64 `json:"window_start"`
	LastRequest int64 `json:"last_request"`
}

// Stats counts learned entries by class, best-effort
type Stats struct {
	Pincodes            int  `json:"pincodes"`
	SoilProfiles        int  `json:"soil_profiles"`
	WeatherObservations int  `json:"weather_observations"`
	StoreAvailable      bool `json:"store_available"`
}

// Store is the learning persistence contract. Reads return (nil, false)
// and writes return false when the backing store is unavailable; callers
// must treat both as a cache miss and continue.
type Store interface {
	GetCoords(ctx context.Context, pincode string) (*Coordinates, bool)
	SaveCoords(ctx context.Context, pincode string, lat, lon float64, source, name string) bool
	GetLocation(ctx context.Context, pincode string) (*LocationPayload, bool)
	SaveLocation(ctx context.Context, pincode string, payload *LocationPayload) bool
	GetSoilProfile(ctx context.Context, region string) (*SoilProfile, bool)
	SaveSoilProfile(ctx context.Context, region string, profile *SoilProfile, source string) bool
	GetWeatherProfile(ctx context.Context, region string) (*WeatherProfile, bool)
	SaveWeatherObservation(ctx context.Context, region, season string, tempMin, tempMax, rainfall, humidity float64, source string) bool
	RateLimitRead(ctx context.Context, pk string) (*RateLimitRecord, bool)
	RateLimitWrite(ctx context.Context, pk string, rec *RateLimitRecord, ttl time.Duration) bool
}

// RedisStore implements Store on Redis. Learning entries live in one DB,
// rate-limit windows in another, so a flush of either cannot touch the
// other. Composite keys are encoded "pk|sk".
type RedisStore struct {
	data      *core.RedisClient
	ratelimit *core.RedisClient
	logger    core.Logger
	now       func() time.Time
}

// RedisStoreOptions configures a RedisStore
type RedisStoreOptions struct {
	Data      *core.RedisClient // learning entries (DB 0)
	RateLimit *core.RedisClient // rate-limit windows (DB 1); optional
	Logger    core.Logger
	Now       func() time.Time // injectable clock; defaults to time.Now
}

// NewRedisStore creates a Redis-backed learning store
func NewRedisStore(opts RedisStoreOptions) *RedisStore {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RedisStore{
		data:      opts.Data,
		ratelimit: opts.RateLimit,
		logger:    logger,
		now:       now,
	}
}

func compositeKey(pk, sk string) string {
	return pk + "|" + sk
}

func (s *RedisStore) getJSON(ctx context.Context, client *core.RedisClient, pk, sk string, out interface{}) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, compositeKey(pk, sk))
	if err != nil {
		if !core.IsNil(err) {
			s.logger.Warn("Learning store read failed", map[string]interface{}{
				"operation": "get",
				"pk":        pk,
				"sk":        sk,
				"error":     err,
			})
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Warn("Learning store entry corrupt", map[string]interface{}{
			"pk":    pk,
			"sk":    sk,
			"error": err,
		})
		return false
	}
	return true
}

func (s *RedisStore) setJSON(ctx context.Context, client *core.RedisClient, pk, sk string, value interface{}, ttl time.Duration) bool {
	if client == nil {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Learning store marshal failed", map[string]interface{}{
			"pk":    pk,
			"sk":    sk,
			"error": err,
		})
		return false
	}
	if err := client.Set(ctx, compositeKey(pk, sk), raw, ttl); err != nil {
		s.logger.Warn("Learning store write failed", map[string]interface{}{
			"operation": "set",
			"pk":        pk,
			"sk":        sk,
			"error":     err,
		})
		return false
	}
	return true
}

// GetCoords returns learned coordinates for a pincode
func (s *RedisStore) GetCoords(ctx context.Context, pincode string) (*Coordinates, bool) {
	var c Coordinates
	if !s.getJSON(ctx, s.data, "PINCODE#"+pincode, "COORDS", &c) {
		return nil, false
	}
	return &c, true
}

// SaveCoords persists geocoded coordinates for a pincode
func (s *RedisStore) SaveCoords(ctx context.Context, pincode string, lat, lon float64, source, name string) bool {
	c := Coordinates{
		Pincode:      pincode,
		Latitude:     lat,
		Longitude:    lon,
		Source:       source,
		LocationName: name,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	ok := s.setJSON(ctx, s.data, "PINCODE#"+pincode, "COORDS", &c, CoordsTTL)
	if ok {
		s.logger.Info("Learned pincode coordinates", map[string]interface{}{
			"pincode":   pincode,
			"latitude":  lat,
			"longitude": lon,
			"source":    source,
		})
	}
	return ok
}

// GetLocation returns learned location details for a pincode
func (s *RedisStore) GetLocation(ctx context.Context, pincode string) (*LocationPayload, bool) {
	var p LocationPayload
	if !s.getJSON(ctx, s.data, "PINCODE#"+pincode, "LOCATION", &p) {
		return nil, false
	}
	return &p, true
}

// SaveLocation persists the full location payload for a pincode
func (s *RedisStore) SaveLocation(ctx context.Context, pincode string, payload *LocationPayload) bool {
	if payload == nil {
		return false
	}
	ok := s.setJSON(ctx, s.data, "PINCODE#"+pincode, "LOCATION", payload, LocationTTL)
	if ok {
		s.logger.Info("Learned pincode location", map[string]interface{}{
			"pincode":  pincode,
			"district": payload.District,
			"state":    payload.State,
		})
	}
	return ok
}

// GetSoilProfile returns a learned soil profile for a region key
func (s *RedisStore) GetSoilProfile(ctx context.Context, region string) (*SoilProfile, bool) {
	var p SoilProfile
	if !s.getJSON(ctx, s.data, "SOIL#"+region, "PROFILE", &p) {
		return nil, false
	}
	return &p, true
}

// SaveSoilProfile persists a soil profile learned for a region
func (s *RedisStore) SaveSoilProfile(ctx context.Context, region string, profile *SoilProfile, source string) bool {
	if profile == nil {
		return false
	}
	profile.Source = source
	if profile.LearnedAt == "" {
		profile.LearnedAt = s.now().UTC().Format(time.RFC3339)
	}
	ok := s.setJSON(ctx, s.data, "SOIL#"+region, "PROFILE", profile, SoilTTL)
	if ok {
		s.logger.Info("Learned soil profile", map[string]interface{}{
			"region": region,
			"soil":   profile.PrimarySoil,
			"source": source,
		})
	}
	return ok
}

// GetWeatherProfile returns a learned weather profile for a region key
func (s *RedisStore) GetWeatherProfile(ctx context.Context, region string) (*WeatherProfile, bool) {
	var p WeatherProfile
	if !s.getJSON(ctx, s.data, "WEATHER#"+region, "PROFILE", &p) {
		return nil, false
	}
	return &p, true
}

// SaveWeatherObservation appends a seasonal weather observation keyed by
// month, building a time series regional profiles can later be derived
// from.
func (s *RedisStore) SaveWeatherObservation(ctx context.Context, region, season string, tempMin, tempMax, rainfall, humidity float64, source string) bool {
	obs := map[string]interface{}{
		"region":      region,
		"season":      season,
		"temp_min":    tempMin,
		"temp_max":    tempMax,
		"rainfall":    rainfall,
		"humidity":    humidity,
		"source":      source,
		"observed_at": s.now().UTC().Format(time.RFC3339),
	}
	sk := fmt.Sprintf("OBS#%s#%s", season, s.now().UTC().Format("2006-01"))
	ok := s.setJSON(ctx, s.data, "WEATHER#"+region, sk, obs, ObservationTTL)
	if ok {
		s.logger.Info("Saved weather observation", map[string]interface{}{
			"region": region,
			"season": season,
			"source": source,
		})
	}
	return ok
}

// RateLimitRead returns the stored rate-limit window for a partition key
func (s *RedisStore) RateLimitRead(ctx context.Context, pk string) (*RateLimitRecord, bool) {
	var r RateLimitRecord
	if !s.getJSON(ctx, s.ratelimit, "RATELIMIT#"+pk, "WINDOW", &r) {
		return nil, false
	}
	return &r, true
}

// RateLimitWrite persists a rate-limit window with TTL
func (s *RedisStore) RateLimitWrite(ctx context.Context, pk string, rec *RateLimitRecord, ttl time.Duration) bool {
	if rec == nil {
		return false
	}
	return s.setJSON(ctx, s.ratelimit, "RATELIMIT#"+pk, "WINDOW", rec, ttl)
}

// Stats counts learned entries by key class. KEYS is acceptable here
// because stats are an operator endpoint, not a request path.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	if s.data == nil {
		return Stats{}
	}
	stats := Stats{StoreAvailable: true}

	if keys, err := s.data.Keys(ctx, "PINCODE#*|COORDS"); err == nil {
		stats.Pincodes = len(keys)
	} else {
		stats.StoreAvailable = false
	}
	if keys, err := s.data.Keys(ctx, "SOIL#*|PROFILE"); err == nil {
		stats.SoilProfiles = len(keys)
	}
	if keys, err := s.data.Keys(ctx, "WEATHER#*|OBS#*"); err == nil {
		stats.WeatherObservations = len(keys)
	}
	return stats
}

// Unavailable is a Store with no backing storage: every read misses and
// every write is dropped. Used when Redis is not configured and in tests
// exercising degraded paths.
type Unavailable struct{}

func (Unavailable) GetCoords(context.Context, string) (*Coordinates, bool) { return nil, false }
func (Unavailable) SaveCoords(context.Context, string, float64, float64, string, string) bool {
	return false
}
func (Unavailable) GetLocation(context.Context, string) (*LocationPayload, bool) { return nil, false }
func (Unavailable) SaveLocation(context.Context, string, *LocationPayload) bool  { return false }
func (Unavailable) GetSoilProfile(context.Context, string) (*SoilProfile, bool)  { return nil, false }
func (Unavailable) SaveSoilProfile(context.Context, string, *SoilProfile, string) bool {
	return false
}
func (Unavailable) GetWeatherProfile(context.Context, string) (*WeatherProfile, bool) {
	return nil, false
}
func (Unavailable) SaveWeatherObservation(context.Context, string, string, float64, float64, float64, float64, string) bool {
	return false
}
func (Unavailable) RateLimitRead(context.Context, string) (*RateLimitRecord, bool) {
	return nil, false
}
func (Unavailable) RateLimitWrite(context.Context, string, *RateLimitRecord, time.Duration) bool {
	return false
}
