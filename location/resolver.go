package location

import (
	"context"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/knowledge"
	"github.com/krishimitra/advisor/learning"
)

// Fallback levels, from most to least specific. Confidence is monotone
// in specificity.
const (
	LevelLive            = "live"
	LevelLearnedPincode  = "learned_pincode"
	LevelLearnedDistrict = "learned_district"
	LevelLearnedState    = "learned_state"
	LevelStaticPincode   = "static_pincode"
	LevelStaticState     = "static_state"
	LevelDefault         = "default"
)

// Hint is the location signal arriving with a query
type Hint struct {
	Pincode  string
	District string
	State    string
}

// Resolution is the outcome of the fallback ladder
type Resolution struct {
	Latitude      float64
	Longitude     float64
	FallbackLevel string
	Confidence    float64
	Source        string
}

// Resolver walks the progressive fallback ladder: static pincode table,
// learned coordinates, live directory + geocoder lookup, static state
// centers, country default. Live lookups persist what they learn.
type Resolver struct {
	store     learning.Store
	indiaPost *IndiaPostClient
	geocoder  *GeocodeClient
	defaults  knowledge.Coordinates
	logger    core.Logger
}

// ResolverOptions configures a Resolver
type ResolverOptions struct {
	Store      learning.Store
	IndiaPost  *IndiaPostClient
	Geocoder   *GeocodeClient
	DefaultLat float64
	DefaultLon float64
	Logger     core.Logger
}

// NewResolver creates a location resolver. Nil store degrades to
// learning.Unavailable; nil clients disable the live step.
func NewResolver(opts ResolverOptions) *Resolver {
	store := opts.Store
	if store == nil {
		store = learning.Unavailable{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	defaults := knowledge.Coordinates{Latitude: opts.DefaultLat, Longitude: opts.DefaultLon}
	if defaults.Latitude == 0 && defaults.Longitude == 0 {
		defaults = knowledge.DefaultCoordinates
	}
	return &Resolver{
		store:     store,
		indiaPost: opts.IndiaPost,
		geocoder:  opts.Geocoder,
		defaults:  defaults,
		logger:    logger,
	}
}

// Resolve walks the ladder, stopping at the first success, and returns
// the resolution plus the hint enriched with any learned state/district.
// No step raises; external failures flow to the next rung.
func (r *Resolver) Resolve(ctx context.Context, hint Hint) (Resolution, Hint) {
	if hint.Pincode != "" {
		// Static table of well-known pincodes
		if coords, ok := knowledge.PincodeCoordinates[hint.Pincode]; ok {
			return Resolution{
				Latitude:      coords.Latitude,
				Longitude:     coords.Longitude,
				FallbackLevel: LevelStaticPincode,
				Confidence:    0.9,
				Source:        "pincode_" + hint.Pincode,
			}, hint
		}

		// Previously learned coordinates
		if learned, ok := r.store.GetCoords(ctx, hint.Pincode); ok {
			hint = r.enrichFromStore(ctx, hint)
			return Resolution{
				Latitude:      learned.Latitude,
				Longitude:     learned.Longitude,
				FallbackLevel: LevelLearnedPincode,
				Confidence:    0.85,
				Source:        "learned_pincode_" + hint.Pincode,
			}, hint
		}

		// Live lookup: directory for location details, geocoder for
		// coordinates. Both learned for next time.
		if res, enriched, ok := r.resolveLive(ctx, hint); ok {
			return res, enriched
		}
	}

	if state := knowledge.RegionKey(hint.State); state != "" {
		if coords, ok := knowledge.StateCoordinates[state]; ok {
			return Resolution{
				Latitude:      coords.Latitude,
				Longitude:     coords.Longitude,
				FallbackLevel: LevelStaticState,
				Confidence:    0.6,
				Source:        "state_" + state,
			}, hint
		}
	}

	return Resolution{
		Latitude:      r.defaults.Latitude,
		Longitude:     r.defaults.Longitude,
		FallbackLevel: LevelDefault,
		Confidence:    0.3,
		Source:        "default_india",
	}, hint
}

// resolveLive consults the India Post directory and the geocoder for an
// unknown pincode, persisting what it learns.
func (r *Resolver) resolveLive(ctx context.Context, hint Hint) (Resolution, Hint, bool) {
	if r.indiaPost == nil {
		return Resolution{}, hint, false
	}

	// A stored location payload saves the directory round trip
	payload, cached := r.store.GetLocation(ctx, hint.Pincode)
	if !cached {
		fetched, err := r.indiaPost.Fetch(ctx, hint.Pincode)
		if err != nil {
			r.logger.Warn("Live pincode lookup failed", map[string]interface{}{
				"operation": "resolver.resolveLive",
				"pincode":   hint.Pincode,
				"error":     err,
			})
			return Resolution{}, hint, false
		}
		payload = fetched
		r.store.SaveLocation(ctx, hint.Pincode, payload)
	}

	hint = enrichFromPayload(hint, payload)

	if payload.Latitude != 0 || payload.Longitude != 0 {
		return Resolution{
			Latitude:      payload.Latitude,
			Longitude:     payload.Longitude,
			FallbackLevel: LevelLearnedPincode,
			Confidence:    0.85,
			Source:        "learned_pincode_" + hint.Pincode,
		}, hint, true
	}

	if r.geocoder != nil {
		if geo, err := r.geocoder.Geocode(ctx, hint.Pincode); err == nil {
			r.store.SaveCoords(ctx, hint.Pincode, geo.Latitude, geo.Longitude,
				"nominatim_for_india_post", payload.PrimaryLocation+", "+payload.District)
			return Resolution{
				Latitude:      geo.Latitude,
				Longitude:     geo.Longitude,
				FallbackLevel: LevelLive,
				Confidence:    0.9,
				Source:        "india_post_pincode_" + hint.Pincode,
			}, hint, true
		}
	}

	// Geocoding failed but the directory told us the state
	if state := knowledge.RegionKey(payload.State); state != "" {
		if coords, ok := knowledge.StateCoordinates[state]; ok {
			return Resolution{
				Latitude:      coords.Latitude,
				Longitude:     coords.Longitude,
				FallbackLevel: LevelStaticState,
				Confidence:    0.6,
				Source:        "india_post_state_" + state,
			}, hint, true
		}
	}

	return Resolution{}, hint, false
}

// enrichFromStore fills missing state/district from a stored location
// payload without hitting the network.
func (r *Resolver) enrichFromStore(ctx context.Context, hint Hint) Hint {
	if hint.State != "" && hint.District != "" {
		return hint
	}
	if payload, ok := r.store.GetLocation(ctx, hint.Pincode); ok {
		hint = enrichFromPayload(hint, payload)
	}
	return hint
}

func enrichFromPayload(hint Hint, payload *learning.LocationPayload) Hint {
	if payload == nil {
		return hint
	}
	if hint.State == "" {
		hint.State = payload.State
	}
	if hint.District == "" {
		hint.District = payload.District
	}
	return hint
}
