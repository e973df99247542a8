package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/learning"
)

// resolverStore serves canned learned entries and records what the
// ladder persists
type resolverStore struct {
	learning.Unavailable

	coords    map[string]*learning.Coordinates
	locations map[string]*learning.LocationPayload

	savedCoords    map[string]*learning.Coordinates
	savedLocations map[string]*learning.LocationPayload
}

func newResolverStore() *resolverStore {
	return &resolverStore{
		coords:         make(map[string]*learning.Coordinates),
		locations:      make(map[string]*learning.LocationPayload),
		savedCoords:    make(map[string]*learning.Coordinates),
		savedLocations: make(map[string]*learning.LocationPayload),
	}
}

func (s *resolverStore) GetCoords(_ context.Context, pincode string) (*learning.Coordinates, bool) {
	c, ok := s.coords[pincode]
	return c, ok
}

func (s *resolverStore) SaveCoords(_ context.Context, pincode string, lat, lon float64, source, name string) bool {
	s.savedCoords[pincode] = &learning.Coordinates{
		Pincode: pincode, Latitude: lat, Longitude: lon, Source: source, LocationName: name,
	}
	return true
}

func (s *resolverStore) GetLocation(_ context.Context, pincode string) (*learning.LocationPayload, bool) {
	p, ok := s.locations[pincode]
	return p, ok
}

func (s *resolverStore) SaveLocation(_ context.Context, pincode string, payload *learning.LocationPayload) bool {
	s.savedLocations[pincode] = payload
	return true
}

func noSleep(time.Duration) {}

func TestResolverStaticPincode(t *testing.T) {
	resolver := NewResolver(ResolverOptions{Store: newResolverStore()})

	res, _ := resolver.Resolve(context.Background(), Hint{Pincode: "411001"})

	assert.Equal(t, 18.5204, res.Latitude)
	assert.Equal(t, 73.8567, res.Longitude)
	assert.Equal(t, LevelStaticPincode, res.FallbackLevel)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, "pincode_411001", res.Source)
}

func TestResolverLearnedPincode(t *testing.T) {
	store := newResolverStore()
	store.coords["533101"] = &learning.Coordinates{
		Pincode: "533101", Latitude: 17.0005, Longitude: 81.8040, Source: "nominatim_geocoded",
	}
	store.locations["533101"] = &learning.LocationPayload{
		Pincode: "533101", State: "Andhra Pradesh", District: "East Godavari",
	}
	resolver := NewResolver(ResolverOptions{Store: store})

	res, hint := resolver.Resolve(context.Background(), Hint{Pincode: "533101"})

	assert.Equal(t, LevelLearnedPincode, res.FallbackLevel)
	assert.Equal(t, 17.0005, res.Latitude)
	assert.Equal(t, 0.85, res.Confidence)

	// The stored location payload fills in missing hint fields
	assert.Equal(t, "Andhra Pradesh", hint.State)
	assert.Equal(t, "East Godavari", hint.District)
}

func TestResolverLiveLadder(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"Status": "Success",
			"PostOffice": [{
				"Name": "Berhampur H.O",
				"State": "Odisha",
				"District": "Ganjam",
				"BranchType": "Head Post Office",
				"DeliveryStatus": "Delivery"
			}]
		}]`))
	}))
	defer directory.Close()

	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat": "19.3150", "lon": "84.7941", "display_name": "Berhampur, Odisha"}]`))
	}))
	defer geocoder.Close()

	indiaPost := NewIndiaPostClient(directory.Client(), nil)
	indiaPost.SetBaseURL(directory.URL + "/")
	geo := NewGeocodeClient(geocoder.Client(), nil, noSleep)
	geo.SetBaseURL(geocoder.URL)

	store := newResolverStore()
	resolver := NewResolver(ResolverOptions{Store: store, IndiaPost: indiaPost, Geocoder: geo})

	res, hint := resolver.Resolve(context.Background(), Hint{Pincode: "760001"})

	assert.Equal(t, LevelLive, res.FallbackLevel)
	assert.Equal(t, 19.3150, res.Latitude)
	assert.Equal(t, 84.7941, res.Longitude)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, "india_post_pincode_760001", res.Source)

	assert.Equal(t, "Odisha", hint.State)
	assert.Equal(t, "Ganjam", hint.District)

	// Both the directory payload and the geocoded coordinates are learned
	saved, ok := store.savedLocations["760001"]
	require.True(t, ok)
	assert.Equal(t, "Ganjam", saved.District)
	assert.Equal(t, "india_post_api", saved.Source)

	coords, ok := store.savedCoords["760001"]
	require.True(t, ok)
	assert.Equal(t, 19.3150, coords.Latitude)
	assert.Equal(t, "nominatim_for_india_post", coords.Source)
	assert.Equal(t, "Berhampur H.O, Ganjam", coords.LocationName)
}

func TestResolverDirectoryStateWhenGeocodeFails(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"Status": "Success",
			"PostOffice": [{"Name": "Sambalpur H.O", "State": "Odisha", "District": "Sambalpur"}]
		}]`))
	}))
	defer directory.Close()

	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer geocoder.Close()

	indiaPost := NewIndiaPostClient(directory.Client(), nil)
	indiaPost.SetBaseURL(directory.URL + "/")
	geo := NewGeocodeClient(geocoder.Client(), nil, noSleep)
	geo.SetBaseURL(geocoder.URL)

	resolver := NewResolver(ResolverOptions{Store: newResolverStore(), IndiaPost: indiaPost, Geocoder: geo})

	res, _ := resolver.Resolve(context.Background(), Hint{Pincode: "768001"})

	assert.Equal(t, LevelStaticState, res.FallbackLevel)
	assert.Equal(t, 20.9517, res.Latitude)
	assert.Equal(t, 0.6, res.Confidence)
	assert.Equal(t, "india_post_state_odisha", res.Source)
}

func TestResolverUnknownPincodeFallsToState(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Status": "Error", "Message": "No records found"}]`))
	}))
	defer directory.Close()

	indiaPost := NewIndiaPostClient(directory.Client(), nil)
	indiaPost.SetBaseURL(directory.URL + "/")

	resolver := NewResolver(ResolverOptions{Store: newResolverStore(), IndiaPost: indiaPost})

	res, _ := resolver.Resolve(context.Background(), Hint{Pincode: "000000", State: "Punjab"})

	assert.Equal(t, LevelStaticState, res.FallbackLevel)
	assert.Equal(t, 31.1471, res.Latitude)
	assert.Equal(t, "state_punjab", res.Source)
}

func TestResolverStateOnly(t *testing.T) {
	resolver := NewResolver(ResolverOptions{Store: newResolverStore()})

	res, _ := resolver.Resolve(context.Background(), Hint{State: "Tamil Nadu"})

	assert.Equal(t, LevelStaticState, res.FallbackLevel)
	assert.Equal(t, 11.1271, res.Latitude)
	assert.Equal(t, 0.6, res.Confidence)
}

func TestResolverDefault(t *testing.T) {
	resolver := NewResolver(ResolverOptions{Store: newResolverStore()})

	res, _ := resolver.Resolve(context.Background(), Hint{})

	assert.Equal(t, LevelDefault, res.FallbackLevel)
	assert.Equal(t, 20.5937, res.Latitude)
	assert.Equal(t, 78.9629, res.Longitude)
	assert.Equal(t, 0.3, res.Confidence)
	assert.Equal(t, "default_india", res.Source)
}

func TestResolverNoLiveClientsDegrades(t *testing.T) {
	// Unknown pincode with no directory client configured: straight to
	// the state fallback
	resolver := NewResolver(ResolverOptions{Store: newResolverStore()})

	res, _ := resolver.Resolve(context.Background(), Hint{Pincode: "999999", State: "Kerala"})

	assert.Equal(t, LevelStaticState, res.FallbackLevel)
	assert.Equal(t, 10.8505, res.Latitude)
}

func TestIndiaPostClientErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewIndiaPostClient(srv.Client(), nil)
		client.SetBaseURL(srv.URL + "/")

		_, err := client.Fetch(context.Background(), "411001")
		assert.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		client := NewIndiaPostClient(srv.Client(), nil)
		client.SetBaseURL(srv.URL + "/")

		_, err := client.Fetch(context.Background(), "411001")
		assert.Error(t, err)
	})
}

func TestGeocodeClientParsesCoordinates(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`[{"lat": "26.9124", "lon": "75.7873", "display_name": "Jaipur"}]`))
	}))
	defer srv.Close()

	client := NewGeocodeClient(srv.Client(), nil, noSleep)
	client.SetBaseURL(srv.URL)

	result, err := client.Geocode(context.Background(), "302001")
	require.NoError(t, err)
	assert.Equal(t, 26.9124, result.Latitude)
	assert.Equal(t, 75.7873, result.Longitude)
	assert.Equal(t, "nominatim_geocoded", result.Source)
	assert.Equal(t, "302001, India", gotQuery)
}
