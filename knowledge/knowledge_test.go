package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionKey(t *testing.T) {
	tests := []struct{ in, out string }{
		{"Punjab", "punjab"},
		{"Tamil Nadu", "tamil_nadu"},
		{"  Uttar Pradesh  ", "uttar_pradesh"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, RegionKey(tt.in), "input %q", tt.in)
	}
}

func TestSeasonForMonth(t *testing.T) {
	seasons := map[int]string{
		1: "rabi", 2: "rabi", 3: "rabi",
		4: "zaid", 5: "zaid",
		6: "kharif", 7: "kharif", 8: "kharif", 9: "kharif", 10: "kharif",
		11: "rabi", 12: "rabi",
	}
	for month, want := range seasons {
		assert.Equal(t, want, SeasonForMonth(month), "month %d", month)
	}
}

func TestCropDatabaseConsistency(t *testing.T) {
	for name, crop := range Crops {
		assert.Greater(t, crop.ExpectedYieldKgHa, 0.0, "%s yield", name)
		assert.Greater(t, crop.InputCosts.Total(), 0.0, "%s costs", name)
		assert.LessOrEqual(t, crop.MarketPriceRange.Min, crop.MarketPriceRange.Max, "%s price band", name)
		assert.NotEmpty(t, crop.SuitableSoils, "%s soils", name)
		assert.NotEmpty(t, crop.Varieties, "%s varieties", name)
		assert.Greater(t, crop.DurationMonths, 0, "%s duration", name)

		// Every database crop must be scoreable against weather
		_, ok := CropWeatherRequirements[name]
		assert.True(t, ok, "%s missing weather requirements", name)

		for _, soil := range crop.SuitableSoils {
			_, ok := SoilTypeCharacteristics[soil]
			assert.True(t, ok, "%s references unknown soil %s", name, soil)
		}
	}
}

func TestCropWeatherOrderCoversRequirements(t *testing.T) {
	assert.Len(t, CropWeatherOrder, len(CropWeatherRequirements))
	for _, name := range CropWeatherOrder {
		_, ok := CropWeatherRequirements[name]
		assert.True(t, ok, "%s ordered but has no requirements", name)
	}
}

func TestCoordinateRanges(t *testing.T) {
	inIndia := func(c Coordinates) bool {
		return c.Latitude > 6 && c.Latitude < 37 && c.Longitude > 68 && c.Longitude < 98
	}

	assert.True(t, inIndia(DefaultCoordinates))
	for pincode, coords := range PincodeCoordinates {
		assert.True(t, inIndia(coords), "pincode %s out of range", pincode)
		assert.Len(t, pincode, 6, "pincode %s malformed", pincode)
	}
	for state, coords := range StateCoordinates {
		assert.True(t, inIndia(coords), "state %s out of range", state)
	}
}

func TestRegionalProfilesHaveDefaults(t *testing.T) {
	_, ok := RegionalSoilProfiles["default"]
	assert.True(t, ok)

	seasons, ok := RegionalWeatherProfiles["default"]
	require.True(t, ok)
	for _, season := range SeasonOrder {
		profile, ok := seasons[season]
		require.True(t, ok, "default profile missing season %s", season)
		assert.Less(t, profile.TempMin, profile.TempMax, "season %s", season)
	}

	// Every regional weather profile carries all three seasons
	for region, seasons := range RegionalWeatherProfiles {
		for _, season := range SeasonOrder {
			_, ok := seasons[season]
			assert.True(t, ok, "region %s missing season %s", region, season)
		}
	}
}

func TestSoilTypeOrderCoversKeywords(t *testing.T) {
	assert.Len(t, SoilTypeOrder, len(SoilTypeKeywords))
	for _, soil := range SoilTypeOrder {
		assert.NotEmpty(t, SoilTypeKeywords[soil], "%s has no keywords", soil)
		_, ok := SoilTypeCharacteristics[soil]
		assert.True(t, ok, "%s has no characteristics", soil)
	}
}

func TestSchemeDetails(t *testing.T) {
	rice := Crops["rice"]

	t.Run("msp interpolation", func(t *testing.T) {
		scheme := SchemeDetails("Paddy Procurement at MSP", rice)
		assert.Equal(t, "Paddy MSP Procurement", scheme.Name)
		assert.Equal(t, "Guaranteed MSP of ₹2300/quintal", scheme.Benefit)
	})

	t.Run("crop without msp", func(t *testing.T) {
		scheme := SchemeDetails("NAFED Procurement", Crops["potato"])
		assert.Contains(t, scheme.Benefit, "N/A")
	})

	t.Run("unknown scheme key", func(t *testing.T) {
		scheme := SchemeDetails("State Horticulture Mission", nil)
		assert.Equal(t, "State Horticulture Mission", scheme.Name)
		assert.Equal(t, "Various benefits", scheme.Benefit)
	})

	t.Run("every database scheme resolves", func(t *testing.T) {
		for name, crop := range Crops {
			for _, key := range crop.GovernmentSchemes {
				scheme := SchemeDetails(key, crop)
				assert.NotEmpty(t, scheme.Name, "%s scheme %s", name, key)
				assert.NotEmpty(t, scheme.Benefit, "%s scheme %s", name, key)
			}
		}
	})
}

func TestCropDuration(t *testing.T) {
	assert.Equal(t, 4, CropDuration("rice"))
	assert.Equal(t, 12, CropDuration("sugarcane"))
	assert.Equal(t, 3, CropDuration("millet"))
	assert.Equal(t, 4, CropDuration("unknown_crop"))
}

func TestIntentPatternsWellFormed(t *testing.T) {
	assert.Len(t, IntentOrder, len(IntentPatterns))
	for _, intent := range IntentOrder {
		pattern, ok := IntentPatterns[intent]
		require.True(t, ok, "%s ordered but has no pattern", intent)
		assert.NotEmpty(t, pattern.Keywords, "%s keywords", intent)
		assert.Greater(t, pattern.Weight, 0.0, "%s weight", intent)
	}
}

func TestLowInputAlternativesCoverSeasons(t *testing.T) {
	for _, season := range SeasonOrder {
		alts, ok := LowInputAlternatives[season]
		require.True(t, ok, "season %s", season)
		assert.NotEmpty(t, alts)
	}
}
