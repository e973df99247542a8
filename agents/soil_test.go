package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/learning"
)

// fakeStore records writes and serves canned reads for agent tests
type fakeStore struct {
	learning.Unavailable

	soilProfiles map[string]*learning.SoilProfile
	savedSoil    map[string]*learning.SoilProfile
	savedObs     []savedObservation
}

type savedObservation struct {
	Region, Season string
	TempMin        float64
	Rainfall       float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		soilProfiles: make(map[string]*learning.SoilProfile),
		savedSoil:    make(map[string]*learning.SoilProfile),
	}
}

func (f *fakeStore) GetSoilProfile(_ context.Context, region string) (*learning.SoilProfile, bool) {
	p, ok := f.soilProfiles[region]
	return p, ok
}

func (f *fakeStore) SaveSoilProfile(_ context.Context, region string, profile *learning.SoilProfile, source string) bool {
	profile.Source = source
	f.savedSoil[region] = profile
	return true
}

func (f *fakeStore) SaveWeatherObservation(_ context.Context, region, season string, tempMin, tempMax, rainfall, humidity float64, source string) bool {
	f.savedObs = append(f.savedObs, savedObservation{
		Region: region, Season: season, TempMin: tempMin, Rainfall: rainfall,
	})
	return true
}

func TestSoilAgentExtractsTypeAndPH(t *testing.T) {
	agent := NewSoilAgent(SoilAgentOptions{Store: newFakeStore()})

	result := agent.Analyze(context.Background(),
		"My soil is clay and ph is 5.2, what should I do?",
		&Context{State: "Punjab", IrrigationAvailable: true})

	require.NotNil(t, result)
	assert.Equal(t, "clay", result.SoilType)
	assert.Equal(t, 5.2, result.PHLevel)
	assert.Equal(t, FreshnessUserProvided, result.DataFreshness)
	assert.Contains(t, result.DataSources, "user_query")
	assert.Contains(t, result.DataSources, "user_query_ph")

	assert.Contains(t, result.Constraints, "Acidic soil (pH 5.2) - may require liming")
	assert.Contains(t, result.Constraints, "Poor drainage - risk of waterlogging")
	assert.Contains(t, result.Recommendations, "Apply agricultural lime to raise pH")
}

func TestSoilAgentHealthScoring(t *testing.T) {
	agent := NewSoilAgent(SoilAgentOptions{Store: newFakeStore()})

	// Punjab profile: loam pH 7.8 OM 0.6. Query overrides type and pH.
	result := agent.Analyze(context.Background(),
		"clay soil with ph 5.2",
		&Context{State: "Punjab", IrrigationAvailable: true})

	// base 5 + clay 1, pH outside both good bands, OM 0.6 adds 1
	assert.Equal(t, 7, result.HealthScore)
	assert.InDelta(t, 0.7, result.HealthConfidence, 0.001)
}

func TestSoilAgentNPKExtraction(t *testing.T) {
	agent := NewSoilAgent(SoilAgentOptions{Store: newFakeStore()})

	tests := []struct {
		name    string
		query   string
		n, p, k float64
	}{
		{"composite ratio", "my field has npk 40-25-30", 40, 25, 30},
		{"nitrogen deficiency floor", "soil is nitrogen deficient", 10, 0, 0},
		{"rich nitrogen floor", "high nitrogen content here", 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := agent.Analyze(context.Background(), tt.query, &Context{IrrigationAvailable: true})
			assert.Equal(t, tt.n, result.NPK.Nitrogen)
			assert.Equal(t, tt.p, result.NPK.Phosphorus)
			assert.Equal(t, tt.k, result.NPK.Potassium)
			assert.Contains(t, result.DataSources, "user_query_npk")
			assert.Equal(t, FreshnessUserProvided, result.DataFreshness)
		})
	}
}

func TestSoilAgentRejectsImpossiblePH(t *testing.T) {
	agent := NewSoilAgent(SoilAgentOptions{Store: newFakeStore()})

	result := agent.Analyze(context.Background(), "ph is 22", &Context{State: "Punjab", IrrigationAvailable: true})

	// Falls back to the regional profile value
	assert.Equal(t, 7.8, result.PHLevel)
	assert.NotContains(t, result.DataSources, "user_query_ph")
}

func TestSoilAgentLocationFallbackChain(t *testing.T) {
	store := newFakeStore()
	store.soilProfiles["nashik"] = &learning.SoilProfile{
		PrimarySoil: "black_cotton",
		PHRange:     [2]float64{7.0, 8.0},
		Confidence:  0.75,
		LearnedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	agent := NewSoilAgent(SoilAgentOptions{Store: store})

	t.Run("learned district wins", func(t *testing.T) {
		result := agent.Analyze(context.Background(), "which crop suits my farm",
			&Context{District: "Nashik", State: "Maharashtra", IrrigationAvailable: true})
		assert.Equal(t, "black_cotton", result.SoilType)
		assert.Equal(t, 7.5, result.PHLevel) // midpoint of learned range
		assert.Equal(t, "learned_district", result.Location.FallbackLevel)
	})

	t.Run("static state without learned data", func(t *testing.T) {
		result := agent.Analyze(context.Background(), "which crop suits my farm",
			&Context{State: "Rajasthan", IrrigationAvailable: true})
		assert.Equal(t, "sandy", result.SoilType)
		assert.Equal(t, "state", result.Location.FallbackLevel)
	})

	t.Run("default without any signal", func(t *testing.T) {
		result := agent.Analyze(context.Background(), "which crop suits my farm",
			&Context{IrrigationAvailable: true})
		assert.Equal(t, "loam", result.SoilType)
		assert.Equal(t, "default", result.Location.FallbackLevel)
	})
}

func TestSoilAgentLearnsFromUserQuery(t *testing.T) {
	store := newFakeStore()
	agent := NewSoilAgent(SoilAgentOptions{Store: store})

	agent.Analyze(context.Background(), "I have clay soil with ph 6.5",
		&Context{District: "Pune", State: "Maharashtra", IrrigationAvailable: true})

	saved, ok := store.savedSoil["pune"]
	require.True(t, ok, "profile should be learned for the district")
	assert.Equal(t, "clay", saved.PrimarySoil)
	assert.Equal(t, [2]float64{6.0, 7.0}, saved.PHRange)
	assert.Equal(t, 0.6, saved.Confidence)
	assert.Equal(t, "user_query_extracted", saved.Source)
}

func TestSoilAgentDoesNotLearnWithoutUserData(t *testing.T) {
	store := newFakeStore()
	agent := NewSoilAgent(SoilAgentOptions{Store: store})

	agent.Analyze(context.Background(), "what should I grow",
		&Context{District: "Pune", State: "Maharashtra", IrrigationAvailable: true})

	assert.Empty(t, store.savedSoil)
}

func TestSoilAgentMicronutrients(t *testing.T) {
	agent := NewSoilAgent(SoilAgentOptions{Store: newFakeStore()})

	result := agent.Analyze(context.Background(),
		"zinc is 0.8 and my field is iron deficient",
		&Context{IrrigationAvailable: true})

	zinc, ok := result.Micronutrients["zinc"]
	require.True(t, ok)
	assert.Equal(t, 0.8, zinc.Value)
	assert.Equal(t, "ppm", zinc.Unit)
	assert.Equal(t, "user_query", zinc.Source)

	iron, ok := result.Micronutrients["iron"]
	require.True(t, ok)
	assert.Equal(t, "deficient", iron.Status)
	assert.Equal(t, "user_indication", iron.Source)
}

func TestSoilAgentNeverReturnsNil(t *testing.T) {
	agent := NewSoilAgent(SoilAgentOptions{})

	result := agent.Analyze(context.Background(), "", nil)

	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.HealthScore, 1)
	assert.LessOrEqual(t, result.HealthScore, 10)
}
