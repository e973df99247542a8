package orchestration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/agents"
	"github.com/krishimitra/advisor/core"
)

// The orchestrator under test has no Redis, no weather API, no
// retrieval: everything degrades and the result must still be usable.
func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(OrchestratorOptions{
		Now: func() time.Time { return time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC) },
	})
}

func TestProcessFullPipeline(t *testing.T) {
	orch := newTestOrchestrator()

	result := orch.Process(context.Background(), Request{
		Query:     "Which crop should I plant on my clay soil in kharif?",
		SessionID: "farmer-1",
		Context:   agents.Context{State: "Punjab", IrrigationAvailable: true},
	})

	require.NotNil(t, result)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "en", result.Language)
	require.NotNil(t, result.Soil)
	require.NotNil(t, result.Weather)
	require.NotNil(t, result.Plan)
	assert.NotEmpty(t, result.Plan.RecommendedCrops)

	assert.GreaterOrEqual(t, result.OverallConfidence, 0.1)
	assert.LessOrEqual(t, result.OverallConfidence, 1.0)

	assert.Contains(t, result.Prompt, "User Query:")
	assert.Contains(t, result.Prompt, "SOIL ANALYSIS:")
	assert.Contains(t, result.Prompt, "WEATHER ANALYSIS:")
	assert.Contains(t, result.Prompt, "CROP RECOMMENDATIONS:")
	assert.True(t, strings.HasSuffix(result.Prompt, "Response:"))

	assert.Equal(t, result.Intent.RequiredAgents, result.AgentsInvoked)
	assert.NotEmpty(t, result.AgentsInvoked)
	assert.Equal(t, int64(0), result.ProcessingMS, "fixed clock, no elapsed time")
}

func TestProcessWeatherOnlyQuery(t *testing.T) {
	orch := newTestOrchestrator()

	result := orch.Process(context.Background(), Request{
		Query:   "how much rainfall in monsoon",
		Context: agents.Context{State: "Kerala", IrrigationAvailable: true},
	})

	assert.Nil(t, result.Soil, "soil agent not required")
	require.NotNil(t, result.Weather)
	assert.Nil(t, result.Plan, "crop planning not required")
	assert.NotContains(t, result.Prompt, "SOIL ANALYSIS:")
	assert.Contains(t, result.Prompt, "WEATHER ANALYSIS:")
}

func TestProcessNeverFails(t *testing.T) {
	orch := newTestOrchestrator()

	for _, query := range []string{"", "xyz", strings.Repeat("soil ", 500)} {
		result := orch.Process(context.Background(), Request{Query: query})
		require.NotNil(t, result, "query %q", query)
		assert.GreaterOrEqual(t, result.OverallConfidence, 0.1)
		assert.NotEmpty(t, result.Prompt)
	}
}

// crashingTelemetry fails the pipeline before any agent runs
type crashingTelemetry struct{}

func (crashingTelemetry) StartSpan(context.Context, string) (context.Context, core.Span) {
	panic("tracer exploded")
}

func (crashingTelemetry) RecordMetric(string, float64, map[string]string) {}

func TestProcessSurvivesPipelineFailure(t *testing.T) {
	orch := NewOrchestrator(OrchestratorOptions{
		Telemetry: crashingTelemetry{},
		Now:       func() time.Time { return time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC) },
	})

	result := orch.Process(context.Background(), Request{Query: "which crop for kharif"})

	require.NotNil(t, result)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "which crop for kharif", result.Query)
	assert.Equal(t, 0.0, result.OverallConfidence)
	assert.Empty(t, result.AgentsInvoked)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "orchestrator:")
	assert.Equal(t, "unknown", result.DataFreshness["overall"])
	assert.Contains(t, result.Prompt, "User Query: which crop for kharif")
	assert.True(t, strings.HasSuffix(result.Prompt, "Response:"))
}

func TestProcessPromptIsDeterministic(t *testing.T) {
	orch := newTestOrchestrator()
	req := Request{
		Query:   "best rabi crop for loam soil",
		Context: agents.Context{State: "Punjab", IrrigationAvailable: true},
	}

	first := orch.Process(context.Background(), req)
	second := orch.Process(context.Background(), req)

	assert.Equal(t, first.Prompt, second.Prompt)
	assert.Equal(t, first.OverallConfidence, second.OverallConfidence)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestProcessLowConfidenceDisclaimer(t *testing.T) {
	orch := newTestOrchestrator()

	// No location, no stored data: confidence stays low
	result := orch.Process(context.Background(), Request{Query: "hello"})

	if result.OverallConfidence < 0.5 {
		assert.Contains(t, result.Prompt, "recommendations are estimates")
	} else {
		assert.NotContains(t, result.Prompt, "recommendations are estimates")
	}
}

func TestProcessLanguageNormalization(t *testing.T) {
	orch := newTestOrchestrator()

	result := orch.Process(context.Background(), Request{
		Query:    "soil check",
		Language: "Hindi",
	})
	assert.Equal(t, "hi", result.Language)
}

func TestProcessFreshnessSummary(t *testing.T) {
	orch := newTestOrchestrator()

	result := orch.Process(context.Background(), Request{
		Query:   "crop plan for kharif",
		Context: agents.Context{State: "Punjab", IrrigationAvailable: true},
	})

	require.NotNil(t, result.DataFreshness)
	assert.Contains(t, result.DataFreshness, "soil_data")
	assert.Contains(t, result.DataFreshness, "weather_data")
	assert.Equal(t, "2024_msp_data", result.DataFreshness["crop_economics"])
	assert.Equal(t, "estimated_from_historical", result.DataFreshness["overall"])
}

func TestProcessDataSourcesDeduplicated(t *testing.T) {
	orch := newTestOrchestrator()

	result := orch.Process(context.Background(), Request{
		Query:   "crop plan for kharif season",
		Context: agents.Context{State: "Punjab", IrrigationAvailable: true},
	})

	seen := make(map[string]bool)
	for _, s := range result.DataSources {
		assert.False(t, seen[s], "duplicate source %s", s)
		seen[s] = true
	}
}

func TestOverallConfidencePenalizesErrors(t *testing.T) {
	intent := IntentAnalysis{Confidence: 0.8}
	soil := &agents.SoilResult{HealthConfidence: 0.8}
	weather := &agents.WeatherResult{SuitabilityConfidence: 0.8}
	plan := &agents.CropPlan{OverallConfidence: 0.8}

	clean := overallConfidence(intent, soil, weather, plan, true, true, true, 0)
	withErrors := overallConfidence(intent, soil, weather, plan, true, true, true, 2)

	assert.InDelta(t, 0.8, clean, 0.001)
	assert.InDelta(t, 0.6, withErrors, 0.001)
}

// A surrogate standing in for an agent that never ran must not drag
// the blend down: only invoked components carry weight.
func TestOverallConfidenceIgnoresSkippedAgents(t *testing.T) {
	intent := IntentAnalysis{Confidence: 0.6}
	soil := defaultSoilSurrogate()
	weather := &agents.WeatherResult{SuitabilityConfidence: 0.75}

	got := overallConfidence(intent, soil, weather, nil, false, true, false, 0)

	// (0.15*0.6 + 0.25*0.75) / 0.40
	assert.InDelta(t, 0.69, got, 0.001)

	both := overallConfidence(intent, soil, weather, nil, true, true, false, 0)
	assert.Less(t, both, got, "surrogate soil weighs in only when soil ran")
}

func TestProcessWeatherOnlyConfidence(t *testing.T) {
	orch := newTestOrchestrator()

	result := orch.Process(context.Background(), Request{
		Query:   "how much rainfall in monsoon",
		Context: agents.Context{State: "Kerala", IrrigationAvailable: true},
	})

	require.NotNil(t, result.Weather)
	require.Nil(t, result.Soil)
	want := overallConfidence(result.Intent, defaultSoilSurrogate(), result.Weather, nil, false, true, false, len(result.Errors))
	assert.Equal(t, want, result.OverallConfidence)
}
