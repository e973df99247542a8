package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krishimitra/advisor/agents"
	"github.com/krishimitra/advisor/core"
)

// Request is one advisory query with its session context
type Request struct {
	Query           string         `json:"query"`
	SessionID       string         `json:"session_id,omitempty"`
	Language        string         `json:"language,omitempty"`
	Context         agents.Context `json:"context"`
	PreviousQueries []string       `json:"previous_queries,omitempty"`
}

// Result is the aggregated advisory output
type Result struct {
	RequestID         string                `json:"request_id"`
	Query             string                `json:"query"`
	Language          string                `json:"language"`
	Intent            IntentAnalysis        `json:"intent_analysis"`
	AgentsInvoked     []string              `json:"agents_invoked"`
	Soil              *agents.SoilResult    `json:"soil_analysis,omitempty"`
	Weather           *agents.WeatherResult `json:"weather_analysis,omitempty"`
	Plan              *agents.CropPlan      `json:"crop_plan,omitempty"`
	OverallConfidence float64               `json:"overall_confidence"`
	DataFreshness     map[string]string     `json:"data_freshness"`
	DataSources       []string              `json:"data_sources"`
	Prompt            string                `json:"llm_prompt"`
	Errors            []string              `json:"errors,omitempty"`
	ProcessingMS      int64                 `json:"processing_ms"`
	GeneratedAt       string                `json:"generated_at"`
}

// Orchestrator fans a query out to the required agents and aggregates
// their results. Process never fails: every degradation path ends in a
// usable, lower-confidence result.
type Orchestrator struct {
	soil    *agents.SoilAgent
	weather *agents.WeatherAgent
	planner *agents.CropPlanner
	logger  core.Logger
	tracer  core.Telemetry
	now     func() time.Time
}

// OrchestratorOptions configures an Orchestrator
type OrchestratorOptions struct {
	Soil      *agents.SoilAgent
	Weather   *agents.WeatherAgent
	Planner   *agents.CropPlanner
	Logger    core.Logger
	Telemetry core.Telemetry
	Now       func() time.Time
}

// NewOrchestrator creates an orchestrator. Nil agents are built with no
// backing services so the pipeline still runs degraded.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	soil := opts.Soil
	if soil == nil {
		soil = agents.NewSoilAgent(agents.SoilAgentOptions{})
	}
	weather := opts.Weather
	if weather == nil {
		weather = agents.NewWeatherAgent(agents.WeatherAgentOptions{})
	}
	planner := opts.Planner
	if planner == nil {
		planner = agents.NewCropPlanner(agents.CropPlannerOptions{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	tracer := opts.Telemetry
	if tracer == nil {
		tracer = &core.NoOpTelemetry{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		soil:    soil,
		weather: weather,
		planner: planner,
		logger:  logger,
		tracer:  tracer,
		now:     now,
	}
}

// Process runs the advisory pipeline for a request. Soil and weather
// agents run concurrently; crop planning follows since it consumes both.
func (o *Orchestrator) Process(ctx context.Context, req Request) (result *Result) {
	start := o.now()
	requestID := uuid.NewString()
	language := NormalizeLanguage(req.Language)

	// A failure anywhere in the pipeline still yields a structured
	// result: zero confidence, one orchestrator error, minimal prompt.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Orchestrator failure", map[string]interface{}{
				"request_id": requestID,
				"panic":      fmt.Sprintf("%v", r),
			})
			result = o.failureResult(req, requestID, language, start, r)
		}
	}()

	ctx, span := o.tracer.StartSpan(ctx, "orchestrator.Process")
	defer span.End()

	actx := req.Context

	o.logger.Info("Processing query", map[string]interface{}{
		"request_id": requestID,
		"session_id": req.SessionID,
		"language":   language,
		"pincode":    actx.Pincode,
	})

	intent := AnalyzeIntent(req.Query, req.PreviousQueries)
	span.SetAttribute("intents", strings.Join(intent.Intents, ","))

	needSoil := hasAgent(intent.RequiredAgents, AgentSoil)
	needWeather := hasAgent(intent.RequiredAgents, AgentWeather)
	needPlan := hasAgent(intent.RequiredAgents, AgentCropPlanning)

	var (
		soilResult    *agents.SoilResult
		weatherResult *agents.WeatherResult
		wg            sync.WaitGroup
	)

	if needSoil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer o.recoverAgent("soil")
			soilResult = o.soil.Analyze(ctx, req.Query, &actx)
		}()
	}
	if needWeather {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer o.recoverAgent("weather")
			weatherResult = o.weather.Analyze(ctx, req.Query, &actx)
		}()
	}
	wg.Wait()

	var errors []string
	if needSoil && soilResult == nil {
		errors = append(errors, "soil: agent crashed")
	}
	if needWeather && weatherResult == nil {
		errors = append(errors, "weather: agent crashed")
	}

	// Planning always has both inputs: surrogates stand in for agents
	// that did not run or crashed.
	if soilResult == nil {
		soilResult = defaultSoilSurrogate()
	}
	if weatherResult == nil {
		weatherResult = defaultWeatherSurrogate()
	}
	if soilResult.Err != "" {
		errors = append(errors, "soil: "+soilResult.Err)
	}
	if weatherResult.Err != "" {
		errors = append(errors, "weather: "+weatherResult.Err)
	}

	var plan *agents.CropPlan
	if needPlan {
		plan = o.planner.Plan(ctx, soilResult, weatherResult, req.Query, &actx)
		if plan.Err != "" {
			errors = append(errors, "crop_planning: "+plan.Err)
		}
	}

	confidence := overallConfidence(intent, soilResult, weatherResult, plan, needSoil, needWeather, needPlan, len(errors))
	freshness := freshnessSummary(soilResult, weatherResult)
	sources := collectSources(soilResult, weatherResult, plan)

	invoked := intent.RequiredAgents
	if invoked == nil {
		invoked = []string{}
	}

	result = &Result{
		RequestID:         requestID,
		Query:             req.Query,
		Language:          language,
		Intent:            intent,
		AgentsInvoked:     invoked,
		OverallConfidence: confidence,
		DataFreshness:     freshness,
		DataSources:       sources,
		Errors:            errors,
		ProcessingMS:      o.now().Sub(start).Milliseconds(),
		GeneratedAt:       o.now().UTC().Format(time.RFC3339),
	}
	if needSoil {
		result.Soil = soilResult
	}
	if needWeather {
		result.Weather = weatherResult
	}
	result.Plan = plan
	result.Prompt = buildPrompt(req.Query, result, soilResult, weatherResult, plan, &actx)

	o.logger.Info("Query processed", map[string]interface{}{
		"request_id":    requestID,
		"confidence":    confidence,
		"errors":        len(errors),
		"processing_ms": result.ProcessingMS,
	})
	return result
}

// failureResult is the minimal structured result emitted when the
// pipeline itself fails
func (o *Orchestrator) failureResult(req Request, requestID, language string, start time.Time, cause interface{}) *Result {
	return &Result{
		RequestID:     requestID,
		Query:         req.Query,
		Language:      language,
		AgentsInvoked: []string{},
		DataFreshness: map[string]string{"overall": "unknown"},
		Errors:        []string{fmt.Sprintf("orchestrator: %v", cause)},
		ProcessingMS:  o.now().Sub(start).Milliseconds(),
		GeneratedAt:   o.now().UTC().Format(time.RFC3339),
		Prompt: fmt.Sprintf("User Query: %s\n\nThe advisory analysis could not be completed. Apologize briefly and ask the farmer to try the question again.\n\nResponse:", req.Query),
	}
}

func (o *Orchestrator) recoverAgent(name string) {
	if r := recover(); r != nil {
		o.logger.Error("Agent goroutine panic", map[string]interface{}{
			"agent": name,
			"panic": fmt.Sprintf("%v", r),
		})
	}
}

func hasAgent(agents []string, name string) bool {
	for _, a := range agents {
		if a == name {
			return true
		}
	}
	return false
}

// defaultSoilSurrogate stands in when soil analysis was skipped
func defaultSoilSurrogate() *agents.SoilResult {
	return &agents.SoilResult{
		SoilType:         "loam",
		PHLevel:          7.0,
		HealthScore:      5,
		HealthConfidence: 0.2,
		Constraints:      []string{"Using default values - soil analysis unavailable"},
		Recommendations:  []string{"Get soil tested for accurate recommendations"},
		DataSources:      []string{"default_fallback"},
		DataFreshness:    agents.FreshnessDefault,
	}
}

// defaultWeatherSurrogate stands in when weather analysis was skipped
func defaultWeatherSurrogate() *agents.WeatherResult {
	return &agents.WeatherResult{
		Season:                "kharif",
		Temperature:           agents.TemperatureRange{Min: 22, Max: 35, OptimalRange: "24-30°C"},
		RainfallMM:            800,
		RainfallPattern:       "moderate",
		HumidityPercent:       70,
		SuitabilityScore:      5,
		SuitabilityConfidence: 0.2,
		DataSources:           []string{"default_fallback"},
		DataFreshness:         agents.FreshnessDefault,
	}
}

// overallConfidence is the weighted blend of component confidences,
// penalized per error. Only components that actually ran contribute;
// surrogate values for skipped agents carry no weight.
func overallConfidence(intent IntentAnalysis, soil *agents.SoilResult, weather *agents.WeatherResult, plan *agents.CropPlan, soilRan, weatherRan, planned bool, errCount int) float64 {
	total := 0.15 * intent.Confidence
	weight := 0.15
	if soilRan {
		total += 0.25 * soil.HealthConfidence
		weight += 0.25
	}
	if weatherRan {
		total += 0.25 * weather.SuitabilityConfidence
		weight += 0.25
	}
	if planned && plan != nil {
		total += 0.35 * plan.OverallConfidence
		weight += 0.35
	}

	confidence := total/weight - 0.1*float64(errCount)
	if confidence < 0.1 {
		confidence = 0.1
	} else if confidence > 1.0 {
		confidence = 1.0
	}
	return round2(confidence)
}

// freshnessSummary reports per-component freshness plus the overall
// grade callers surface to farmers.
func freshnessSummary(soil *agents.SoilResult, weather *agents.WeatherResult) map[string]string {
	summary := map[string]string{
		"soil_data":      soil.DataFreshness,
		"weather_data":   weather.DataFreshness,
		"crop_economics": "2024_msp_data",
	}

	allFresh := (soil.DataFreshness == agents.FreshnessUserProvided || soil.DataFreshness == agents.FreshnessLive) &&
		(weather.DataFreshness == agents.FreshnessUserProvided || weather.DataFreshness == agents.FreshnessLive)
	anyHistorical := soil.DataFreshness == agents.FreshnessHistorical || weather.DataFreshness == agents.FreshnessHistorical

	switch {
	case allFresh:
		summary["overall"] = "high_accuracy"
	case anyHistorical:
		summary["overall"] = "estimated_from_historical"
	default:
		summary["overall"] = "mixed_sources"
	}
	return summary
}

// collectSources dedups data sources across agents, preserving order
func collectSources(soil *agents.SoilResult, weather *agents.WeatherResult, plan *agents.CropPlan) []string {
	seen := make(map[string]bool)
	var sources []string
	add := func(list []string) {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				sources = append(sources, s)
			}
		}
	}
	add(soil.DataSources)
	add(weather.DataSources)
	if plan != nil {
		add(plan.DataSources)
	}
	return sources
}

// NormalizeLanguage maps language aliases to supported codes. Unknown
// values default to English.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "hi", "hindi":
		return "hi"
	case "or", "odia", "oriya":
		return "or"
	default:
		return "en"
	}
}
