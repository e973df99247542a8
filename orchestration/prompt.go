package orchestration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/krishimitra/advisor/agents"
)

// buildPrompt renders the deterministic LLM prompt summarizing the
// analysis for response generation. Identical inputs always produce an
// identical prompt.
func buildPrompt(query string, result *Result, soil *agents.SoilResult, weather *agents.WeatherResult, plan *agents.CropPlan, actx *agents.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User Query: %s\n", query)
	fmt.Fprintf(&b, "Response Confidence: %.0f%%\n", result.OverallConfidence*100)

	if location := formatLocation(actx); location != "" {
		fmt.Fprintf(&b, "Location: %s\n", location)
	}

	b.WriteString("\nAnalysis Results:\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")

	if result.Soil != nil {
		writeSoilSection(&b, soil)
	}
	if result.Weather != nil {
		writeWeatherSection(&b, weather)
	}
	if plan != nil {
		writePlanSection(&b, plan)
	}

	fmt.Fprintf(&b, "\nData Confidence: %s\n", result.DataFreshness["overall"])
	if len(result.DataSources) > 0 {
		sources := result.DataSources
		if len(sources) > 5 {
			sources = sources[:5]
		}
		fmt.Fprintf(&b, "Data Sources: %s\n", strings.Join(sources, ", "))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\nNote: %d analysis component(s) used fallback data due to errors.\n", len(result.Errors))
	}

	b.WriteString("\nBased on the above analysis, provide a clear, actionable response to the farmer's query.\n")
	b.WriteString("Use simple language suitable for farmers. Include specific numbers from the analysis.\n")
	if result.OverallConfidence < 0.5 {
		b.WriteString("If confidence is below 50%, mention that recommendations are estimates.\n")
	}
	b.WriteString("\nResponse:")

	return b.String()
}

func formatLocation(actx *agents.Context) string {
	var parts []string
	if actx.District != "" {
		parts = append(parts, actx.District)
	}
	if actx.State != "" {
		parts = append(parts, actx.State)
	}
	if len(parts) == 0 && actx.Pincode != "" {
		parts = append(parts, "PIN "+actx.Pincode)
	}
	return strings.Join(parts, ", ")
}

func writeSoilSection(b *strings.Builder, soil *agents.SoilResult) {
	b.WriteString("\nSOIL ANALYSIS:\n")
	fmt.Fprintf(b, "- Soil Type: %s\n", soil.SoilType)
	fmt.Fprintf(b, "- pH Level: %g\n", soil.PHLevel)
	fmt.Fprintf(b, "- Health Score: %d/10 (confidence: %g)\n", soil.HealthScore, soil.HealthConfidence)

	if soil.NPK.AnyPositive() {
		fmt.Fprintf(b, "- NPK Levels: N:%g, P:%g, K:%g kg/ha\n",
			soil.NPK.Nitrogen, soil.NPK.Phosphorus, soil.NPK.Potassium)
	}
	if soil.OrganicMatterPercent > 0 {
		fmt.Fprintf(b, "- Organic Matter: %g%%\n", soil.OrganicMatterPercent)
	}

	writeBullets(b, "- Constraints:", soil.Constraints, 3)
	writeBullets(b, "- Recommendations:", soil.Recommendations, 3)
}

func writeWeatherSection(b *strings.Builder, weather *agents.WeatherResult) {
	b.WriteString("\nWEATHER ANALYSIS:\n")
	fmt.Fprintf(b, "- Season: %s\n", weather.Season)
	fmt.Fprintf(b, "- Temperature: %g-%g°C\n", weather.Temperature.Min, weather.Temperature.Max)
	fmt.Fprintf(b, "- Expected Rainfall: %gmm\n", weather.RainfallMM)
	fmt.Fprintf(b, "- Humidity: %g%%\n", weather.HumidityPercent)
	fmt.Fprintf(b, "- Suitability Score: %d/10\n", weather.SuitabilityScore)
	fmt.Fprintf(b, "- Irrigation: %s - %s\n", weather.Irrigation.Level, weather.Irrigation.Notes)

	writeBullets(b, "- Risks:", weather.RiskFactors, 3)
}

func writePlanSection(b *strings.Builder, plan *agents.CropPlan) {
	b.WriteString("\nCROP RECOMMENDATIONS:\n")
	for i, rec := range plan.RecommendedCrops {
		fmt.Fprintf(b, "%d. %s (confidence: %.0f%%)\n", i+1, strings.ToUpper(rec.Name), rec.Confidence*100)
		fmt.Fprintf(b, "   Reasoning: %s\n", rec.Reasoning)
		fmt.Fprintf(b, "   Expected Yield: %s\n", rec.ExpectedYield.Range)
		fmt.Fprintf(b, "   Duration: %d months\n", rec.DurationMonths)
		fmt.Fprintf(b, "   Input Cost: ₹%s/ha\n", formatComma(rec.Economics.InputCosts.Total/rec.Economics.FarmSizeHa))
		if rec.Economics.MSP2024 != nil {
			fmt.Fprintf(b, "   MSP: ₹%g/quintal\n", *rec.Economics.MSP2024)
		}
		writeNamedList(b, "   Varieties:", varietyNames(rec.Varieties), 2)
		writeNamedList(b, "   Schemes:", schemeNames(rec.Schemes), 2)
	}

	if len(plan.Alternatives) > 0 {
		b.WriteString("\nAlternative Options:\n")
		alternatives := plan.Alternatives
		if len(alternatives) > 3 {
			alternatives = alternatives[:3]
		}
		for _, alt := range alternatives {
			fmt.Fprintf(b, "- %s: %s\n", alt.Crop, alt.Reason)
		}
	}

	if len(plan.Risks) > 0 {
		b.WriteString("\nKey Risks:\n")
		risks := plan.Risks
		if len(risks) > 3 {
			risks = risks[:3]
		}
		for _, risk := range risks {
			fmt.Fprintf(b, "- [%s] %s\n", strings.ToUpper(risk.Severity), risk.Description)
		}
	}

	if len(plan.Precautions) > 0 {
		b.WriteString("\nPrecautions:\n")
		precautions := plan.Precautions
		if len(precautions) > 4 {
			precautions = precautions[:4]
		}
		for _, p := range precautions {
			fmt.Fprintf(b, "- %s [%s]\n", p.Action, p.Priority)
		}
	}
}

func writeBullets(b *strings.Builder, header string, lines []string, limit int) {
	if len(lines) == 0 {
		return
	}
	if len(lines) > limit {
		lines = lines[:limit]
	}
	b.WriteString(header + "\n")
	for _, line := range lines {
		fmt.Fprintf(b, "  * %s\n", line)
	}
}

func writeNamedList(b *strings.Builder, header string, names []string, limit int) {
	if len(names) == 0 {
		return
	}
	if len(names) > limit {
		names = names[:limit]
	}
	fmt.Fprintf(b, "%s %s\n", header, strings.Join(names, ", "))
}

func varietyNames(picks []agents.VarietyPick) []string {
	names := make([]string, 0, len(picks))
	for _, p := range picks {
		names = append(names, p.Name)
	}
	return names
}

func schemeNames(schemes []agents.SchemeInfo) []string {
	names := make([]string, 0, len(schemes))
	for _, s := range schemes {
		names = append(names, s.Name)
	}
	return names
}

// formatComma renders a rupee amount with thousands separators
func formatComma(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
