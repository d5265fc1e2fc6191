package insights

import (
	"fmt"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/model"
)

const recommendationTemplate = `You are an expert business analyst specializing in regional office location strategy.

ANALYSIS DATA:
Office ranking by supplier density (within %skm radius):
%s
CONTEXTUAL INFORMATION:
%s

TASK:
Analyze the data and provide a comprehensive recommendation for the best regional office location.

IMPORTANT: If any contextual information is missing or incomplete (like population data, infrastructure details), please supplement with your knowledge about the region to provide a complete analysis.

FORMATTING INSTRUCTIONS:
- Do NOT use markdown formatting (*, **, #, etc.)
- Structure your response with clear section headers using simple text
- Use bullet points with simple dashes (-)
- Keep sections well-organized and easy to read
- Avoid any special characters for formatting

Please structure your response with these sections:
RECOMMENDED OFFICE: Clear recommendation with reasoning
KEY FACTORS: Primary factors influencing the decision
BUSINESS IMPACT: Expected benefits and ROI considerations
RISK ASSESSMENT: Potential challenges and mitigation strategies
IMPLEMENTATION NOTES: Practical considerations for setup

Focus on business value, logistics efficiency, and long-term strategic advantages.`

// RecommendationPrompt builds the prompt asking which office to pick.
func RecommendationPrompt(results []coverage.Result, cd *model.ContextualData, radiusKM float64) string {
	return fmt.Sprintf(recommendationTemplate, km(radiusKM), FormatRankingTable(results), FormatContext(cd))
}

const swotTemplate = `You are a strategic business consultant. Perform a comprehensive SWOT analysis for establishing a regional office at "%[1]s".

OFFICE DETAILS:
- Location: %[1]s
- Coordinates: %[2]s
- Supplier Coverage: %[3]d suppliers within %[4]skm
- Ranking: #%[5]d out of %[6]d locations analyzed

COMPARATIVE DATA:
%[7]s
CONTEXTUAL INFORMATION:
%[8]s

IMPORTANT: If contextual information is missing (like specific population data, economic indicators, infrastructure details), please supplement with your knowledge about this region/city to provide a complete SWOT analysis.

Please provide a structured SWOT analysis in the following JSON format:
{
  "strengths": ["strength 1", "strength 2", "strength 3", "strength 4"],
  "weaknesses": ["weakness 1", "weakness 2", "weakness 3", "weakness 4"],
  "opportunities": ["opportunity 1", "opportunity 2", "opportunity 3", "opportunity 4"],
  "threats": ["threat 1", "threat 2", "threat 3", "threat 4"],
  "summary": "2-3 sentence overall assessment of this location's viability"
}

Each point should be concise (1-2 sentences) and business-focused. Consider factors like:
- Supplier accessibility and logistics
- Infrastructure and connectivity
- Market potential and competition
- Economic and regulatory environment
- Operational costs and resources
- Strategic positioning and growth potential

Respond ONLY with valid JSON - no additional text or formatting.`

// SWOTPrompt builds the prompt for one office. The office's position is its
// rank within results.
func SWOTPrompt(office coverage.Result, results []coverage.Result, cd *model.ContextualData, radiusKM float64) string {
	position := 0
	for i, r := range results {
		if r.OfficeID == office.OfficeID {
			position = i + 1
			break
		}
	}
	return fmt.Sprintf(swotTemplate,
		office.OfficeName,
		office.Coordinates,
		office.SuppliersCount,
		km(radiusKM),
		position,
		len(results),
		FormatRankingTable(results),
		FormatContext(cd),
	)
}
