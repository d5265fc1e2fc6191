package insights

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/model"
)

// DefaultSWOT fills sections the model did not produce.
func DefaultSWOT() model.SWOT {
	return model.SWOT{
		Strengths: []string{
			"Strategic location identified for regional operations",
			"Established supplier network in the vicinity",
			"Access to transportation infrastructure",
			"Potential for operational efficiency",
		},
		Weaknesses: []string{
			"Market data requires more detailed analysis",
			"Infrastructure assessment needs completion",
			"Competition landscape needs evaluation",
			"Resource requirements need quantification",
		},
		Opportunities: []string{
			"Growing regional market potential",
			"Expansion possibilities in surrounding areas",
			"Technology adoption opportunities",
			"Strategic partnerships potential",
		},
		Threats: []string{
			"Market competition from established players",
			"Economic fluctuations affecting operations",
			"Regulatory changes in the region",
			"Supply chain disruption risks",
		},
		Summary: "The location shows strategic potential for regional office establishment with favorable supplier accessibility, though detailed market analysis is recommended for optimal decision-making.",
	}
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

type rawSWOT struct {
	Strengths     *[]string `json:"strengths"`
	Weaknesses    *[]string `json:"weaknesses"`
	Opportunities *[]string `json:"opportunities"`
	Threats       *[]string `json:"threats"`
	Summary       string    `json:"summary"`
}

// ParseSWOT reads a SWOT answer. It prefers the outermost JSON object in the
// text and falls back to scanning dash-bulleted sections. The bool reports
// whether the JSON path succeeded.
func ParseSWOT(content string) (*model.SWOT, bool) {
	if s, err := parseSWOTJSON(content); err == nil {
		return s, true
	}
	return parseSWOTText(content), false
}

func parseSWOTJSON(content string) (*model.SWOT, error) {
	body := content
	if m := jsonObject.FindString(content); m != "" {
		body = m
	}

	var raw rawSWOT
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, eris.Wrap(err, "insights: decode swot json")
	}
	if raw.Strengths == nil || raw.Weaknesses == nil || raw.Opportunities == nil || raw.Threats == nil {
		return nil, eris.New("insights: swot json missing required fields")
	}
	return &model.SWOT{
		Strengths:     *raw.Strengths,
		Weaknesses:    *raw.Weaknesses,
		Opportunities: *raw.Opportunities,
		Threats:       *raw.Threats,
		Summary:       raw.Summary,
	}, nil
}

func parseSWOTText(content string) *model.SWOT {
	def := DefaultSWOT()
	out := &model.SWOT{
		Strengths:     orDefault(section(content, "strength", "strong"), def.Strengths),
		Weaknesses:    orDefault(section(content, "weakness", "weak"), def.Weaknesses),
		Opportunities: orDefault(section(content, "opportunit"), def.Opportunities),
		Threats:       orDefault(section(content, "threat"), def.Threats),
		Summary:       summary(content),
	}
	if out.Summary == "" {
		out.Summary = def.Summary
	}
	return out
}

// section collects the dash bullets following the first line that mentions
// any keyword. Blank lines inside the list are skipped; any other line ends it.
func section(content string, keywords ...string) []string {
	var items []string
	in := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !in {
			lower := strings.ToLower(line)
			for _, k := range keywords {
				if strings.Contains(lower, k) {
					in = true
					break
				}
			}
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "-"):
			items = append(items, strings.TrimSpace(trimmed[1:]))
		case trimmed == "":
		default:
			return items
		}
	}
	return items
}

// summary returns the first non-empty line after a summary heading.
func summary(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "summary") && !strings.Contains(lower, "conclusion") && !strings.Contains(lower, "overall") {
			continue
		}
		for _, next := range lines[i+1:] {
			if t := strings.TrimSpace(next); t != "" {
				return t
			}
		}
	}
	return ""
}

func orDefault(items, def []string) []string {
	if len(items) == 0 {
		return def
	}
	return items
}
