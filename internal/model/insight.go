package model

// ContextualData is location context supplied by the caller for AI prompts.
// Any section may be nil when the data could not be obtained.
type ContextualData struct {
	Location   *LocationInfo   `json:"location,omitempty"`
	Population *PopulationInfo `json:"population,omitempty"`
	Railway    *Facility       `json:"railway_station,omitempty"`
	Airport    *Facility       `json:"airport,omitempty"`
	Highways   []Highway       `json:"highways,omitempty"`
}

// LocationInfo describes the administrative area around an office.
type LocationInfo struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	Address string `json:"address,omitempty"`
}

// PopulationInfo is the population of the office's city. Zero means the
// figure is unknown.
type PopulationInfo struct {
	City       string `json:"city"`
	Population int64  `json:"population"`
}

// Highway is a major road near the office.
type Highway struct {
	Ref        string  `json:"ref"`
	Name       string  `json:"name,omitempty"`
	DistanceKM float64 `json:"distance_km"`
}

// Facility is a nearby transport facility.
type Facility struct {
	Name       string  `json:"name"`
	DistanceKM float64 `json:"distance_km"`
}

// SWOT is a structured strengths/weaknesses/opportunities/threats analysis.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
	Summary       string   `json:"summary"`
}

// InsightKind names a generated AI artefact.
type InsightKind string

const (
	InsightRecommendation InsightKind = "recommendation"
	InsightSWOT           InsightKind = "swot"
)
