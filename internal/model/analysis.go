package model

import (
	"fmt"
	"strconv"
	"time"
)

// AnalysisKey identifies the set of persisted rows replaced by a recompute.
type AnalysisKey struct {
	UserID    string  `json:"user_id"`
	DatasetID string  `json:"dataset_id"`
	RadiusKM  float64 `json:"radius_km"`
}

// String renders the key for locking and logging.
func (k AnalysisKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.UserID, k.DatasetID, strconv.FormatFloat(k.RadiusKM, 'f', -1, 64))
}

// AnalysisRecord is one persisted per-office row of an analysis run.
type AnalysisRecord struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	DatasetID        string          `json:"dataset_id"`
	OfficeID         string          `json:"office_id"`
	OfficeName       string          `json:"office_name"`
	RadiusKM         float64         `json:"radius_km"`
	SuppliersCount   int             `json:"suppliers_count"`
	SupplierNames    []string        `json:"supplier_names"`
	Coordinates      string          `json:"coordinates"`
	Rank             int             `json:"rank"`
	ContextualData   *ContextualData `json:"contextual_data,omitempty"`
	AIRecommendation string          `json:"ai_recommendation,omitempty"`
	AISWOT           *SWOT           `json:"ai_swot_analysis,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Key returns the record's analysis key.
func (r AnalysisRecord) Key() AnalysisKey {
	return AnalysisKey{UserID: r.UserID, DatasetID: r.DatasetID, RadiusKM: r.RadiusKM}
}
