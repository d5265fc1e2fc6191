package coverage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

// Run is the immutable outcome of one analysis over a dataset at a radius.
type Run struct {
	DatasetID      string    `json:"dataset_id"`
	RadiusKM       float64   `json:"radius_km"`
	Offices        int       `json:"offices"`
	TotalSuppliers int       `json:"total_suppliers"`
	Results        []Result  `json:"results"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Compute runs the full analysis: coverage per office followed by ranking.
// It is pure apart from the ComputedAt timestamp.
func Compute(datasetID string, suppliers []model.Supplier, offices []model.Office, radiusKM float64) Run {
	return newRun(datasetID, suppliers, offices, radiusKM, Calculate(offices, suppliers, radiusKM))
}

// ComputeConcurrent is Compute with the per-office work spread over workers
// goroutines.
func ComputeConcurrent(ctx context.Context, datasetID string, suppliers []model.Supplier, offices []model.Office, radiusKM float64, workers int) (Run, error) {
	cov, err := CalculateConcurrent(ctx, offices, suppliers, radiusKM, workers)
	if err != nil {
		return Run{}, err
	}
	return newRun(datasetID, suppliers, offices, radiusKM, cov), nil
}

func newRun(datasetID string, suppliers []model.Supplier, offices []model.Office, radiusKM float64, cov []OfficeCoverage) Run {
	return Run{
		DatasetID:      datasetID,
		RadiusKM:       radiusKM,
		Offices:        len(offices),
		TotalSuppliers: len(suppliers),
		Results:        Rank(radiusKM, cov),
		ComputedAt:     time.Now().UTC(),
	}
}

// Best returns the rank 1 result, if any.
func (r Run) Best() (Result, bool) {
	if len(r.Results) == 0 {
		return Result{}, false
	}
	return r.Results[0], true
}

// Share returns the percentage of all suppliers covered by res.
func (r Run) Share(res Result) float64 {
	if r.TotalSuppliers == 0 {
		return 0
	}
	return float64(res.SuppliersCount) / float64(r.TotalSuppliers) * 100
}

// Records shapes the run into persistence rows for the given user.
func (r Run) Records(userID string) []model.AnalysisRecord {
	recs := make([]model.AnalysisRecord, len(r.Results))
	for i, res := range r.Results {
		names := make([]string, len(res.SupplierNames))
		copy(names, res.SupplierNames)
		recs[i] = model.AnalysisRecord{
			ID:             uuid.New().String(),
			UserID:         userID,
			DatasetID:      r.DatasetID,
			OfficeID:       res.OfficeID,
			OfficeName:     res.OfficeName,
			RadiusKM:       r.RadiusKM,
			SuppliersCount: res.SuppliersCount,
			SupplierNames:  names,
			Coordinates:    res.Coordinates,
			Rank:           res.Rank,
			CreatedAt:      r.ComputedAt,
		}
	}
	return recs
}

// FromRecords rebuilds the ranked results of a persisted run. Records are
// expected in rank order.
func FromRecords(recs []model.AnalysisRecord) []Result {
	out := make([]Result, len(recs))
	for i, rec := range recs {
		// Coordinates were produced by FormatCoordinates, so parsing only
		// fails on rows written by something else.
		loc, _ := geo.ParseCoordinates(rec.Coordinates)
		out[i] = Result{
			OfficeID:       rec.OfficeID,
			OfficeName:     rec.OfficeName,
			RadiusKM:       rec.RadiusKM,
			SuppliersCount: rec.SuppliersCount,
			SupplierNames:  rec.SupplierNames,
			Coordinates:    rec.Coordinates,
			Latitude:       loc.Lat,
			Longitude:      loc.Lon,
			Rank:           rec.Rank,
		}
	}
	return out
}
