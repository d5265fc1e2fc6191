// Package analysis orchestrates coverage runs: it loads a user's suppliers and
// offices, computes the ranking and persists it as the current result for
// (user, dataset, radius).
package analysis

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/ingest"
	"github.com/sells-group/coverage-cli/internal/model"
	"github.com/sells-group/coverage-cli/internal/monitoring"
	"github.com/sells-group/coverage-cli/internal/store"
)

// ErrOfficeLimit is returned when a user already has the maximum number of
// offices.
var ErrOfficeLimit = eris.New("analysis: office limit reached")

// ValidationError marks caller input that was rejected before any work ran.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Service runs analyses against a store. A Service with a nil store can
// still Compute.
type Service struct {
	store      store.Store
	cfg        config.AnalysisConfig
	maxOffices int
	metrics    *monitoring.Metrics

	runLocks    keyedMutex
	officeLocks keyedMutex
}

// NewService wires a Service. metrics may be nil.
func NewService(st store.Store, cfg *config.Config, metrics *monitoring.Metrics) *Service {
	return &Service{
		store:      st,
		cfg:        cfg.Analysis,
		maxOffices: cfg.Offices.MaxPerUser,
		metrics:    metrics,
	}
}

// ValidateRadius checks radiusKM against the configured window.
func (s *Service) ValidateRadius(radiusKM float64) error {
	if err := geo.ValidateRadius(radiusKM); err != nil {
		return invalid(err)
	}
	if radiusKM < s.cfg.MinRadiusKM || radiusKM > s.cfg.MaxRadiusKM {
		return invalid(eris.Errorf("analysis: radius %v km outside [%v, %v]",
			radiusKM, s.cfg.MinRadiusKM, s.cfg.MaxRadiusKM))
	}
	return nil
}

// Compute ranks offices without touching the store. Large inputs are spread
// across the configured workers.
func (s *Service) Compute(ctx context.Context, datasetID string, suppliers []model.Supplier, offices []model.Office, radiusKM float64) (coverage.Run, error) {
	if err := s.ValidateRadius(radiusKM); err != nil {
		return coverage.Run{}, err
	}

	start := time.Now()
	run, err := s.compute(ctx, datasetID, suppliers, offices, radiusKM)
	s.metrics.ObserveAnalysis(len(offices), len(suppliers), time.Since(start), err)
	return run, err
}

func (s *Service) compute(ctx context.Context, datasetID string, suppliers []model.Supplier, offices []model.Office, radiusKM float64) (coverage.Run, error) {
	pairs := len(suppliers) * len(offices)
	if s.cfg.Workers > 1 && s.cfg.ParallelThreshold > 0 && pairs >= s.cfg.ParallelThreshold {
		return coverage.ComputeConcurrent(ctx, datasetID, suppliers, offices, radiusKM, s.cfg.Workers)
	}
	if err := ctx.Err(); err != nil {
		return coverage.Run{}, eris.Wrap(err, "analysis: compute")
	}
	return coverage.Compute(datasetID, suppliers, offices, radiusKM), nil
}

// Recompute loads the dataset and the user's offices, ranks them and replaces
// the stored result for the key. Recomputes for the same key are serialised;
// the last one to finish wins.
func (s *Service) Recompute(ctx context.Context, userID, datasetID string, radiusKM float64) (coverage.Run, error) {
	if err := s.ValidateRadius(radiusKM); err != nil {
		return coverage.Run{}, err
	}
	key := model.AnalysisKey{UserID: userID, DatasetID: datasetID, RadiusKM: radiusKM}

	unlock := s.runLocks.Lock(key.String())
	defer unlock()

	if _, err := s.store.GetDataset(ctx, userID, datasetID); err != nil {
		return coverage.Run{}, eris.Wrap(err, "analysis: get dataset")
	}

	var (
		suppliers []model.Supplier
		offices   []model.Office
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		suppliers, err = s.store.ListSuppliers(gctx, userID, datasetID)
		return eris.Wrap(err, "analysis: list suppliers")
	})
	g.Go(func() error {
		var err error
		offices, err = s.store.ListOffices(gctx, userID)
		return eris.Wrap(err, "analysis: list offices")
	})
	if err := g.Wait(); err != nil {
		return coverage.Run{}, err
	}

	start := time.Now()
	run, err := s.compute(ctx, datasetID, suppliers, offices, radiusKM)
	if err == nil {
		err = s.store.ReplaceAnalyses(ctx, key, run.Records(userID))
	}
	s.metrics.ObserveAnalysis(len(offices), len(suppliers), time.Since(start), err)
	if err != nil {
		return coverage.Run{}, eris.Wrap(err, "analysis: recompute")
	}

	zap.L().Info("analysis: recomputed",
		zap.String("user_id", userID),
		zap.String("dataset_id", datasetID),
		zap.Float64("radius_km", radiusKM),
		zap.Int("suppliers", len(suppliers)),
		zap.Int("offices", len(offices)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

// Current returns the stored run for the key, recomputing when nothing is
// stored yet or the user's office list no longer matches it.
func (s *Service) Current(ctx context.Context, userID, datasetID string, radiusKM float64) (coverage.Run, []model.AnalysisRecord, error) {
	if err := s.ValidateRadius(radiusKM); err != nil {
		return coverage.Run{}, nil, err
	}
	key := model.AnalysisKey{UserID: userID, DatasetID: datasetID, RadiusKM: radiusKM}

	ds, err := s.store.GetDataset(ctx, userID, datasetID)
	if err != nil {
		return coverage.Run{}, nil, eris.Wrap(err, "analysis: get dataset")
	}
	recs, err := s.store.ListAnalyses(ctx, key)
	if err != nil {
		return coverage.Run{}, nil, eris.Wrap(err, "analysis: list analyses")
	}
	offices, err := s.store.CountOffices(ctx, userID)
	if err != nil {
		return coverage.Run{}, nil, eris.Wrap(err, "analysis: count offices")
	}

	// A user with no offices has nothing to rank; rows left over from
	// deleted offices still trigger a recompute that clears them.
	if len(recs) != offices {
		if _, err := s.Recompute(ctx, userID, datasetID, radiusKM); err != nil {
			return coverage.Run{}, nil, err
		}
		if recs, err = s.store.ListAnalyses(ctx, key); err != nil {
			return coverage.Run{}, nil, eris.Wrap(err, "analysis: list analyses")
		}
	}

	run := coverage.Run{
		DatasetID:      datasetID,
		RadiusKM:       radiusKM,
		Offices:        len(recs),
		TotalSuppliers: ds.TotalSuppliers,
		Results:        coverage.FromRecords(recs),
	}
	if len(recs) > 0 {
		run.ComputedAt = recs[0].CreatedAt
	}
	return run, recs, nil
}

// ImportDataset parses a supplier file and stores it as a new dataset.
func (s *Service) ImportDataset(ctx context.Context, userID, filename string, r io.Reader) (*model.Dataset, error) {
	suppliers, err := ingest.ParseSuppliers(ctx, r, ingest.DetectFormat(filename))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, invalid(err)
	}
	for i := range suppliers {
		suppliers[i].UserID = userID
	}

	ds := &model.Dataset{UserID: userID, Filename: filename}
	if err := s.store.CreateDataset(ctx, ds, suppliers); err != nil {
		return nil, eris.Wrap(err, "analysis: create dataset")
	}

	zap.L().Info("analysis: dataset imported",
		zap.String("user_id", userID),
		zap.String("dataset_id", ds.ID),
		zap.String("filename", filename),
		zap.Int("suppliers", ds.TotalSuppliers),
	)
	return ds, nil
}

// AddOffice validates and stores an office, enforcing the per-user limit.
func (s *Service) AddOffice(ctx context.Context, userID, name string, loc geo.Point) (*model.Office, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid(eris.New("analysis: office name is required"))
	}
	if err := geo.ValidatePoint(loc); err != nil {
		return nil, invalid(err)
	}

	unlock := s.officeLocks.Lock(userID)
	defer unlock()

	n, err := s.store.CountOffices(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: count offices")
	}
	if n >= s.maxOffices {
		return nil, eris.Wrapf(ErrOfficeLimit, "analysis: user %s has %d offices", userID, n)
	}

	o := &model.Office{UserID: userID, Name: name, Location: loc}
	if err := s.store.CreateOffice(ctx, o); err != nil {
		return nil, eris.Wrap(err, "analysis: create office")
	}
	return o, nil
}

// SupplierDistance is one supplier's distance from an office.
type SupplierDistance struct {
	Supplier   model.Supplier `json:"supplier"`
	DistanceKM float64        `json:"distance_km"`
	Within     bool           `json:"within"`
}

// SupplierDistances measures every supplier in the dataset from one office.
// DistanceKM is rounded to two decimals; Within uses the exact distance.
func (s *Service) SupplierDistances(ctx context.Context, userID, datasetID, officeID string, radiusKM float64) (*model.Office, []SupplierDistance, error) {
	if err := s.ValidateRadius(radiusKM); err != nil {
		return nil, nil, err
	}

	office, err := s.store.GetOffice(ctx, userID, officeID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "analysis: get office")
	}
	suppliers, err := s.store.ListSuppliers(ctx, userID, datasetID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "analysis: list suppliers")
	}

	out := make([]SupplierDistance, len(suppliers))
	for i, sp := range suppliers {
		d := geo.Distance(office.Location, sp.Location)
		out[i] = SupplierDistance{
			Supplier:   sp,
			DistanceKM: math.Round(d*100) / 100,
			Within:     d <= radiusKM,
		}
	}
	return office, out, nil
}
