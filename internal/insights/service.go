package insights

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/model"
	"github.com/sells-group/coverage-cli/internal/store"
)

// RunSource yields the current ranked run for a key.
type RunSource interface {
	Current(ctx context.Context, userID, datasetID string, radiusKM float64) (coverage.Run, []model.AnalysisRecord, error)
}

// Saver persists generated insights onto analysis rows.
type Saver interface {
	SaveRecommendation(ctx context.Context, key model.AnalysisKey, text string, cd *model.ContextualData) error
	SaveSWOT(ctx context.Context, key model.AnalysisKey, officeID string, swot *model.SWOT, cd *model.ContextualData) error
}

// Service generates insights for stored runs and saves them back.
type Service struct {
	gen   *Generator
	runs  RunSource
	saver Saver
}

// NewService wires a Service.
func NewService(gen *Generator, runs RunSource, saver Saver) *Service {
	return &Service{gen: gen, runs: runs, saver: saver}
}

// Configured reports whether insights can be generated at all.
func (s *Service) Configured() bool {
	return s.gen.Configured()
}

// Recommend generates and stores a recommendation for the run at key.
func (s *Service) Recommend(ctx context.Context, userID, datasetID string, radiusKM float64, cd *model.ContextualData) (string, error) {
	if !s.gen.Configured() {
		return "", ErrNotConfigured
	}
	run, _, err := s.runs.Current(ctx, userID, datasetID, radiusKM)
	if err != nil {
		return "", err
	}
	if len(run.Results) == 0 {
		return "", eris.Wrap(store.ErrNotFound, "insights: no offices to recommend from")
	}

	text, err := s.gen.Recommend(ctx, run.Results, cd, radiusKM)
	if err != nil {
		return "", err
	}

	key := model.AnalysisKey{UserID: userID, DatasetID: datasetID, RadiusKM: radiusKM}
	if err := s.saver.SaveRecommendation(ctx, key, text, cd); err != nil {
		return "", eris.Wrap(err, "insights: save recommendation")
	}
	zap.L().Info("insights: recommendation saved", zap.String("key", key.String()))
	return text, nil
}

// SWOT generates and stores a SWOT analysis for one office of the run.
func (s *Service) SWOT(ctx context.Context, userID, datasetID, officeID string, radiusKM float64, cd *model.ContextualData) (*model.SWOT, error) {
	if !s.gen.Configured() {
		return nil, ErrNotConfigured
	}
	run, _, err := s.runs.Current(ctx, userID, datasetID, radiusKM)
	if err != nil {
		return nil, err
	}

	var office *coverage.Result
	for i := range run.Results {
		if run.Results[i].OfficeID == officeID {
			office = &run.Results[i]
			break
		}
	}
	if office == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "insights: office %s not in run", officeID)
	}

	swot, err := s.gen.SWOT(ctx, *office, run.Results, cd, radiusKM)
	if err != nil {
		return nil, err
	}

	key := model.AnalysisKey{UserID: userID, DatasetID: datasetID, RadiusKM: radiusKM}
	if err := s.saver.SaveSWOT(ctx, key, officeID, swot, cd); err != nil {
		return nil, eris.Wrap(err, "insights: save swot")
	}
	zap.L().Info("insights: swot saved", zap.String("key", key.String()), zap.String("office_id", officeID))
	return swot, nil
}
