// Package store persists datasets, offices and analysis runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist or belongs
// to another user.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for coverage analysis.
type Store interface {
	// Datasets
	CreateDataset(ctx context.Context, ds *model.Dataset, suppliers []model.Supplier) error
	GetDataset(ctx context.Context, userID, datasetID string) (*model.Dataset, error)
	ListDatasets(ctx context.Context, userID string) ([]model.Dataset, error)
	DeleteDataset(ctx context.Context, userID, datasetID string) error
	ListSuppliers(ctx context.Context, userID, datasetID string) ([]model.Supplier, error)

	// Offices
	CreateOffice(ctx context.Context, o *model.Office) error
	GetOffice(ctx context.Context, userID, officeID string) (*model.Office, error)
	ListOffices(ctx context.Context, userID string) ([]model.Office, error)
	CountOffices(ctx context.Context, userID string) (int, error)
	DeleteOffice(ctx context.Context, userID, officeID string) error

	// Analyses
	ReplaceAnalyses(ctx context.Context, key model.AnalysisKey, recs []model.AnalysisRecord) error
	ListAnalyses(ctx context.Context, key model.AnalysisKey) ([]model.AnalysisRecord, error)
	SaveRecommendation(ctx context.Context, key model.AnalysisKey, text string, cd *model.ContextualData) error
	SaveSWOT(ctx context.Context, key model.AnalysisKey, officeID string, swot *model.SWOT, cd *model.ContextualData) error

	// Insight cache
	GetCachedInsight(ctx context.Context, cacheKey string) ([]byte, error)
	SetCachedInsight(ctx context.Context, cacheKey string, data []byte, ttl time.Duration) error
	DeleteExpiredInsights(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by driver.
func New(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}
