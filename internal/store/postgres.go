package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/db"
	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

// PostgresStore implements Store using pgxpool and PostGIS.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlListSuppliers = `SELECT id, user_id, dataset_id, supplier_name, latitude, longitude, original_coordinates, position, created_at
		FROM suppliers WHERE user_id = $1 AND dataset_id = $2 ORDER BY position, id`
	sqlListOffices = `SELECT id, user_id, office_name, lat, lon, created_at
		FROM offices WHERE user_id = $1 ORDER BY created_at DESC, id`
	sqlListAnalyses = `SELECT id, user_id, dataset_id, office_id, office_name, radius_km, suppliers_count, supplier_names,
		coordinates, rank, contextual_data, ai_recommendation, ai_swot_analysis, created_at
		FROM analyses WHERE user_id = $1 AND dataset_id = $2 AND radius_km = $3 ORDER BY rank`
)

// preparedStatements lists queries to prepare on each new connection. These
// run on every recompute and every page load.
var preparedStatements = map[string]string{
	"list_suppliers": sqlListSuppliers,
	"list_offices":   sqlListOffices,
	"list_analyses":  sqlListAnalyses,
}

var supplierColumns = []string{
	"id", "user_id", "dataset_id", "supplier_name", "latitude", "longitude",
	"original_coordinates", "position", "created_at",
}

var analysisColumns = []string{
	"id", "user_id", "dataset_id", "office_id", "office_name", "radius_km",
	"suppliers_count", "supplier_names", "coordinates", "rank", "created_at",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS datasets (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	filename        TEXT NOT NULL,
	total_suppliers INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS suppliers (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	dataset_id           TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	supplier_name        TEXT NOT NULL,
	latitude             DOUBLE PRECISION NOT NULL,
	longitude            DOUBLE PRECISION NOT NULL,
	original_coordinates TEXT,
	position             INTEGER NOT NULL,
	geom                 geometry(Point, 4326),
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS offices (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	office_name TEXT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	geom        geometry(Point, 4326),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	dataset_id        TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	office_id         TEXT NOT NULL REFERENCES offices(id) ON DELETE CASCADE,
	office_name       TEXT NOT NULL,
	radius_km         DOUBLE PRECISION NOT NULL,
	suppliers_count   INTEGER NOT NULL,
	supplier_names    TEXT[] NOT NULL DEFAULT '{}',
	coordinates       TEXT NOT NULL,
	rank              INTEGER NOT NULL,
	contextual_data   JSONB,
	ai_recommendation TEXT,
	ai_swot_analysis  JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS insight_cache (
	cache_key  TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_user ON datasets(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_suppliers_dataset ON suppliers(user_id, dataset_id, position);
CREATE INDEX IF NOT EXISTS idx_suppliers_geom ON suppliers USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_offices_user ON offices(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_key ON analyses(user_id, dataset_id, radius_km, rank);
CREATE INDEX IF NOT EXISTS idx_insight_cache_expires_at ON insight_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Datasets ---

func (s *PostgresStore) CreateDataset(ctx context.Context, ds *model.Dataset, suppliers []model.Supplier) error {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	ds.CreatedAt = time.Now().UTC()
	ds.TotalSuppliers = len(suppliers)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin create dataset")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO datasets (id, user_id, filename, total_suppliers, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ds.ID, ds.UserID, ds.Filename, ds.TotalSuppliers, ds.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert dataset")
	}

	rows := make([][]any, len(suppliers))
	for i := range suppliers {
		sp := &suppliers[i]
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		sp.UserID = ds.UserID
		sp.DatasetID = ds.ID
		sp.CreatedAt = ds.CreatedAt
		rows[i] = []any{
			sp.ID, sp.UserID, sp.DatasetID, sp.Name, sp.Location.Lat, sp.Location.Lon,
			sp.OriginalCoordinates, sp.Position, sp.CreatedAt,
		}
	}
	if _, err := db.CopyFrom(ctx, tx, "suppliers", supplierColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy suppliers")
	}

	if len(rows) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE suppliers SET geom = ST_SetSRID(ST_MakePoint(longitude, latitude), 4326) WHERE dataset_id = $1`,
			ds.ID,
		); err != nil {
			return eris.Wrap(err, "postgres: set supplier geometry")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit create dataset")
}

func (s *PostgresStore) GetDataset(ctx context.Context, userID, datasetID string) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, total_suppliers, created_at FROM datasets WHERE id = $1 AND user_id = $2`,
		datasetID, userID,
	).Scan(&ds.ID, &ds.UserID, &ds.Filename, &ds.TotalSuppliers, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: dataset %s", datasetID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset %s", datasetID)
	}
	return &ds, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context, userID string) ([]model.Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, filename, total_suppliers, created_at FROM datasets WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	out := make([]model.Dataset, 0)
	for rows.Next() {
		var ds model.Dataset
		if err := rows.Scan(&ds.ID, &ds.UserID, &ds.Filename, &ds.TotalSuppliers, &ds.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		out = append(out, ds)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) DeleteDataset(ctx context.Context, userID, datasetID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1 AND user_id = $2`, datasetID, userID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete dataset %s", datasetID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: dataset %s", datasetID)
	}
	return nil
}

func (s *PostgresStore) ListSuppliers(ctx context.Context, userID, datasetID string) ([]model.Supplier, error) {
	rows, err := s.pool.Query(ctx, sqlListSuppliers, userID, datasetID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suppliers")
	}
	defer rows.Close()

	out := make([]model.Supplier, 0)
	for rows.Next() {
		var sp model.Supplier
		var orig *string
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.DatasetID, &sp.Name, &sp.Location.Lat, &sp.Location.Lon,
			&orig, &sp.Position, &sp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan supplier")
		}
		if orig != nil {
			sp.OriginalCoordinates = *orig
		}
		out = append(out, sp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list suppliers iterate")
}

// --- Offices ---

func (s *PostgresStore) CreateOffice(ctx context.Context, o *model.Office) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = time.Now().UTC()

	wkb, err := geo.EncodeEWKB(o.Location)
	if err != nil {
		return eris.Wrap(err, "postgres: encode office geometry")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO offices (id, user_id, office_name, lat, lon, geom, created_at)
		 VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6), $7)`,
		o.ID, o.UserID, o.Name, o.Location.Lat, o.Location.Lon, wkb, o.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert office")
}

func (s *PostgresStore) GetOffice(ctx context.Context, userID, officeID string) (*model.Office, error) {
	var o model.Office
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, office_name, lat, lon, created_at FROM offices WHERE id = $1 AND user_id = $2`,
		officeID, userID,
	).Scan(&o.ID, &o.UserID, &o.Name, &o.Location.Lat, &o.Location.Lon, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: office %s", officeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get office %s", officeID)
	}
	return &o, nil
}

func (s *PostgresStore) ListOffices(ctx context.Context, userID string) ([]model.Office, error) {
	rows, err := s.pool.Query(ctx, sqlListOffices, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list offices")
	}
	defer rows.Close()

	out := make([]model.Office, 0)
	for rows.Next() {
		var o model.Office
		if err := rows.Scan(&o.ID, &o.UserID, &o.Name, &o.Location.Lat, &o.Location.Lon, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan office")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list offices iterate")
}

func (s *PostgresStore) CountOffices(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offices WHERE user_id = $1`, userID).Scan(&n)
	return n, eris.Wrap(err, "postgres: count offices")
}

func (s *PostgresStore) DeleteOffice(ctx context.Context, userID, officeID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM offices WHERE id = $1 AND user_id = $2`, officeID, userID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete office %s", officeID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: office %s", officeID)
	}
	return nil
}

// --- Analyses ---

// ReplaceAnalyses deletes every row for key and inserts recs in a single
// transaction guarded by an advisory lock on the key.
func (s *PostgresStore) ReplaceAnalyses(ctx context.Context, key model.AnalysisKey, recs []model.AnalysisRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace analyses")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := db.AdvisoryXactLock(ctx, tx, key.String()); err != nil {
		return eris.Wrap(err, "postgres: replace analyses")
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM analyses WHERE user_id = $1 AND dataset_id = $2 AND radius_km = $3`,
		key.UserID, key.DatasetID, key.RadiusKM,
	); err != nil {
		return eris.Wrap(err, "postgres: delete analyses")
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		names := r.SupplierNames
		if names == nil {
			names = []string{}
		}
		rows[i] = []any{
			r.ID, key.UserID, key.DatasetID, r.OfficeID, r.OfficeName, key.RadiusKM,
			r.SuppliersCount, names, r.Coordinates, r.Rank, r.CreatedAt,
		}
	}
	if _, err := db.CopyFrom(ctx, tx, "analyses", analysisColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: insert analyses")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace analyses")
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, key model.AnalysisKey) ([]model.AnalysisRecord, error) {
	rows, err := s.pool.Query(ctx, sqlListAnalyses, key.UserID, key.DatasetID, key.RadiusKM)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	out := make([]model.AnalysisRecord, 0)
	for rows.Next() {
		var r model.AnalysisRecord
		var ctxJSON, swotJSON []byte
		var rec *string
		if err := rows.Scan(&r.ID, &r.UserID, &r.DatasetID, &r.OfficeID, &r.OfficeName, &r.RadiusKM,
			&r.SuppliersCount, &r.SupplierNames, &r.Coordinates, &r.Rank,
			&ctxJSON, &rec, &swotJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		if err := decodeInsights(&r, ctxJSON, rec, swotJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: decode analysis")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) SaveRecommendation(ctx context.Context, key model.AnalysisKey, text string, cd *model.ContextualData) error {
	ctxJSON, err := marshalNullable(cd)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contextual data")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET ai_recommendation = $1, contextual_data = COALESCE($2, contextual_data)
		 WHERE user_id = $3 AND dataset_id = $4 AND radius_km = $5`,
		text, ctxJSON, key.UserID, key.DatasetID, key.RadiusKM,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save recommendation %s", key)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: analysis %s", key)
	}
	return nil
}

func (s *PostgresStore) SaveSWOT(ctx context.Context, key model.AnalysisKey, officeID string, swot *model.SWOT, cd *model.ContextualData) error {
	swotJSON, err := json.Marshal(swot)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal swot")
	}
	ctxJSON, err := marshalNullable(cd)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contextual data")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET ai_swot_analysis = $1, contextual_data = COALESCE($2, contextual_data)
		 WHERE user_id = $3 AND dataset_id = $4 AND radius_km = $5 AND office_id = $6`,
		swotJSON, ctxJSON, key.UserID, key.DatasetID, key.RadiusKM, officeID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save swot %s", key)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: analysis %s office %s", key, officeID)
	}
	return nil
}

// --- Insight cache ---

func (s *PostgresStore) GetCachedInsight(ctx context.Context, cacheKey string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM insight_cache WHERE cache_key = $1 AND expires_at > now()`,
		cacheKey,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached insight")
	}
	return data, nil
}

func (s *PostgresStore) SetCachedInsight(ctx context.Context, cacheKey string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO insight_cache (cache_key, data, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cache_key) DO UPDATE SET data = EXCLUDED.data, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		cacheKey, data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached insight")
}

func (s *PostgresStore) DeleteExpiredInsights(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM insight_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired insights")
	}
	return int(tag.RowsAffected()), nil
}

// helpers

// marshalNullable encodes v as JSON, returning nil for a nil pointer so the
// column is left untouched by COALESCE.
func marshalNullable(cd *model.ContextualData) ([]byte, error) {
	if cd == nil {
		return nil, nil
	}
	return json.Marshal(cd)
}

func decodeInsights(r *model.AnalysisRecord, ctxJSON []byte, rec *string, swotJSON []byte) error {
	if len(ctxJSON) > 0 {
		r.ContextualData = &model.ContextualData{}
		if err := json.Unmarshal(ctxJSON, r.ContextualData); err != nil {
			return eris.Wrap(err, "unmarshal contextual data")
		}
	}
	if rec != nil {
		r.AIRecommendation = *rec
	}
	if len(swotJSON) > 0 {
		r.AISWOT = &model.SWOT{}
		if err := json.Unmarshal(swotJSON, r.AISWOT); err != nil {
			return eris.Wrap(err, "unmarshal swot")
		}
	}
	return nil
}
