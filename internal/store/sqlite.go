package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/coverage-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single writer connection keeps replace transactions serialised.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	filename        TEXT NOT NULL,
	total_suppliers INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS suppliers (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	dataset_id           TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	supplier_name        TEXT NOT NULL,
	latitude             REAL NOT NULL,
	longitude            REAL NOT NULL,
	original_coordinates TEXT,
	position             INTEGER NOT NULL,
	created_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS offices (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	office_name TEXT NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	dataset_id        TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	office_id         TEXT NOT NULL REFERENCES offices(id) ON DELETE CASCADE,
	office_name       TEXT NOT NULL,
	radius_km         REAL NOT NULL,
	suppliers_count   INTEGER NOT NULL,
	supplier_names    TEXT NOT NULL DEFAULT '[]',
	coordinates       TEXT NOT NULL,
	rank              INTEGER NOT NULL,
	contextual_data   TEXT,
	ai_recommendation TEXT,
	ai_swot_analysis  TEXT,
	created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS insight_cache (
	cache_key  TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_user ON datasets(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_suppliers_dataset ON suppliers(user_id, dataset_id, position);
CREATE INDEX IF NOT EXISTS idx_offices_user ON offices(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_key ON analyses(user_id, dataset_id, radius_km, rank);
CREATE INDEX IF NOT EXISTS idx_insight_cache_expires_at ON insight_cache(expires_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Datasets ---

func (s *SQLiteStore) CreateDataset(ctx context.Context, ds *model.Dataset, suppliers []model.Supplier) error {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	ds.CreatedAt = time.Now().UTC()
	ds.TotalSuppliers = len(suppliers)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin create dataset")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (id, user_id, filename, total_suppliers, created_at) VALUES (?, ?, ?, ?, ?)`,
		ds.ID, ds.UserID, ds.Filename, ds.TotalSuppliers, ds.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert dataset")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO suppliers (id, user_id, dataset_id, supplier_name, latitude, longitude, original_coordinates, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare supplier insert")
	}
	defer stmt.Close()

	for i := range suppliers {
		sp := &suppliers[i]
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		sp.UserID = ds.UserID
		sp.DatasetID = ds.ID
		sp.CreatedAt = ds.CreatedAt
		if _, err := stmt.ExecContext(ctx, sp.ID, sp.UserID, sp.DatasetID, sp.Name, sp.Location.Lat, sp.Location.Lon,
			sp.OriginalCoordinates, sp.Position, sp.CreatedAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert supplier row %d", sp.Position)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit create dataset")
}

func (s *SQLiteStore) GetDataset(ctx context.Context, userID, datasetID string) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, total_suppliers, created_at FROM datasets WHERE id = ? AND user_id = ?`,
		datasetID, userID,
	).Scan(&ds.ID, &ds.UserID, &ds.Filename, &ds.TotalSuppliers, &ds.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: dataset %s", datasetID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", datasetID)
	}
	return &ds, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context, userID string) ([]model.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, filename, total_suppliers, created_at FROM datasets WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	out := make([]model.Dataset, 0)
	for rows.Next() {
		var ds model.Dataset
		if err := rows.Scan(&ds.ID, &ds.UserID, &ds.Filename, &ds.TotalSuppliers, &ds.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		out = append(out, ds)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, userID, datasetID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ? AND user_id = ?`, datasetID, userID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete dataset %s", datasetID)
	}
	return checkRowsAffected(res, "dataset", datasetID)
}

func (s *SQLiteStore) ListSuppliers(ctx context.Context, userID, datasetID string) ([]model.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, dataset_id, supplier_name, latitude, longitude, original_coordinates, position, created_at
		 FROM suppliers WHERE user_id = ? AND dataset_id = ? ORDER BY position, id`,
		userID, datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suppliers")
	}
	defer rows.Close()

	out := make([]model.Supplier, 0)
	for rows.Next() {
		var sp model.Supplier
		var orig sql.NullString
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.DatasetID, &sp.Name, &sp.Location.Lat, &sp.Location.Lon,
			&orig, &sp.Position, &sp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan supplier")
		}
		sp.OriginalCoordinates = orig.String
		out = append(out, sp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list suppliers iterate")
}

// --- Offices ---

func (s *SQLiteStore) CreateOffice(ctx context.Context, o *model.Office) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offices (id, user_id, office_name, lat, lon, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Name, o.Location.Lat, o.Location.Lon, o.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert office")
}

func (s *SQLiteStore) GetOffice(ctx context.Context, userID, officeID string) (*model.Office, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, office_name, lat, lon, created_at FROM offices WHERE id = ? AND user_id = ?`,
		officeID, userID,
	)
	o, err := scanOffice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: office %s", officeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get office %s", officeID)
	}
	return o, nil
}

func (s *SQLiteStore) ListOffices(ctx context.Context, userID string) ([]model.Office, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, office_name, lat, lon, created_at FROM offices WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list offices")
	}
	defer rows.Close()

	out := make([]model.Office, 0)
	for rows.Next() {
		o, err := scanOffice(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan office")
		}
		out = append(out, *o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list offices iterate")
}

func (s *SQLiteStore) CountOffices(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offices WHERE user_id = ?`, userID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count offices")
}

func (s *SQLiteStore) DeleteOffice(ctx context.Context, userID, officeID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offices WHERE id = ? AND user_id = ?`, officeID, userID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete office %s", officeID)
	}
	return checkRowsAffected(res, "office", officeID)
}

// --- Analyses ---

func (s *SQLiteStore) ReplaceAnalyses(ctx context.Context, key model.AnalysisKey, recs []model.AnalysisRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace analyses")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM analyses WHERE user_id = ? AND dataset_id = ? AND radius_km = ?`,
		key.UserID, key.DatasetID, key.RadiusKM,
	); err != nil {
		return eris.Wrap(err, "sqlite: delete analyses")
	}

	for _, r := range recs {
		names := r.SupplierNames
		if names == nil {
			names = []string{}
		}
		namesJSON, err := json.Marshal(names)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal supplier names")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analyses (id, user_id, dataset_id, office_id, office_name, radius_km, suppliers_count,
			 supplier_names, coordinates, rank, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, key.UserID, key.DatasetID, r.OfficeID, r.OfficeName, key.RadiusKM, r.SuppliersCount,
			string(namesJSON), r.Coordinates, r.Rank, r.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert analysis for office %s", r.OfficeID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace analyses")
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, key model.AnalysisKey) ([]model.AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, dataset_id, office_id, office_name, radius_km, suppliers_count, supplier_names,
		 coordinates, rank, contextual_data, ai_recommendation, ai_swot_analysis, created_at
		 FROM analyses WHERE user_id = ? AND dataset_id = ? AND radius_km = ? ORDER BY rank`,
		key.UserID, key.DatasetID, key.RadiusKM,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	out := make([]model.AnalysisRecord, 0)
	for rows.Next() {
		var r model.AnalysisRecord
		var namesJSON string
		var ctxJSON, rec, swotJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.DatasetID, &r.OfficeID, &r.OfficeName, &r.RadiusKM,
			&r.SuppliersCount, &namesJSON, &r.Coordinates, &r.Rank,
			&ctxJSON, &rec, &swotJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		if err := json.Unmarshal([]byte(namesJSON), &r.SupplierNames); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal supplier names")
		}
		var recPtr *string
		if rec.Valid {
			recPtr = &rec.String
		}
		if err := decodeInsights(&r, []byte(ctxJSON.String), recPtr, []byte(swotJSON.String)); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode analysis")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) SaveRecommendation(ctx context.Context, key model.AnalysisKey, text string, cd *model.ContextualData) error {
	ctxJSON, err := nullableText(cd)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contextual data")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET ai_recommendation = ?, contextual_data = COALESCE(?, contextual_data)
		 WHERE user_id = ? AND dataset_id = ? AND radius_km = ?`,
		text, ctxJSON, key.UserID, key.DatasetID, key.RadiusKM,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save recommendation %s", key)
	}
	return checkRowsAffected(res, "analysis", key.String())
}

func (s *SQLiteStore) SaveSWOT(ctx context.Context, key model.AnalysisKey, officeID string, swot *model.SWOT, cd *model.ContextualData) error {
	swotJSON, err := json.Marshal(swot)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal swot")
	}
	ctxJSON, err := nullableText(cd)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contextual data")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET ai_swot_analysis = ?, contextual_data = COALESCE(?, contextual_data)
		 WHERE user_id = ? AND dataset_id = ? AND radius_km = ? AND office_id = ?`,
		string(swotJSON), ctxJSON, key.UserID, key.DatasetID, key.RadiusKM, officeID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save swot %s", key)
	}
	return checkRowsAffected(res, "analysis", key.String()+"/"+officeID)
}

// --- Insight cache ---

func (s *SQLiteStore) GetCachedInsight(ctx context.Context, cacheKey string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM insight_cache WHERE cache_key = ? AND expires_at > ?`,
		cacheKey, time.Now().UTC(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached insight")
	}
	return data, nil
}

func (s *SQLiteStore) SetCachedInsight(ctx context.Context, cacheKey string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO insight_cache (cache_key, data, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		cacheKey, data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached insight")
}

func (s *SQLiteStore) DeleteExpiredInsights(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM insight_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired insights")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOffice(row scannable) (*model.Office, error) {
	var o model.Office
	if err := row.Scan(&o.ID, &o.UserID, &o.Name, &o.Location.Lat, &o.Location.Lon, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func nullableText(cd *model.ContextualData) (sql.NullString, error) {
	if cd == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(cd)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
