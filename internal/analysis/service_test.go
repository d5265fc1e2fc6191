package analysis

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
	"github.com/sells-group/coverage-cli/internal/monitoring"
	"github.com/sells-group/coverage-cli/internal/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analysis = config.AnalysisConfig{
		DefaultRadiusKM:   50,
		MinRadiusKM:       10,
		MaxRadiusKM:       500,
		ParallelThreshold: 200000,
		Workers:           4,
	}
	cfg.Offices.MaxPerUser = 6
	return cfg
}

func newTestService(t *testing.T) (*Service, store.Store, *monitoring.Metrics) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	m, err := monitoring.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return NewService(st, testConfig(), m), st, m
}

const suppliersCSV = "supplier_name,supplier_coords\nS1,\"10,10\"\nS2,\"10.1,10.1\"\nS3,\"50,50\"\n"

func importSuppliers(t *testing.T, svc *Service, userID string) *model.Dataset {
	t.Helper()
	ds, err := svc.ImportDataset(context.Background(), userID, "suppliers.csv", strings.NewReader(suppliersCSV))
	require.NoError(t, err)
	return ds
}

func TestImportDataset(t *testing.T) {
	svc, st, _ := newTestService(t)
	ds := importSuppliers(t, svc, "u1")

	assert.Equal(t, 3, ds.TotalSuppliers)
	assert.Equal(t, "suppliers.csv", ds.Filename)

	suppliers, err := st.ListSuppliers(context.Background(), "u1", ds.ID)
	require.NoError(t, err)
	require.Len(t, suppliers, 3)
	assert.Equal(t, "S1", suppliers[0].Name)
	assert.Equal(t, "u1", suppliers[0].UserID)
}

func TestImportDataset_InvalidFileIsValidationError(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ImportDataset(context.Background(), "u1", "bad.csv", strings.NewReader("name\nx\n"))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "missing required column")
}

func TestAddOffice(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.AddOffice(ctx, "u1", "  Hub ", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)
	assert.Equal(t, "Hub", o.Name)
	assert.NotEmpty(t, o.ID)

	n, err := st.CountOffices(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddOffice_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddOffice(ctx, "u1", "", geo.Point{})
	assert.True(t, IsValidation(err))

	_, err = svc.AddOffice(ctx, "u1", "North Pole+", geo.Point{Lat: 91})
	assert.True(t, IsValidation(err))
}

func TestAddOffice_Limit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := range 6 {
		_, err := svc.AddOffice(ctx, "u1", "Office", geo.Point{Lat: float64(i), Lon: 0})
		require.NoError(t, err)
	}
	_, err := svc.AddOffice(ctx, "u1", "Seventh", geo.Point{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOfficeLimit))

	// Limit is per user.
	_, err = svc.AddOffice(ctx, "u2", "First", geo.Point{})
	assert.NoError(t, err)
}

func TestAddOffice_ConcurrentLimit(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddOffice(ctx, "u1", "Office", geo.Point{Lat: 1, Lon: 1})
		}()
	}
	wg.Wait()

	n, err := st.CountOffices(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestRecompute_EndToEnd(t *testing.T) {
	svc, st, m := newTestService(t)
	ctx := context.Background()

	ds := importSuppliers(t, svc, "u1")
	_, err := svc.AddOffice(ctx, "u1", "Hub", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)
	_, err = svc.AddOffice(ctx, "u1", "Far", geo.Point{Lat: -30, Lon: -30})
	require.NoError(t, err)

	run, err := svc.Recompute(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	require.Len(t, run.Results, 2)

	best, ok := run.Best()
	require.True(t, ok)
	assert.Equal(t, "Hub", best.OfficeName)
	assert.Equal(t, 2, best.SuppliersCount)
	assert.Equal(t, 1, best.Rank)
	assert.Equal(t, "10.000000, 10.000000", best.Coordinates)
	assert.Equal(t, []string{"S1", "S2"}, best.SupplierNames)
	assert.Equal(t, 0, run.Results[1].SuppliersCount)
	assert.Equal(t, 2, run.Results[1].Rank)

	recs, err := st.ListAnalyses(ctx, model.AnalysisKey{UserID: "u1", DatasetID: ds.ID, RadiusKM: 50})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Hub", recs[0].OfficeName)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("ok")))
}

func TestRecompute_ReplacesPreviousRun(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ds := importSuppliers(t, svc, "u1")
	_, err := svc.AddOffice(ctx, "u1", "Hub", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)

	_, err = svc.Recompute(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	_, err = svc.Recompute(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)

	recs, err := st.ListAnalyses(ctx, model.AnalysisKey{UserID: "u1", DatasetID: ds.ID, RadiusKM: 50})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRecompute_ConcurrentSameKey(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ds := importSuppliers(t, svc, "u1")
	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.AddOffice(ctx, "u1", name, geo.Point{Lat: 10, Lon: 10})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Recompute(ctx, "u1", ds.ID, 100)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recs, err := st.ListAnalyses(ctx, model.AnalysisKey{UserID: "u1", DatasetID: ds.ID, RadiusKM: 100})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Zero(t, svc.runLocks.size())
}

func TestRecompute_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Recompute(ctx, "u1", "missing", 50)
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))

	_, err = svc.Recompute(ctx, "u1", "missing", 5)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	ds := importSuppliers(t, svc, "u1")
	_, err = svc.Recompute(ctx, "u2", ds.ID, 50)
	assert.True(t, eris.Is(err, store.ErrNotFound), "datasets are scoped to their owner")
}

func TestRecompute_NoOffices(t *testing.T) {
	svc, _, _ := newTestService(t)
	ds := importSuppliers(t, svc, "u1")

	run, err := svc.Recompute(context.Background(), "u1", ds.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, run.Results)
	assert.Equal(t, 3, run.TotalSuppliers)
}

func TestCurrent_ComputesOnMissAndAfterOfficeChange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ds := importSuppliers(t, svc, "u1")
	_, err := svc.AddOffice(ctx, "u1", "Hub", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)

	run, recs, err := svc.Current(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, run.TotalSuppliers)
	assert.Equal(t, 2, run.Results[0].SuppliersCount)
	assert.InDelta(t, 10.0, run.Results[0].Latitude, 1e-9)

	_, err = svc.AddOffice(ctx, "u1", "Far", geo.Point{Lat: 50, Lon: 50})
	require.NoError(t, err)

	run, recs, err = svc.Current(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, run.Offices)
}

func TestCurrent_NoOfficesSkipsRecompute(t *testing.T) {
	svc, st, m := newTestService(t)
	ctx := context.Background()
	ds := importSuppliers(t, svc, "u1")
	runs := m.AnalysisRuns.WithLabelValues("ok")

	for range 2 {
		run, recs, err := svc.Current(ctx, "u1", ds.ID, 50)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.Empty(t, run.Results)
		assert.Equal(t, 3, run.TotalSuppliers)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(runs))

	office, err := svc.AddOffice(ctx, "u1", "Hub", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)
	_, recs, err := svc.Current(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(runs))

	require.NoError(t, st.DeleteOffice(ctx, "u1", office.ID))
	_, recs, err = svc.Current(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, recs)
	after := testutil.ToFloat64(runs)

	_, _, err = svc.Current(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, after, testutil.ToFloat64(runs))
}

func TestCompute_Offline(t *testing.T) {
	svc := NewService(nil, testConfig(), nil)

	suppliers := []model.Supplier{
		{Name: "S1", Location: geo.Point{Lat: 10, Lon: 10}},
		{Name: "S2", Location: geo.Point{Lat: 10.1, Lon: 10.1}},
		{Name: "S3", Location: geo.Point{Lat: 50, Lon: 50}},
	}
	offices := []model.Office{{ID: "o1", Name: "Hub", Location: geo.Point{Lat: 10, Lon: 10}}}

	run, err := svc.Compute(context.Background(), "offline", suppliers, offices, 50)
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, 2, run.Results[0].SuppliersCount)
	assert.InDelta(t, 66.67, run.Share(run.Results[0]), 0.01)

	_, err = svc.Compute(context.Background(), "offline", suppliers, offices, 600)
	assert.True(t, IsValidation(err))
}

func TestCompute_ConcurrentPathMatchesSequential(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.ParallelThreshold = 1
	concurrent := NewService(nil, cfg, nil)
	sequential := NewService(nil, testConfig(), nil)

	var suppliers []model.Supplier
	for i := range 50 {
		suppliers = append(suppliers, model.Supplier{Name: "S", Location: geo.Point{Lat: float64(i) * 0.2, Lon: 0}})
	}
	offices := []model.Office{
		{ID: "a", Name: "A", Location: geo.Point{Lat: 0, Lon: 0}},
		{ID: "b", Name: "B", Location: geo.Point{Lat: 5, Lon: 0}},
		{ID: "c", Name: "C", Location: geo.Point{Lat: 9, Lon: 0}},
	}

	a, err := concurrent.Compute(context.Background(), "d", suppliers, offices, 100)
	require.NoError(t, err)
	b, err := sequential.Compute(context.Background(), "d", suppliers, offices, 100)
	require.NoError(t, err)
	assert.Equal(t, b.Results, a.Results)
}

func TestCompute_Cancelled(t *testing.T) {
	svc := NewService(nil, testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Compute(ctx, "d", nil, nil, 50)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupplierDistances(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ds := importSuppliers(t, svc, "u1")
	o, err := svc.AddOffice(ctx, "u1", "Hub", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)

	office, dists, err := svc.SupplierDistances(ctx, "u1", ds.ID, o.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, "Hub", office.Name)
	require.Len(t, dists, 3)

	assert.Zero(t, dists[0].DistanceKM)
	assert.True(t, dists[0].Within)
	assert.True(t, dists[1].Within)
	assert.False(t, dists[2].Within)
	exact := geo.Distance(geo.Point{Lat: 10, Lon: 10}, geo.Point{Lat: 10.1, Lon: 10.1})
	assert.InDelta(t, exact, dists[1].DistanceKM, 0.005)

	_, _, err = svc.SupplierDistances(ctx, "u1", ds.ID, "nope", 50)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	var k keyedMutex
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}
