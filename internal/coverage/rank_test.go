package coverage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-cli/internal/model"
)

func coverageOf(name string, n int) OfficeCoverage {
	c := OfficeCoverage{Office: office(name, 0, 0)}
	for i := 0; i < n; i++ {
		c.Suppliers = append(c.Suppliers, supplier(name, 0, 0))
	}
	return c
}

func TestRank_DescendingDense(t *testing.T) {
	got := Rank(50, []OfficeCoverage{
		coverageOf("A", 1),
		coverageOf("B", 5),
		coverageOf("C", 3),
	})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "C", "A"}, officeNames(got))
	for i, r := range got {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, 50.0, r.RadiusKM)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	got := Rank(50, []OfficeCoverage{
		coverageOf("X", 2),
		coverageOf("Y", 4),
		coverageOf("Z", 2),
		coverageOf("W", 2),
	})
	assert.Equal(t, []string{"Y", "X", "Z", "W"}, officeNames(got))
	assert.Equal(t, []int{1, 2, 3, 4}, ranks(got))
}

func TestRank_Empty(t *testing.T) {
	got := Rank(50, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_AllZero(t *testing.T) {
	got := Rank(10, []OfficeCoverage{coverageOf("A", 0), coverageOf("B", 0)})
	assert.Equal(t, []string{"A", "B"}, officeNames(got))
	assert.Equal(t, []int{1, 2}, ranks(got))
	assert.Equal(t, []string{}, got[0].SupplierNames)
}

func TestCompute_EndToEnd(t *testing.T) {
	suppliers := []model.Supplier{
		supplier("S1", 10.0, 10.0),
		supplier("S2", 10.1, 10.1),
		supplier("S3", 50.0, 50.0),
	}
	offices := []model.Office{office("Hub", 10.0, 10.0)}

	run := Compute("ds-1", suppliers, offices, 50)

	require.Len(t, run.Results, 1)
	res := run.Results[0]
	assert.Equal(t, "Hub", res.OfficeName)
	assert.Equal(t, 2, res.SuppliersCount)
	assert.Equal(t, []string{"S1", "S2"}, res.SupplierNames)
	assert.Equal(t, 1, res.Rank)
	assert.Equal(t, "10.000000, 10.000000", res.Coordinates)
	assert.Equal(t, 3, run.TotalSuppliers)
	assert.Equal(t, 1, run.Offices)
	assert.InDelta(t, 66.666, run.Share(res), 0.01)
}

func TestCompute_ZeroSuppliers(t *testing.T) {
	offices := []model.Office{office("A", 0, 0), office("B", 1, 1), office("C", 2, 2)}
	run := Compute("ds", nil, offices, 50)

	require.Len(t, run.Results, 3)
	assert.Equal(t, []string{"A", "B", "C"}, officeNames(run.Results))
	for _, r := range run.Results {
		assert.Equal(t, 0, r.SuppliersCount)
		assert.Equal(t, 0.0, run.Share(r))
	}
}

func TestCompute_ZeroOffices(t *testing.T) {
	run := Compute("ds", []model.Supplier{supplier("s", 0, 0)}, nil, 50)
	assert.NotNil(t, run.Results)
	assert.Empty(t, run.Results)
	_, ok := run.Best()
	assert.False(t, ok)
}

func TestCompute_Idempotent(t *testing.T) {
	suppliers := []model.Supplier{
		supplier("a", 28.61, 77.20), supplier("b", 28.70, 77.10),
		supplier("c", 19.07, 72.87), supplier("d", 12.97, 77.59),
	}
	offices := []model.Office{
		office("Delhi", 28.6139, 77.2090),
		office("Mumbai", 19.0760, 72.8777),
		office("Bengaluru", 12.9716, 77.5946),
	}

	first := Compute("ds", suppliers, offices, 100)
	second := Compute("ds", suppliers, offices, 100)
	assert.Equal(t, first.Results, second.Results)

	conc, err := ComputeConcurrent(context.Background(), "ds", suppliers, offices, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, first.Results, conc.Results)
}

func TestRun_BestAndRecords(t *testing.T) {
	suppliers := []model.Supplier{supplier("a", 0, 0), supplier("b", 0.1, 0), supplier("c", 5, 5)}
	offices := []model.Office{office("Far", 5, 5), office("Near", 0, 0)}
	run := Compute("ds-9", suppliers, offices, 20)

	best, ok := run.Best()
	require.True(t, ok)
	assert.Equal(t, "Near", best.OfficeName)

	recs := run.Records("user-1")
	require.Len(t, recs, 2)
	assert.Equal(t, "user-1", recs[0].UserID)
	assert.Equal(t, "ds-9", recs[0].DatasetID)
	assert.Equal(t, 20.0, recs[0].RadiusKM)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, []string{"a", "b"}, recs[0].SupplierNames)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)

	back := FromRecords(recs)
	assert.Equal(t, run.Results, back)
}

func officeNames(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.OfficeName
	}
	return out
}

func ranks(rs []Result) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.Rank
	}
	return out
}
