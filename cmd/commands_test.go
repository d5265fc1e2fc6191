package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/export"
	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

const (
	suppliersCSV = "supplier_name,supplier_coords\nAcme,\"10,10\"\nGlobex,\"10.1,10.1\"\nInitech,\"50,50\"\n"
	officesYAML  = `offices:
  - name: Remote
    coordinates: "-30,-30"
  - name: Hub
    lat: 10
    lon: 10
`
)

// useTestConfig points the package config at a temp SQLite database.
func useTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(dir, "coverage.db")
	c.Analysis = config.AnalysisConfig{DefaultRadiusKM: 50, MinRadiusKM: 10, MaxRadiusKM: 500, Workers: 1}
	c.Offices.MaxPerUser = 6
	c.Insights.CacheTTLHours = 24
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAnalyzeFiles(t *testing.T) {
	dir := useTestConfig(t)
	sp := writeFile(t, dir, "suppliers.csv", suppliersCSV)
	op := writeFile(t, dir, "offices.yaml", officesYAML)

	run, err := analyzeFiles(context.Background(), sp, op, 50)
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "Hub", run.Results[0].OfficeName)
	assert.Equal(t, 2, run.Results[0].SuppliersCount)
	assert.Equal(t, 3, run.TotalSuppliers)

	_, err = analyzeFiles(context.Background(), sp, op, 5)
	assert.Error(t, err)
}

func TestWriteRun(t *testing.T) {
	run := coverage.Run{
		RadiusKM:       50,
		Offices:        1,
		TotalSuppliers: 2,
		Results: []coverage.Result{{
			Rank: 1, OfficeName: "Hub", SuppliersCount: 2, Coordinates: "10.000000, 10.000000",
		}},
	}

	var table bytes.Buffer
	require.NoError(t, writeRun(&table, run, "table"))
	assert.Contains(t, table.String(), "Rank | Office Name | Suppliers in Radius | Coordinates")
	assert.Contains(t, table.String(), "1    | Hub             | 2                  | 10.000000, 10.000000")

	var js bytes.Buffer
	require.NoError(t, writeRun(&js, run, "json"))
	var decoded coverage.Run
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "Hub", decoded.Results[0].OfficeName)

	assert.Error(t, writeRun(&js, run, "yaml"))
}

func TestInitEnv_ImportAnalyzeExport(t *testing.T) {
	dir := useTestConfig(t)
	ctx := context.Background()

	env, err := initEnv(ctx, prometheus.NewRegistry())
	require.NoError(t, err)
	defer env.Close()
	assert.False(t, env.Insights.Configured())

	ds, err := env.Analysis.ImportDataset(ctx, "u1", "suppliers.csv", strings.NewReader(suppliersCSV))
	require.NoError(t, err)
	hub, err := env.Analysis.AddOffice(ctx, "u1", "Hub", geo.Point{Lat: 10, Lon: 10})
	require.NoError(t, err)

	run, err := env.Analysis.Recompute(ctx, "u1", ds.ID, 50)
	require.NoError(t, err)
	require.Len(t, run.Results, 1)

	exportFlags.dataset, exportFlags.user, exportFlags.office = ds.ID, "u1", hub.ID
	t.Cleanup(func() { exportFlags.dataset, exportFlags.user, exportFlags.office = "", "", "" })

	var csvBuf bytes.Buffer
	require.NoError(t, renderExport(ctx, env, &csvBuf, export.FormatCSV, 50))
	assert.Contains(t, csvBuf.String(), "1,Hub,2,\"10.000000, 10.000000\",50,Acme; Globex")

	var geoBuf bytes.Buffer
	require.NoError(t, renderExport(ctx, env, &geoBuf, export.FormatGeoJSON, 50))
	assert.Contains(t, geoBuf.String(), `"FeatureCollection"`)

	_, err = os.Stat(filepath.Join(dir, "coverage.db"))
	assert.NoError(t, err)
}

func TestRenderExport_GeoJSONNeedsOffice(t *testing.T) {
	useTestConfig(t)
	env, err := initEnv(context.Background(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer env.Close()

	exportFlags.office = ""
	err = renderExport(context.Background(), env, &bytes.Buffer{}, export.FormatGeoJSON, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--office")
}

func TestLoadContext(t *testing.T) {
	cd, err := loadContext("")
	require.NoError(t, err)
	assert.Nil(t, cd)

	dir := t.TempDir()
	p := writeFile(t, dir, "ctx.json", `{"location":{"city":"Pune"},"population":{"city":"Pune","population":3124458}}`)
	cd, err = loadContext(p)
	require.NoError(t, err)
	assert.Equal(t, "Pune", cd.Location.City)
	assert.Equal(t, int64(3124458), cd.Population.Population)

	bad := writeFile(t, dir, "bad.json", `{`)
	_, err = loadContext(bad)
	assert.Error(t, err)
}

func TestFormatOffices(t *testing.T) {
	var buf bytes.Buffer
	formatOffices(&buf, nil)
	assert.Contains(t, buf.String(), "No offices found.")

	buf.Reset()
	formatOffices(&buf, []model.Office{{
		ID: "o1", Name: "Hub", Location: geo.Point{Lat: 10, Lon: 10},
		CreatedAt: time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}})
	out := buf.String()
	assert.Contains(t, out, "COORDINATES")
	assert.Contains(t, out, "10.000000, 10.000000")
	assert.Contains(t, out, "2026-03-09 12:00")
}
