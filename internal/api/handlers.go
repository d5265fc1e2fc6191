package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/coverage-cli/internal/export"
	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

func (s *server) listDatasets(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListDatasets(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) createDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close() //nolint:errcheck

	ds, err := s.analysis.ImportDataset(r.Context(), userID(r), hdr.Filename, file)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

func (s *server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDataset(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listOffices(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListOffices(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) createOffice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Coordinates string `json:"coordinates"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc, err := geo.ParseCoordinates(req.Coordinates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := s.analysis.AddOffice(r.Context(), userID(r), req.Name, loc)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *server) deleteOffice(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteOffice(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) runAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DatasetID string  `json:"dataset_id"`
		RadiusKM  *float64 `json:"radius_km"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.DatasetID) == "" {
		writeError(w, http.StatusBadRequest, "dataset_id is required")
		return
	}

	run, err := s.analysis.Recompute(r.Context(), userID(r), req.DatasetID, s.radiusOrDefault(req.RadiusKM))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	radius, err := s.radiusParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, recs, err := s.analysis.Current(r.Context(), userID(r), chi.URLParam(r, "datasetID"), radius)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"records": recs,
	})
}

func (s *server) exportAnalysis(w http.ResponseWriter, r *http.Request) {
	radius, err := s.radiusParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(formatName)
	if err != nil || format == export.FormatGeoJSON {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", formatName))
		return
	}

	run, recs, err := s.analysis.Current(r.Context(), userID(r), chi.URLParam(r, "datasetID"), radius)
	if err != nil {
		fail(w, r, err)
		return
	}

	var opts export.Options
	if len(recs) > 0 {
		opts.Recommendation = recs[0].AIRecommendation
	}

	// Render fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, run, opts); err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(radius, format, s.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *server) mapOverlay(w http.ResponseWriter, r *http.Request) {
	radius, err := s.radiusParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	officeID := r.URL.Query().Get("office_id")
	if officeID == "" {
		writeError(w, http.StatusBadRequest, "office_id is required")
		return
	}

	office, distances, err := s.analysis.SupplierDistances(r.Context(), userID(r), chi.URLParam(r, "datasetID"), officeID, radius)
	if err != nil {
		fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOverlay(&buf, *office, radius, distances); err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.FormatGeoJSON.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

type insightRequest struct {
	RadiusKM *float64              `json:"radius_km"`
	OfficeID string                `json:"office_id"`
	Context  *model.ContextualData `json:"context"`
}

func (s *server) recommend(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.insights.Recommend(r.Context(), userID(r), chi.URLParam(r, "datasetID"), s.radiusOrDefault(req.RadiusKM), req.Context)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recommendation": text})
}

func (s *server) swot(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OfficeID == "" {
		writeError(w, http.StatusBadRequest, "office_id is required")
		return
	}

	swot, err := s.insights.SWOT(r.Context(), userID(r), chi.URLParam(r, "datasetID"), req.OfficeID, s.radiusOrDefault(req.RadiusKM), req.Context)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"swot": swot})
}
