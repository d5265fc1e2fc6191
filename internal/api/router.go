// Package api serves the coverage engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/insights"
	"github.com/sells-group/coverage-cli/internal/monitoring"
	"github.com/sells-group/coverage-cli/internal/store"
)

// UserHeader identifies the caller. Authentication happens upstream.
const UserHeader = "X-User-ID"

// maxUploadBytes caps supplier file uploads.
const maxUploadBytes = 32 << 20

// Deps are the collaborators the handlers need. Metrics may be nil.
type Deps struct {
	Store    store.Store
	Analysis *analysis.Service
	Insights *insights.Service
	Metrics  *monitoring.Metrics
	Config   *config.Config
	// Now is used for export filenames. Defaults to time.Now.
	Now func() time.Time
}

type server struct {
	store         store.Store
	analysis      *analysis.Service
	insights      *insights.Service
	defaultRadius float64
	now           func() time.Time
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	s := &server{
		store:         d.Store,
		analysis:      d.Analysis,
		insights:      d.Insights,
		defaultRadius: d.Config.Analysis.DefaultRadiusKM,
		now:           d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	origins := d.Config.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", UserHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(d.Metrics.Middleware)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", s.listDatasets)
			r.Post("/", s.createDataset)
			r.Delete("/{id}", s.deleteDataset)
		})

		r.Route("/offices", func(r chi.Router) {
			r.Get("/", s.listOffices)
			r.Post("/", s.createOffice)
			r.Delete("/{id}", s.deleteOffice)
		})

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.runAnalysis)
			r.Get("/{datasetID}", s.getAnalysis)
			r.Get("/{datasetID}/export", s.exportAnalysis)
			r.Get("/{datasetID}/map", s.mapOverlay)
			r.Post("/{datasetID}/recommendation", s.recommend)
			r.Post("/{datasetID}/swot", s.swot)
		})
	})

	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
