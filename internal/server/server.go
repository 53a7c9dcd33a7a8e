// Package server exposes the VCMS pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/monitoring"
	"github.com/sells-group/vcms/internal/pipeline"
	"github.com/sells-group/vcms/internal/scorer"
	"github.com/sells-group/vcms/internal/store"
)

// UserHeader carries the id of the user a processed vendor is attributed to.
const UserHeader = "X-User-ID"

// Processor runs the pipeline for one media id.
type Processor interface {
	ProcessVendorMedia(ctx context.Context, mediaID, userID string) pipeline.Result
}

// Server holds the HTTP handlers.
type Server struct {
	store       store.Store
	processor   Processor
	collector   *monitoring.Collector
	gatherer    prometheus.Gatherer
	corsOrigins []string
}

// New creates a Server. gatherer may be nil to serve the default registry.
func New(st store.Store, proc Processor, gatherer prometheus.Gatherer, corsOrigins []string) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		store:       st,
		processor:   proc,
		collector:   monitoring.NewCollector(st),
		gatherer:    gatherer,
		corsOrigins: corsOrigins,
	}
}

// Routes returns the router with all endpoints mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", UserHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/stats", s.stats)
	r.Post("/score", s.score)

	r.Route("/media", func(r chi.Router) {
		r.Post("/", s.registerMedia)
		r.Post("/{mediaID}/process", s.processMedia)
	})
	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", s.listVendors)
		r.Get("/{vendorID}", s.getVendor)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var in model.ScoreInputs
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := scorer.ValidateInputs(in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, scorer.ScoreInputs(in))
}

func (s *Server) registerMedia(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.URL == "" {
		writeErrorMsg(w, http.StatusBadRequest, "id and url are required")
		return
	}

	asset := &model.MediaAsset{ID: req.ID, URL: req.URL}
	if err := s.store.UpsertMediaAsset(r.Context(), asset); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *Server) processMedia(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeErrorMsg(w, http.StatusBadRequest, UserHeader+" header is required")
		return
	}

	res := s.processor.ProcessVendorMedia(r.Context(), chi.URLParam(r, "mediaID"), userID)
	writeJSON(w, resultStatus(res), res)
}

// resultStatus maps a pipeline result onto an HTTP status.
func resultStatus(res pipeline.Result) int {
	switch {
	case res.Success && res.Replayed:
		return http.StatusOK
	case res.Success:
		return http.StatusCreated
	case res.State == pipeline.StateMediaNotFound:
		return http.StatusNotFound
	case errors.Is(res.Err, pipeline.ErrInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.VendorFilter{
		ValidationStatus: model.ValidationStatus(q.Get("status")),
	}
	switch filter.ValidationStatus {
	case "", model.ValidationValidated, model.ValidationAmbiguous:
	default:
		writeErrorMsg(w, http.StatusBadRequest, "status must be VALIDATED or AMBIGUOUS")
		return
	}

	for name, dst := range map[string]*int{
		"min_score": &filter.MinScore,
		"limit":     &filter.Limit,
		"offset":    &filter.Offset,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErrorMsg(w, http.StatusBadRequest, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	vendors, err := s.store.ListVendorProfiles(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if vendors == nil {
		vendors = []model.VendorProfile{}
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetVendorProfile(r.Context(), chi.URLParam(r, "vendorID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorMsg(w, http.StatusNotFound, "vendor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed", zap.Error(err))
	}
	writeErrorMsg(w, status, err.Error())
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
