package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/search/request"
	"github.com/kailas-cloud/csindex/internal/metrics"
	"github.com/kailas-cloud/csindex/internal/registry"
	healthuc "github.com/kailas-cloud/csindex/internal/usecase/health"
	lifecycleuc "github.com/kailas-cloud/csindex/internal/usecase/lifecycle"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
	pipelineuc "github.com/kailas-cloud/csindex/internal/usecase/pipeline"
	reconcileuc "github.com/kailas-cloud/csindex/internal/usecase/reconcile"
	recordsuc "github.com/kailas-cloud/csindex/internal/usecase/records"
	searchuc "github.com/kailas-cloud/csindex/internal/usecase/search"
	"github.com/kailas-cloud/csindex/internal/version"
)

// maxBodyBytes caps request bodies; one upload batch is at most 5 MB.
const maxBodyBytes = 6 << 20

// Services bundles the use cases the API exposes. Records may be nil.
type Services struct {
	Registry   *registry.Registry
	Namer      *naming.Namer
	Reconciler *reconcileuc.Service
	Lifecycle  *lifecycleuc.Service
	Pipeline   *pipelineuc.Service
	Search     *searchuc.Service
	Records    *recordsuc.Service
	Health     *healthuc.Service
}

// Options configures the API.
type Options struct {
	APIKeys []string
	// AccessIP is granted by the access route when the body names none.
	AccessIP string
	// RetryAfter is sent with 503 responses for busy domains.
	RetryAfter time.Duration
}

// Server serves the admin and search API.
type Server struct {
	svc           Services
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = lifecycleuc.DefaultInterval
	}
	return &Server{
		svc:           svc,
		opts:          opts,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(strconv.Itoa(int(opts.RetryAfter.Seconds()))),
	}
}

// Routes builds the router with the standard middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware(s.logger))

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/indexes", s.ListIndexes)
	r.Post("/setup", s.Setup)
	r.Post("/clear", s.Clear)
	r.Get("/search", s.SearchQuery)
	r.Post("/search", s.Search)
	r.Delete("/documents/{identifier}", s.RemoveDocument)

	r.Route("/indexes/{index}", func(r chi.Router) {
		r.Use(IndexScope)
		r.Post("/documents", s.UpdateDocuments)
		r.Post("/access", s.EnableAccess)
		r.Post("/reindex", s.Reindex)
		r.Post("/sync", s.Sync)
	})

	r.Get("/records/{type}/{pk}", s.GetRecord)
	r.Put("/records/{type}/{pk}", s.PutRecord)
	r.Delete("/records/{type}/{pk}", s.DeleteRecord)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Version: version.String(), Checks: checks})
}

// ListIndexes handles GET /indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes := s.svc.Registry.Indexes()
	out := make([]IndexResponse, 0, len(indexes))
	for _, idx := range indexes {
		name, err := s.svc.Namer.NameFor(idx)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		fields := make([]string, len(idx.Fields()))
		for i, f := range idx.Fields() {
			fields[i] = f.Name
		}
		out = append(out, IndexResponse{
			Name:       idx.Name(),
			RecordType: idx.RecordType().String(),
			Domain:     name,
			Fields:     fields,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Setup handles POST /setup: a forced reconcile pass.
func (s *Server) Setup(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reconciler.Run(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SetupResponse{Converged: s.svc.Reconciler.Converged()})
}

// UpdateDocuments handles POST /indexes/{index}/documents.
// allow_partial=true skips failed records only when prepare_silently is set;
// otherwise the first preparation failure aborts the request with 422.
func (s *Server) UpdateDocuments(w http.ResponseWriter, r *http.Request) {
	idx, err := s.svc.Registry.ByName(chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var req UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "records are required")
		return
	}

	recs := make([]any, len(req.Records))
	for i, rb := range req.Records {
		recs[i] = registry.MapRecord{Type: idx.RecordType(), PK: rb.PK, Values: rb.Values}
	}

	report, err := s.svc.Pipeline.Update(r.Context(), idx, recs, boolParam(r, "allow_partial"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse(report))
}

// RemoveDocument handles DELETE /documents/{identifier}.
func (s *Server) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Pipeline.Remove(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	opts := request.Options{
		Indexes:      body.Indexes,
		ReturnFields: body.ReturnFields,
		Start:        body.Start,
		Size:         body.Size,
		Parser:       request.Parser(body.Parser),
	}
	for name, f := range body.Facets {
		opts.Facets = append(opts.Facets, name)
		if f.TopN > 0 {
			if opts.FacetTopN == nil {
				opts.FacetTopN = make(map[string]int)
			}
			opts.FacetTopN[name] = f.TopN
		}
		if len(f.Constraints) > 0 {
			if opts.FacetConstraints == nil {
				opts.FacetConstraints = make(map[string][]string)
			}
			opts.FacetConstraints[name] = f.Constraints
		}
	}
	s.runSearch(w, r, body.Query, opts)
}

// SearchQuery handles GET /search?q=...&index=...&field=...&facet=name[:top_n].
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := request.Options{
		Indexes:      q["index"],
		ReturnFields: q["field"],
		Parser:       request.Parser(q.Get("parser")),
	}
	for name, dst := range map[string]*int{"start": &opts.Start, "size": &opts.Size} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, CodeBadRequest, name+" must be an integer")
				return
			}
			*dst = n
		}
	}
	for _, raw := range q["facet"] {
		name, topN, hasTopN := strings.Cut(raw, ":")
		opts.Facets = append(opts.Facets, name)
		if !hasTopN {
			continue
		}
		n, err := strconv.Atoi(topN)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "facet top_n must be a positive integer")
			return
		}
		if opts.FacetTopN == nil {
			opts.FacetTopN = make(map[string]int)
		}
		opts.FacetTopN[name] = n
	}
	s.runSearch(w, r, q.Get("q"), opts)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query string, opts request.Options) {
	req, err := request.New(query, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	resp, err := s.svc.Search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(resp))
}

// Clear handles POST /clear.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	var body ClearRequest
	if !decodeBody(w, r, &body) {
		return
	}

	sel := lifecycleuc.Selector{Domains: body.Domains, Indexes: body.Indexes, Everything: body.Everything}
	for _, raw := range body.RecordTypes {
		rt, err := domain.ParseRecordType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		sel.RecordTypes = append(sel.RecordTypes, rt)
	}

	deleted, err := s.svc.Lifecycle.Clear(r.Context(), sel, lifecycleuc.ClearOptions{
		NoWait:    body.NoWait,
		NoRebuild: body.NoRebuild,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, ClearResponse{Deleted: deleted})
}

// EnableAccess handles POST /indexes/{index}/access.
func (s *Server) EnableAccess(w http.ResponseWriter, r *http.Request) {
	var body AccessRequest
	if !decodeBody(w, r, &body) {
		return
	}
	ip := body.IP
	if ip == "" {
		ip = s.opts.AccessIP
	}

	res, err := s.svc.Lifecycle.EnableIndexAccess(r.Context(), chi.URLParam(r, "index"), ip)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccessResponse{Search: res.Search, Document: res.Document})
}

// Reindex handles POST /indexes/{index}/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	fields, err := s.svc.Lifecycle.IndexEvent(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if fields == nil {
		fields = []string{}
	}
	writeJSON(w, http.StatusAccepted, ReindexResponse{Fields: fields})
}

func (s *Server) recordsEnabled(w http.ResponseWriter) bool {
	if s.svc.Records == nil {
		writeError(w, http.StatusNotImplemented, CodeRecordsDisabled, "record store is not configured")
		return false
	}
	return true
}

// Sync handles POST /indexes/{index}/sync. allow_partial behaves as in UpdateDocuments.
func (s *Server) Sync(w http.ResponseWriter, r *http.Request) {
	if !s.recordsEnabled(w) {
		return
	}
	report, err := s.svc.Records.Sync(r.Context(), chi.URLParam(r, "index"), boolParam(r, "allow_partial"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse(report))
}

func recordRef(w http.ResponseWriter, r *http.Request) (domain.RecordRef, bool) {
	rt, err := domain.ParseRecordType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return domain.RecordRef{}, false
	}
	return domain.RecordRef{Type: rt, PK: chi.URLParam(r, "pk")}, true
}

// GetRecord handles GET /records/{type}/{pk}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	if !s.recordsEnabled(w) {
		return
	}
	ref, ok := recordRef(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.Records.Get(r.Context(), ref)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordBody{PK: rec.PK, Values: rec.Values})
}

// PutRecord handles PUT /records/{type}/{pk}.
func (s *Server) PutRecord(w http.ResponseWriter, r *http.Request) {
	if !s.recordsEnabled(w) {
		return
	}
	ref, ok := recordRef(w, r)
	if !ok {
		return
	}
	var body RecordBody
	if !decodeBody(w, r, &body) {
		return
	}

	created, err := s.svc.Records.Save(r.Context(), registry.MapRecord{Type: ref.Type, PK: ref.PK, Values: body.Values})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, RecordBody{PK: ref.PK, Values: body.Values})
}

// DeleteRecord handles DELETE /records/{type}/{pk}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !s.recordsEnabled(w) {
		return
	}
	ref, ok := recordRef(w, r)
	if !ok {
		return
	}
	if err := s.svc.Records.Delete(r.Context(), ref); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
