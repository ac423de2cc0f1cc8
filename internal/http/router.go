// Package httpx wires the HTTP surface of the dataset explorer API.
package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datascout/datascout/internal/domain"
	"github.com/datascout/datascout/internal/service/auth"
	"github.com/datascout/datascout/internal/service/dataset"
	"github.com/datascout/datascout/internal/service/follow"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	datasets dataset.Service
	follows  follow.Service

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, datasetSvc dataset.Service, followSvc follow.Service) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		datasets: datasetSvc,
		follows:  followSvc,
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/health", r.audit(r.handleHealth))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/auth/signup", r.audit(r.handleSignup))
	r.mux.HandleFunc("/auth/login", r.audit(r.handleLogin))
	r.mux.HandleFunc("/auth/me", r.audit(r.requireAuth(r.handleMe)))
	r.mux.HandleFunc("/datasets", r.audit(r.handleBrowse))
	r.mux.HandleFunc("/datasets/", r.audit(r.handleDatasetSubroutes))
	r.mux.HandleFunc("/users/me/follows", r.audit(r.requireAuth(r.handleListFollows)))
}

// datasetResponse is the wire form of a cached dataset row.
type datasetResponse struct {
	HFID          string   `json:"hf_id"`
	Description   *string  `json:"description"`
	SizeBytes     *int64   `json:"size_bytes"`
	NumSamples    *int64   `json:"num_samples"`
	DownloadCount *int64   `json:"download_count"`
	ImpactScore   *float64 `json:"impact_score"`
}

func toDatasetResponse(d domain.Dataset) datasetResponse {
	return datasetResponse{
		HFID:          d.HFID,
		Description:   d.Description,
		SizeBytes:     d.SizeBytes,
		NumSamples:    d.NumSamples,
		DownloadCount: d.DownloadCount,
		ImpactScore:   d.ImpactScore,
	}
}

func toDatasetResponses(ds []domain.Dataset) []datasetResponse {
	out := make([]datasetResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDatasetResponse(d))
	}
	return out
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := r.auth.Signup(req.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, auth.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "name, email and password are required")
		default:
			r.logger.Error("signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if err := req.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	email := req.PostFormValue("email")
	password := req.PostFormValue("password")
	token, err := r.auth.Login(req.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Incorrect credentials")
			return
		}
		r.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	user, ok := currentUser(req.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

func (r *Router) handleBrowse(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	datasets, err := r.datasets.Browse(req.Context(), req.URL.Query().Get("search"))
	if err != nil {
		r.logger.Error("registry browse failed", "error", err)
		writeError(w, http.StatusBadGateway, "registry unavailable")
		return
	}
	writeJSON(w, http.StatusOK, toDatasetResponses(datasets))
}

// handleDatasetSubroutes dispatches /datasets/{owner}/{name} and
// /datasets/{owner}/{name}/follow.
func (r *Router) handleDatasetSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/datasets/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		r.notFound(w)
		return
	}
	owner, name := parts[0], parts[1]
	switch {
	case len(parts) == 2:
		r.handleDatasetDetail(w, req, owner, name)
	case len(parts) == 3 && parts[2] == "follow":
		r.requireAuth(func(w http.ResponseWriter, req *http.Request) {
			r.handleFollow(w, req, owner, name)
		})(w, req)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleDatasetDetail(w http.ResponseWriter, req *http.Request, owner, name string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	ds, err := r.datasets.GetOrRefresh(req.Context(), owner, name)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		r.logger.Error("dataset refresh failed", "error", err, "hf_id", owner+"/"+name)
		writeError(w, http.StatusBadGateway, "registry unavailable")
		return
	}
	writeJSON(w, http.StatusOK, toDatasetResponse(*ds))
}

func (r *Router) handleFollow(w http.ResponseWriter, req *http.Request, owner, name string) {
	user, ok := currentUser(req.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}
	hfID := owner + "/" + name
	switch req.Method {
	case http.MethodPost:
		if err := r.follows.Follow(req.Context(), user.ID, hfID); err != nil {
			if errors.Is(err, follow.ErrAlreadyFollowed) {
				writeError(w, http.StatusConflict, "Already followed")
				return
			}
			r.logger.Error("follow failed", "error", err, "hf_id", hfID)
			writeError(w, http.StatusInternalServerError, "follow failed")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Followed"})
	case http.MethodDelete:
		if err := r.follows.Unfollow(req.Context(), user.ID, hfID); err != nil {
			switch {
			case errors.Is(err, follow.ErrDatasetNotFound):
				writeError(w, http.StatusNotFound, "Dataset not found")
			case errors.Is(err, follow.ErrNotFollowed):
				writeError(w, http.StatusNotFound, "Not followed")
			default:
				r.logger.Error("unfollow failed", "error", err, "hf_id", hfID)
				writeError(w, http.StatusInternalServerError, "unfollow failed")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListFollows(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	user, ok := currentUser(req.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}
	datasets, err := r.follows.ListFollows(req.Context(), user.ID)
	if err != nil {
		r.logger.Error("list follows failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "list follows failed")
		return
	}
	writeJSON(w, http.StatusOK, toDatasetResponses(datasets))
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

// audit logs every request with status, size, latency and actor, and
// feeds the request metrics.
func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		reqID := requestID(req)
		recorder.Header().Set("X-Request-ID", reqID)
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		actor := "anonymous"
		if user, ok := currentUser(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", user.ID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
		r.recordRequestMetrics(req.Method, routeLabel(req.URL.Path), status, duration)
	}
}

// routeLabel collapses dataset subroutes to fixed labels so metric
// cardinality stays bounded.
func routeLabel(path string) string {
	if !strings.HasPrefix(path, "/datasets/") {
		return path
	}
	if strings.HasSuffix(path, "/follow") {
		return "/datasets/{owner}/{name}/follow"
	}
	return "/datasets/{owner}/{name}"
}

// requestID returns the propagated request id or generates one.
func requestID(req *http.Request) string {
	if id := strings.TrimSpace(req.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return uuid.NewString()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
