package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"langclass/db"
	"langclass/features"
	"langclass/ml"
	"langclass/monitoring"
	"langclass/registry"
)

// API carries the dependencies shared by the handlers. Store may be nil, in
// which case nothing is persisted.
type API struct {
	registry *registry.Registry
	store    *db.Store
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	training TrainingConfig
	stream   *streamHub
	started  time.Time
}

// NewAPI builds the handler set. A nil logger or metrics gets a no-op default.
func NewAPI(reg *registry.Registry, store *db.Store, metrics *monitoring.Metrics, logger *zap.Logger, training TrainingConfig) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	api := &API{
		registry: reg,
		store:    store,
		metrics:  metrics,
		logger:   logger.Named("http"),
		training: training,
		started:  time.Now(),
	}
	api.stream = newStreamHub(reg, metrics, api.logger.Named("stream"))
	return api
}

// RegisterHandlers mounts every route on mux.
func (a *API) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/models", a.handleModels)
	mux.HandleFunc("PUT /api/models/active", a.handleSetActive)
	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("POST /api/features", a.handleFeatures)
	mux.HandleFunc("POST /api/train", a.handleTrain)
	mux.HandleFunc("GET /api/training_log", a.handleTrainingLog)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.HandleFunc("GET /api/ws/classify", a.stream.HandleClassify)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, registry.ErrUnknownModel), errors.Is(err, db.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNoModel):
		return http.StatusServiceUnavailable
	case errors.Is(err, ml.ErrMalformedInput), errors.Is(err, ml.ErrEmptyDataset), errors.Is(err, ml.ErrUnknownModelKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	a.metrics.RecordRequestError()
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, err)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", ml.ErrMalformedInput, err)
	}
	return nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"uptime":       time.Since(a.started).Round(time.Second).String(),
		"active_model": a.registry.Active(),
		"database":     a.store != nil,
	})
}

func (a *API) handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"active": a.registry.Active(),
		"models": a.registry.List(),
	}
	if a.store != nil {
		stored, err := a.store.ListModels(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		resp["stored"] = stored
	}
	writeJSON(w, http.StatusOK, resp)
}

type setActiveRequest struct {
	Name string `json:"name"`
}

func (a *API) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.registry.SetActive(req.Name); err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger.Info("active model changed", zap.String("name", req.Name))
	writeJSON(w, http.StatusOK, map[string]string{"active": req.Name})
}

type predictRequest struct {
	Model     string   `json:"model"`
	Sentences []string `json:"sentences"`
}

type predictResponse struct {
	Model   string            `json:"model"`
	Results []registry.Result `json:"results"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if len(req.Sentences) == 0 {
		a.fail(w, r, fmt.Errorf("%w: sentences is required", ml.ErrMalformedInput))
		return
	}

	results, err := a.registry.ClassifyAll(req.Model, req.Sentences)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	model := results[0].Model

	if a.store != nil {
		preds := make([]db.Prediction, len(results))
		for i, res := range results {
			preds[i] = db.Prediction{Sentence: res.Sentence, Label: res.Label}
			if res.Score != nil {
				preds[i].Score = *res.Score
			}
		}
		if err := a.store.LogPredictions(r.Context(), model, preds); err != nil {
			a.logger.Warn("prediction log failed", zap.String("model", model), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, predictResponse{Model: model, Results: results})
}

type featuresRequest struct {
	Sentences []string `json:"sentences"`
}

type featuresResponse struct {
	Names   []string           `json:"names"`
	Vectors []ml.FeatureVector `json:"vectors"`
}

func (a *API) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req featuresRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	resp := featuresResponse{
		Names:   features.Names(),
		Vectors: make([]ml.FeatureVector, len(req.Sentences)),
	}
	for i, s := range req.Sentences {
		resp.Vectors[i] = features.Extract(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.train(r.Context(), req)
	a.metrics.RecordTraining(err)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("database not configured"))
		return
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil {
			limit = l
		}
	}
	logs, err := a.store.TrainingLogs(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := a.metrics.Snapshot()
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(snapshot.ExportPrometheus()))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
