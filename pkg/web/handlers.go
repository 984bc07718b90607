package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/zpam/playtennis/pkg/bayes"
)

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /predict", s.handleFormPredict)
	mux.HandleFunc("GET /api/predict", s.handleAPIPredict)
	mux.HandleFunc("GET /api/model", s.handleModel)
	mux.HandleFunc("GET /api/dataset", s.handleDataset)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

type selectField struct {
	Name     string
	Options  []string
	Selected string
}

type pageResult struct {
	Label      string
	Posteriors string
}

type pageData struct {
	Title          string
	Fields         []selectField
	Result         *pageResult
	Error          string
	PreviewColumns []string
	PreviewRows    [][]string
}

type priorEntry struct {
	Label string  `json:"label"`
	Prob  float64 `json:"prob"`
}

type modelResponse struct {
	*bayes.ModelInfo
	Priors       []priorEntry                        `json:"priors"`
	Conditionals map[string][]bayes.ConditionalEntry `json:"conditionals"`
}

type datasetResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPage(nil))
}

func (s *Server) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := s.newPage(nil)
		page.Error = "invalid form: " + err.Error()
		s.renderPage(w, http.StatusBadRequest, page)
		return
	}

	// Only the model's features are read; other form fields are ignored
	sample := make(bayes.Sample)
	for _, f := range s.predictor.Model().Features() {
		if v := r.PostForm.Get(f); v != "" {
			sample[f] = v
		}
	}

	page := s.newPage(sample)
	pred, err := s.predictor.Predict(r.Context(), sample)
	if err != nil {
		page.Error = err.Error()
		s.renderPage(w, statusFor(err), page)
		return
	}

	posteriors, err := json.MarshalIndent(pred.Posteriors, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode posteriors", zap.Error(err))
		page.Error = "failed to encode posteriors"
		s.renderPage(w, http.StatusInternalServerError, page)
		return
	}
	page.Result = &pageResult{Label: pred.Label, Posteriors: string(posteriors)}
	s.renderPage(w, http.StatusOK, page)
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	sample := make(bayes.Sample)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			sample[key] = values[0]
		}
	}

	pred, err := s.predictor.Predict(r.Context(), sample)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	model := s.predictor.Model()

	priors := make([]priorEntry, 0, len(model.Labels()))
	for _, l := range model.Labels() {
		p, _ := model.Priors().Prob(l)
		priors = append(priors, priorEntry{Label: l, Prob: p})
	}
	conds := make(map[string][]bayes.ConditionalEntry)
	for _, f := range model.Features() {
		conds[f] = model.Entries(f)
	}

	writeJSON(w, http.StatusOK, modelResponse{
		ModelInfo:    model.Info(),
		Priors:       priors,
		Conditionals: conds,
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	limit := s.config.PreviewRows
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	columns, rows := s.preview(limit)
	writeJSON(w, http.StatusOK, datasetResponse{
		Columns: columns,
		Rows:    rows,
		Total:   s.predictor.Dataset().Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// newPage fills the selects from the dataset domains. Values in selected
// keep the user's choice across a submit.
func (s *Server) newPage(selected bayes.Sample) *pageData {
	model := s.predictor.Model()
	fields := make([]selectField, 0, len(model.Features()))
	for _, f := range model.Features() {
		fields = append(fields, selectField{
			Name:     f,
			Options:  model.Domain(f),
			Selected: selected[f],
		})
	}

	columns, rows := s.preview(s.config.PreviewRows)
	return &pageData{
		Title:          s.config.Title,
		Fields:         fields,
		PreviewColumns: columns,
		PreviewRows:    rows,
	}
}

// preview returns the source header and leading records, every column
// included
func (s *Server) preview(limit int) ([]string, [][]string) {
	ds := s.predictor.Dataset()

	preview := ds.Preview(limit)
	rows := make([][]string, 0, len(preview))
	for _, row := range preview {
		rows = append(rows, row.Record)
	}
	return ds.Columns, rows
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page *pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, page); err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	var missing *bayes.MissingFeatureError
	var unknown *bayes.UnknownFeatureError
	if errors.As(err, &missing) || errors.As(err, &unknown) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
