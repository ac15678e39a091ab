package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/medkbase/medrag"
)

type MedRAG interface {
	Answer(ctx context.Context, question string, method medrag.RetrievalMethod) (*medrag.Result, error)
	ListQueryRecords(ctx context.Context, filter medrag.QueryRecordFilter, params medrag.SortParams) ([]*medrag.QueryRecord, error)
}

type Adapter struct {
	medRAG     MedRAG
	timeout    time.Duration
	logger     *zap.Logger
	components map[string]string
}

type Option func(*Adapter)

func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = timeout
	}
}

// WithComponents adds the configured adapter names to the health response.
func WithComponents(components map[string]string) Option {
	return func(a *Adapter) {
		a.components = components
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const defaultTimeout = 30 * time.Second

func New(medRAG MedRAG, options ...Option) *Adapter {
	a := &Adapter{
		medRAG:  medRAG,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	return a
}

func (a *Adapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", a.PostQuery)
	mux.HandleFunc("GET /queries", a.ListQueries)
	mux.HandleFunc("GET /health", a.Health)
	return mux
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (a *Adapter) Health(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, healthResponse{Status: "ok", Components: a.components})
}

func renderJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func renderJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func readRequestJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}
