package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medkbase/medrag"
)

type queryRequest struct {
	Question        string `json:"question"`
	RetrievalMethod string `json:"retrieval_method"`
}

// citationResponse joins a cited chunk ID with the evidence it points at, so
// presentation layers can render sources without a second lookup.
type citationResponse struct {
	ChunkID         string  `json:"chunk_id"`
	Topic           string  `json:"topic,omitempty"`
	Source          string  `json:"source,omitempty"`
	Text            string  `json:"text,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

type safetyResponse struct {
	IsSafe bool    `json:"is_safe"`
	Reason *string `json:"reason"`
}

type queryResponse struct {
	Success          bool               `json:"success"`
	Answer           string             `json:"answer"`
	Citations        []citationResponse `json:"citations"`
	RetrievedChunks  []string           `json:"retrieved_chunks"`
	Safety           safetyResponse     `json:"safety"`
	Confidence       string             `json:"confidence,omitempty"`
	ValidationPassed bool               `json:"validation_passed"`
	LowConfidence    bool               `json:"low_confidence"`
	Attempts         int                `json:"attempts,omitempty"`
	Error            string             `json:"error,omitempty"`
	Disclaimer       string             `json:"disclaimer"`
}

// Answer a medical question
// (POST /query)
func (a *Adapter) PostQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	apiRequest := queryRequest{}
	if err := readRequestJSON(r, &apiRequest); err != nil {
		renderJSONError(w, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(apiRequest.Question) == "" {
		renderJSONError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	method, err := medrag.ParseRetrievalMethod(apiRequest.RetrievalMethod)
	if err != nil {
		renderJSONError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.medRAG.Answer(ctx, apiRequest.Question, method)
	if err != nil {
		a.logger.Sugar().With("error", err).Error("error answering query")
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		renderJSONError(w, status, fmt.Errorf("error answering query: %w", err))
		return
	}

	renderJSON(w, mapResult(result))
}

func mapResult(result *medrag.Result) queryResponse {
	apiResponse := queryResponse{
		Success:          result.Success,
		Answer:           result.Answer,
		Citations:        make([]citationResponse, 0, len(result.Citations)),
		RetrievedChunks:  make([]string, 0, len(result.Evidence.Candidates)),
		ValidationPassed: result.ValidationPassed,
		LowConfidence:    result.LowConfidence,
		Confidence:       string(result.Confidence),
		Error:            result.Err,
		Disclaimer:       medrag.MandatoryDisclaimer,
		Safety: safetyResponse{
			IsSafe: !result.Blocked,
		},
	}
	if result.SafetyCategory != medrag.SafetyCategoryNone {
		reason := string(result.SafetyCategory)
		apiResponse.Safety.Reason = &reason
	}

	for _, id := range result.Citations {
		apiResponse.Citations = append(apiResponse.Citations, mapCitation(id, result.Evidence))
	}
	for _, c := range result.Evidence.Candidates {
		apiResponse.RetrievedChunks = append(apiResponse.RetrievedChunks, c.Chunk.ID.String())
	}
	if result.LastAttempt != nil {
		apiResponse.Attempts = result.LastAttempt.Number
	}

	return apiResponse
}

func mapCitation(id medrag.ChunkID, evidence medrag.Evidence) citationResponse {
	cited := citationResponse{ChunkID: id.String()}
	for _, c := range evidence.Candidates {
		if c.Chunk.ID == id {
			cited.Topic = c.Chunk.Topic
			cited.Source = c.Chunk.Source
			cited.Text = c.Chunk.Text
			cited.SimilarityScore = c.Score
			break
		}
	}
	return cited
}

type queryRecordResponse struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	Method           string    `json:"method"`
	Answer           string    `json:"answer"`
	Success          bool      `json:"success"`
	ValidationPassed bool      `json:"validation_passed"`
	LowConfidence    bool      `json:"low_confidence"`
	Blocked          bool      `json:"blocked"`
	Attempts         int       `json:"attempts"`
	Created          time.Time `json:"created"`
}

type queryRecordsResponse struct {
	Queries []queryRecordResponse `json:"queries"`
}

// List past queries from the audit log
// (GET /queries)
func (a *Adapter) ListQueries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	filter := medrag.QueryRecordFilter{}
	params := medrag.SortParams{}

	if method := r.URL.Query().Get("method"); method != "" {
		parsed, err := medrag.ParseRetrievalMethod(method)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, err)
			return
		}
		filter.Method = parsed
	}
	if blocked := r.URL.Query().Get("blocked"); blocked != "" {
		parsed, err := strconv.ParseBool(blocked)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid blocked param: %w", err))
			return
		}
		filter.Blocked = &parsed
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 1 {
			renderJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid limit param"))
			return
		}
		params.By = `"created"`
		params.Order = medrag.SortOrderDesc
		params.Limit = parsed
	}

	records, err := a.medRAG.ListQueryRecords(ctx, filter, params)
	if err != nil {
		if errors.Is(err, medrag.ErrInvalidSortParams) {
			renderJSONError(w, http.StatusBadRequest, err)
			return
		}
		a.logger.Sugar().With("error", err).Error("error listing queries")
		renderJSONError(w, http.StatusInternalServerError, fmt.Errorf("error listing queries: %w", err))
		return
	}

	apiResponse := queryRecordsResponse{
		Queries: make([]queryRecordResponse, 0, len(records)),
	}
	for _, record := range records {
		apiResponse.Queries = append(apiResponse.Queries, queryRecordResponse{
			ID:               record.ID.String(),
			Question:         record.Question,
			Method:           string(record.Method),
			Answer:           record.Answer,
			Success:          record.Success,
			ValidationPassed: record.ValidationPassed,
			LowConfidence:    record.LowConfidence,
			Blocked:          record.Blocked,
			Attempts:         record.Attempts,
			Created:          record.Created,
		})
	}

	renderJSON(w, apiResponse)
}
