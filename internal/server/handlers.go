package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/usecase"
)

const (
	defaultSearchTopK = 5
	maxBodyBytes      = 1 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type chatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
	UserEmail string `json:"user_email,omitempty" validate:"omitempty,email"`
	UserName  string `json:"user_name,omitempty" validate:"omitempty,max=200"`
	Category  string `json:"category,omitempty" validate:"omitempty,max=40"`
}

type searchRequest struct {
	Query    string `json:"query" validate:"required,max=4000"`
	TopK     int    `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
	Category string `json:"category,omitempty" validate:"omitempty,max=40"`
}

type searchResult struct {
	ID       string          `json:"id"`
	Score    float64         `json:"score"`
	Rank     int             `json:"rank"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category domain.Category `json:"category"`
	Product  string          `json:"product,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Count   int            `json:"count"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

type escalationResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	TicketID string `json:"ticket_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.Respond(r.Context(), usecase.RespondRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		Category:  req.Category,
		UserEmail: req.UserEmail,
		UserName:  req.UserName,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	var req usecase.EscalationRequest
	if !s.decode(w, r, &req) {
		return
	}

	ticket, err := s.engine.Escalate(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, escalationResponse{
		Success:  true,
		Message:  ticket.Message,
		TicketID: ticket.TicketID,
	})
}

func (s *Server) handleKnowledgeAdd(w http.ResponseWriter, r *http.Request) {
	var in domain.EntryInput
	if !s.decode(w, r, &in) {
		return
	}

	id, err := s.engine.Ingest(r.Context(), in)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Added: %s", strings.TrimSpace(in.Title)),
		ID:      id,
	})
}

func (s *Server) handleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultSearchTopK
	}

	cands, err := s.engine.Search(r.Context(), req.Query, req.Category, req.TopK)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	results := make([]searchResult, len(cands))
	for i, c := range cands {
		results[i] = searchResult{
			ID:       c.Entry.ID,
			Score:    c.Similarity,
			Rank:     c.Rank,
			Title:    c.Entry.Question,
			Content:  c.Entry.Answer,
			Category: c.Entry.Category,
			Product:  c.Entry.Product,
		}
	}
	respondJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleKnowledgeClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Clear(r.Context()); err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "All documents deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active_sessions": stats.ActiveSessions,
		"knowledge_items": stats.EntryCount,
		"category_counts": stats.CategoryCounts,
		"vector_db":       s.info.VectorStore,
		"embedding_model": s.info.EmbeddingModel,
		"llm":             s.info.LLMModel,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"categories": s.engine.Categories()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"timestamp":       s.now().Format(time.RFC3339),
		"rag_initialized": s.engine != nil,
		"version":         s.info.Version,
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Request validation failed",
				Fields:  fieldErrors(verrs),
			})
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email", field)
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		default:
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, fe.Tag())
		}
	}
	return fields
}

// handleError maps engine error kinds to HTTP responses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch kind := domain.KindOf(err); {
	case kind == domain.KindInvalidInput:
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case kind == domain.KindEscalationDeliveryFailed:
		respondError(w, http.StatusServiceUnavailable, "escalation_failed", "Unable to reach support system. Please try again later.")
	case domain.IsRetryable(err), kind == domain.KindServiceUnavailable:
		s.logger.Warn("request failed on unavailable dependency",
			zap.String("path", r.URL.Path), zap.String("kind", string(kind)), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable. Please try again later.")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "The request took too long")
	case errors.Is(err, context.Canceled):
		s.logger.Debug("client went away", zap.String("path", r.URL.Path))
	default:
		s.logger.Error("internal server error", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}
