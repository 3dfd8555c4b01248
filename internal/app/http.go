package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"outlook/api/internal/ops"
	"outlook/api/internal/views"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"kv": map[string]any{"status": "ok", "backend": s.service.cfg.KVBackend},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["kv"] = map[string]any{
				"status":  "error",
				"backend": s.service.cfg.KVBackend,
				"error":   err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)

	if r.Method == http.MethodGet && r.URL.Path == "/api/companies" {
		writeJSON(w, http.StatusOK, s.service.ListCompanies(r.URL.Query().Get("q")))
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "companies" {
		s.handleCompany(w, r, parts)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/trending" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		payload, err := s.service.Trending(r.Context(), r.URL.Query().Get("window"), limit)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/ops/runs" {
		writeJSON(w, http.StatusOK, map[string]any{"items": s.service.ListRuns(r.Context())})
		return
	}

	if len(parts) >= 4 && parts[0] == "api" && parts[1] == "ops" && parts[2] == "runs" {
		s.handleRun(w, r, parts[3], parts)
		return
	}

	if r.URL.Path == "/api/ops/decisions" {
		s.handleDecisions(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/ops/patch/parse" {
		var body struct {
			Text    string `json:"text"`
			RunDate string `json:"runDate"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, s.service.ParsePatch(body.Text, body.RunDate))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/ops/publish" {
		var body ops.PublishRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Publish(r.Context(), body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "api" && parts[1] == "ops" && parts[2] == "overrides" {
		payload, err := s.service.Override(r.Context(), parts[3])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "api" && parts[1] == "ops" && parts[2] == "published" {
		audit, err := s.service.PublishAudit(r.Context(), parts[3])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, audit)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleCompany(w http.ResponseWriter, r *http.Request, parts []string) {
	slug := parts[2]

	if len(parts) == 3 && r.Method == http.MethodGet {
		page, err := s.service.GetCompany(r.Context(), slug)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	if len(parts) == 4 && parts[3] == "views" && r.Method == http.MethodPost {
		if err := s.service.RecordView(r.Context(), slug); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleRun(w http.ResponseWriter, r *http.Request, date string, parts []string) {
	if len(parts) == 4 && r.Method == http.MethodGet {
		query := r.URL.Query()
		queue, err := s.service.RunQueue(r.Context(), date, ops.QueueFilter{
			Status:     query.Get("status"),
			Kind:       query.Get("type"),
			Confidence: query.Get("confidence"),
		})
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, queue)
		return
	}

	if len(parts) == 5 && parts[4] == "patch" && r.Method == http.MethodGet {
		payload, err := s.service.RunPatch(r.Context(), date)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 7 && parts[4] == "items" && parts[6] == "decision" && r.Method == http.MethodPost {
		var body struct {
			Decision string `json:"decision"`
			Note     string `json:"note"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		record, err := s.service.DecideItem(r.Context(), date, parts[5], ops.Decision(body.Decision), body.Note)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "record": record})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleDecisions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.ListDecisions(r.Context(), r.URL.Query().Get("run"))
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPost:
		var body struct {
			RunDate string              `json:"runDate"`
			Record  *ops.DecisionRecord `json:"record"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		record, err := s.service.SaveDecision(r.Context(), body.RunDate, body.Record)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "record": record})
	case http.MethodDelete:
		if err := s.service.ClearDecisions(r.Context(), r.URL.Query().Get("run")); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *ops.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message, nil
	}
	if isValidation(err) {
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	}
	if errors.Is(err, ops.ErrRunNotFound) {
		return http.StatusNotFound, "RUN_NOT_FOUND", "Run not found", nil
	}
	if errors.Is(err, ops.ErrItemNotFound) {
		return http.StatusNotFound, "ITEM_NOT_FOUND", "Action item not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func isValidation(err error) bool {
	return errors.Is(err, ops.ErrInvalidRunDate) ||
		errors.Is(err, ops.ErrMissingID) ||
		errors.Is(err, ops.ErrInvalidDecision) ||
		errors.Is(err, views.ErrUnknownWindow)
}
