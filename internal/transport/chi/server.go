package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/logger"
	queryuc "github.com/kailas-cloud/docquery/internal/usecase/query"
)

// DefaultMaxBodyBytes caps /query request bodies.
const DefaultMaxBodyBytes int64 = 64 * 1024

// queryRequest is the /query body.
type queryRequest struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}

// Server holds the public HTTP handlers.
type Server struct {
	resolver            queryuc.Resolver
	maxBodyBytes        int64
	livenessOK          bool
	categoryFromRequest bool
	logger              *zap.Logger
}

// NewServer creates the public API handlers.
func NewServer(resolver queryuc.Resolver, opts Options, log *zap.Logger) *Server {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Server{
		resolver:            resolver,
		maxBodyBytes:        maxBody,
		livenessOK:          opts.LivenessOK,
		categoryFromRequest: opts.CategoryFromRequest,
		logger:              log,
	}
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	// Declared size is checked before a single byte is read.
	if r.ContentLength > s.maxBodyBytes {
		writeResponse(w, domain.Failure(domain.KindBodyTooLarge, domain.MsgBodyTooBig))
		return
	}

	req, err := s.decodeQuery(w, r)
	switch {
	case errors.Is(err, domain.ErrBodyTooLarge):
		writeResponse(w, domain.Failure(domain.KindBodyTooLarge, domain.MsgBodyTooBig))
		return
	case err != nil:
		logger.FromContext(r.Context(), s.logger).Debug("Rejected query body", zap.Error(err))
		writeResponse(w, domain.Failure(domain.KindInvalidJSON, domain.MsgInvalidJSON))
		return
	}

	if req.Query == "" {
		writeResponse(w, domain.Failure(domain.KindInvalidJSON, domain.MsgQueryRequired))
		return
	}

	q := domain.Query{Text: req.Query}
	if s.categoryFromRequest {
		q.Category = req.Category
	}

	writeResponse(w, s.resolver.Resolve(r.Context(), q))
}

// IsAlive handles GET /isalive.
func (s *Server) IsAlive(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusInternalServerError
	if s.livenessOK {
		status = http.StatusOK
	}
	writeJSON(w, status, domain.Alive())
}

// NotFound answers every unknown method and path.
func (s *Server) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, domain.Failure(domain.KindNotFound, domain.MsgUseQueryEndpoint))
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (queryRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return queryRequest{}, fmt.Errorf("read body: %w", domain.ErrBodyTooLarge)
		}
		return queryRequest{}, fmt.Errorf("read body: %v: %w", err, domain.ErrInvalidJSON)
	}

	if !utf8.Valid(body) {
		return queryRequest{}, fmt.Errorf("body is not UTF-8: %w", domain.ErrInvalidJSON)
	}

	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return queryRequest{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidJSON)
	}
	return req, nil
}

// writeResponse writes a Response with the status derived from its kind.
func writeResponse(w http.ResponseWriter, resp domain.Response) {
	writeJSON(w, resp.Kind.HTTPStatus(), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
