package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/doubtsolver/internal/api/middleware"
	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/service"
	"go.uber.org/zap"
)

// DoubtResolver is what the doubt routes need from the service layer.
type DoubtResolver interface {
	Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.Resolution, error)
	AdmitCurated(ctx context.Context, c service.CuratedAnswer) (bool, int, error)
	Stats(ctx context.Context) (*domain.KnowledgeStats, error)
}

type DoubtHandler struct {
	svc    DoubtResolver
	logger *zap.Logger
}

func NewDoubtHandler(svc DoubtResolver, logger *zap.Logger) *DoubtHandler {
	return &DoubtHandler{svc: svc, logger: logger}
}

type resolveRequest struct {
	Query         string `json:"query" validate:"required,max=4000"`
	Context       string `json:"context,omitempty" validate:"max=20000"`
	VisualContext bool   `json:"visual_context,omitempty"`
	ContentURL    string `json:"content_url,omitempty" validate:"omitempty,url"`
	ContentType   string `json:"content_type,omitempty"`
	Language      string `json:"language,omitempty"`
	DisplayName   string `json:"display_name,omitempty" validate:"max=100"`
	SelectedText  string `json:"selected_text,omitempty" validate:"max=20000"`
	APIKey        string `json:"api_key,omitempty"`
	CourseID      string `json:"course_id,omitempty"`
	ContentID     string `json:"content_id,omitempty"`
}

type resolveResponse struct {
	*domain.Resolution
	Reliability string `json:"reliability"`
}

func (h *DoubtHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// The header wins over the body so keys can stay out of request logs.
	apiKey := middleware.TutorKeyFromContext(r.Context())
	if apiKey == "" {
		apiKey = strings.TrimSpace(req.APIKey)
	}

	res, err := h.svc.Resolve(r.Context(), domain.ResolveRequest{
		Query:         req.Query,
		Context:       req.Context,
		VisualContext: req.VisualContext,
		ContentURL:    req.ContentURL,
		ContentType:   req.ContentType,
		Language:      req.Language,
		DisplayName:   req.DisplayName,
		SelectedText:  req.SelectedText,
		APIKey:        apiKey,
		CourseID:      req.CourseID,
		ContentID:     req.ContentID,
	})
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	middleware.NoteResolution(r.Context(), string(res.Source), res.Confidence, res.Source.CacheHit())
	writeJSON(w, http.StatusOK, resolveResponse{
		Resolution:  res,
		Reliability: service.ReliabilityLabel(res.Confidence),
	})
}

// writeResolveError keeps upstream detail out of the response: only the
// credential and rate-limit kinds are told apart.
func (h *DoubtHandler) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeErrorCode(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrMissingCredential):
		writeErrorCode(w, http.StatusBadRequest, "API_KEY_REQUIRED", domain.ErrMissingCredential.Error())
	case errors.Is(err, domain.ErrInvalidCredential):
		writeErrorCode(w, http.StatusUnauthorized, "INVALID_API_KEY", domain.ErrInvalidCredential.Error())
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "10")
		writeErrorCode(w, http.StatusTooManyRequests, "RATE_LIMITED", domain.ErrRateLimited.Error())
	default:
		h.logger.Error("resolve failed",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeErrorCode(w, http.StatusServiceUnavailable, "TUTOR_UNAVAILABLE", domain.ErrTutorUnavailable.Error())
	}
}

// admitRequest carries no confidence: curated answers are always scored.
type admitRequest struct {
	Query     string `json:"query" validate:"required,max=4000"`
	Answer    string `json:"answer" validate:"required,max=50000"`
	Context   string `json:"context,omitempty" validate:"max=20000"`
	CourseID  string `json:"course_id,omitempty"`
	ContentID string `json:"content_id,omitempty"`
}

type admitResponse struct {
	Admitted   bool `json:"admitted"`
	Confidence int  `json:"confidence"`
	Threshold  int  `json:"threshold"`
}

// Admit scores a curated answer and writes it through the admission gate.
func (h *DoubtHandler) Admit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	admitted, confidence, err := h.svc.AdmitCurated(r.Context(), service.CuratedAnswer{
		Query:     req.Query,
		Answer:    req.Answer,
		Context:   req.Context,
		CourseID:  req.CourseID,
		ContentID: req.ContentID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeErrorCode(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusOK
	if admitted {
		status = http.StatusCreated
	}
	writeJSON(w, status, admitResponse{
		Admitted:   admitted,
		Confidence: confidence,
		Threshold:  service.AdmissionThreshold,
	})
}

func (h *DoubtHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Warn("knowledge stats failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "knowledge store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
