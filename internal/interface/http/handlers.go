package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/command"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/query"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/student"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "LUPE Evaluation Hub API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":      "/health",
			"evaluations": "/api/evaluations",
			"history":     "/api/evaluations/history/{studentId}",
			"points":      "/api/students/{id}/points",
		},
	}

	writeJSON(w, r, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PAYLOADS
// ══════════════════════════════════════════════════════════════════════════════

// photoPayload is a staged photo sent inline. Data is base64 in JSON.
type photoPayload struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
	Source      string `json:"source"`
}

func (p *photoPayload) toStagedRef() *media.StagedRef {
	if p == nil {
		return nil
	}
	source := media.Source(p.Source)
	if p.Source == "" {
		source = media.SourceGallery
	}
	return &media.StagedRef{
		Source:      source,
		Data:        p.Data,
		ContentType: p.ContentType,
		StagedAt:    time.Now(),
	}
}

// recordEvaluationRequest is the body of POST /api/evaluations.
type recordEvaluationRequest struct {
	StudentID string             `json:"studentId"`
	Level     string             `json:"level"`
	Exercises []string           `json:"exercises"`
	Metrics   map[string]float64 `json:"metrics"`
	Comments  string             `json:"comments"`
	Photo     *photoPayload      `json:"photo,omitempty"`
}

// patchExtrasRequest is the partial body of PATCH /api/evaluations/historial/{studentId}.
type patchExtrasRequest struct {
	Comentarios *string       `json:"comentarios,omitempty"`
	Photo       *photoPayload `json:"photo,omitempty"`
}

// changeLevelRequest is the body of PUT /api/students/{id}/level.
type changeLevelRequest struct {
	Level string `json:"level"`
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRecordEvaluation handles POST /api/evaluations.
func (s *Server) handleRecordEvaluation(w http.ResponseWriter, r *http.Request) {
	var req recordEvaluationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordEvaluationCommand{
		StudentID:     req.StudentID,
		Level:         req.Level,
		Exercises:     req.Exercises,
		Ratings:       evaluation.Ratings(req.Metrics),
		Comment:       req.Comments,
		StagedPhoto:   req.Photo.toStagedRef(),
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RecordEvaluation.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"evaluation": map[string]interface{}{
			"id":           result.EvaluationID,
			"level":        result.Level.String(),
			"averageScore": result.AverageScore,
			"imageUrl":     result.PhotoURL,
			"createdAt":    result.CreatedAt,
		},
	})
}

// handleGetHistory handles GET /api/evaluations/history/{studentId}?range&year&level.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	q := query.GetHistoryQuery{
		StudentID: chi.URLParam(r, "studentId"),
		Range:     evaluation.RangeKind(r.URL.Query().Get("range")),
	}

	if levelParam := r.URL.Query().Get("level"); levelParam != "" {
		level, err := student.ParseLevel(levelParam)
		if err != nil {
			s.writeDomainError(w, r, shared.ErrUnknownLevel)
			return
		}
		q.Level = &level
	}

	// year anchors a range=year request at a past calendar year; mid-year
	// keeps the anchor clear of DST-free zone boundaries.
	if yearParam := r.URL.Query().Get("year"); yearParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil || year < 2000 || year > 2100 {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "year must be a four-digit year")
			return
		}
		q.Now = timeutil.Date(year, 7, 1)
	}

	result, err := s.deps.GetHistory.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleGetLast handles GET /api/evaluations/last/{studentId}.
func (s *Server) handleGetLast(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLatest.Handle(r.Context(), query.GetLatestQuery{
		StudentID: chi.URLParam(r, "studentId"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"lastEvaluation": result.LastEvaluation,
	})
}

// handleGetLastWithExtras handles GET /api/evaluations/lastWithExtras/{studentId}.
func (s *Server) handleGetLastWithExtras(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLatest.Handle(r.Context(), query.GetLatestQuery{
		StudentID:  chi.URLParam(r, "studentId"),
		WithExtras: true,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleListEvaluations handles GET /api/evaluations/students/{studentId}/evaluations.
func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, _ = strconv.Atoi(limitParam)
	}

	result, err := s.deps.ListEvaluations.Handle(r.Context(), query.ListEvaluationsQuery{
		StudentID: chi.URLParam(r, "studentId"),
		Limit:     limit,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY EXTRAS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handlePatchExtras handles PATCH /api/evaluations/historial/{studentId}.
// Both fields are optional and upsert independently.
func (s *Server) handlePatchExtras(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")

	var req patchExtrasRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.Comentarios == nil && req.Photo == nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Nothing to update")
		return
	}

	if req.Comentarios != nil {
		err := s.deps.UpdateExtras.Handle(r.Context(), command.UpdateExtrasCommand{
			StudentID: studentID,
			Comment:   *req.Comentarios,
		})
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	response := map[string]interface{}{"studentId": studentID}

	if req.Photo != nil {
		result, err := s.deps.AttachPhoto.HandleAttach(r.Context(), command.AttachPhotoCommand{
			TargetKind:    command.TargetExtras,
			TargetID:      studentID,
			StagedPhoto:   req.Photo.toStagedRef(),
			CorrelationID: getRequestID(r.Context()),
		})
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		response["imagenUrl"] = result.URL
	}

	if req.Comentarios != nil {
		response["comentarios"] = *req.Comentarios
	}

	writeJSON(w, r, http.StatusOK, response)
}

// handleRemoveExtrasPhoto handles DELETE /api/evaluations/historial/{studentId}/photo.
func (s *Server) handleRemoveExtrasPhoto(w http.ResponseWriter, r *http.Request) {
	err := s.deps.AttachPhoto.HandleRemove(r.Context(), command.RemovePhotoCommand{
		TargetKind:    command.TargetExtras,
		TargetID:      chi.URLParam(r, "studentId"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "removed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION PHOTO HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAttachEvaluationPhoto handles POST /api/evaluations/{id}/photo.
func (s *Server) handleAttachEvaluationPhoto(w http.ResponseWriter, r *http.Request) {
	var req photoPayload
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AttachPhoto.HandleAttach(r.Context(), command.AttachPhotoCommand{
		TargetKind:    command.TargetEvaluation,
		TargetID:      chi.URLParam(r, "id"),
		StagedPhoto:   req.toStagedRef(),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"imageUrl": result.URL,
		"replaced": result.Replaced,
	})
}

// handleRemoveEvaluationPhoto handles DELETE /api/evaluations/{id}/photo.
func (s *Server) handleRemoveEvaluationPhoto(w http.ResponseWriter, r *http.Request) {
	err := s.deps.AttachPhoto.HandleRemove(r.Context(), command.RemovePhotoCommand{
		TargetKind:    command.TargetEvaluation,
		TargetID:      chi.URLParam(r, "id"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "removed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetExercises handles GET /api/evaluations/exercises/{level}.
func (s *Server) handleGetExercises(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalogForLevel(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"level":     catalog.Level,
		"exercises": catalog.Exercises,
	})
}

// handleGetMetrics handles GET /api/evaluations/metrics/{level}.
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalogForLevel(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"level":   catalog.Level,
		"metrics": catalog.Metrics,
		"domain":  catalog.Domain,
	})
}

// handleGetCatalogs handles GET /api/evaluations/catalogs.
func (s *Server) handleGetCatalogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"catalogs": s.deps.GetCatalogs.All(),
	})
}

func (s *Server) catalogForLevel(r *http.Request) (*query.CatalogDTO, error) {
	level, err := student.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		return nil, shared.ErrUnknownLevel
	}
	return s.deps.GetCatalogs.ForLevel(level)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetPoints handles GET /api/students/{id}/points.
func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetPoints.Handle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleChangeLevel handles PUT /api/students/{id}/level.
func (s *Server) handleChangeLevel(w http.ResponseWriter, r *http.Request) {
	var req changeLevelRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ChangeLevel.Handle(r.Context(), command.ChangeLevelCommand{
		StudentID:     chi.URLParam(r, "id"),
		NewLevel:      req.Level,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"studentId":     result.StudentID,
		"previousLevel": result.PreviousLevel.String(),
		"level":         result.NewLevel.String(),
	})
}
