package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/qaplayground/playground-hub/internal/application/command"
	"github.com/qaplayground/playground-hub/internal/application/query"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":        "QA Playground Hub API",
		"version":     s.config.Version,
		"description": "Scenario progress and Power Ranking",
		"endpoints": map[string]string{
			"health":    "/health",
			"progress":  "/api/v1/progress",
			"profile":   "/api/v1/users/{userId}/profile",
			"ranking":   "/api/v1/ranking",
			"scenarios": "/api/v1/scenarios",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type completeScenarioRequest struct {
	UserID     string `json:"userId"`
	ScenarioID string `json:"scenarioId"`
	Difficulty string `json:"difficulty"`
}

// handleCompleteScenario handles POST /api/v1/progress
func (s *Server) handleCompleteScenario(w http.ResponseWriter, r *http.Request) {
	if s.deps.CompleteScenario == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Completion handler not configured")
		return
	}

	var req completeScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_input", "Request body must be a JSON object", err.Error())
		return
	}

	result, err := s.deps.CompleteScenario.Handle(r.Context(), command.CompleteScenarioCommand{
		UserID:     req.UserID,
		ScenarioID: req.ScenarioID,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleGetProgress handles GET /api/v1/users/{userId}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProgress == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	result, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{UserID: r.PathValue("userId")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleResetProgress handles POST /api/v1/users/{userId}/progress/reset
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.ResetProgress == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Reset handler not configured")
		return
	}

	result, err := s.deps.ResetProgress.Handle(r.Context(), command.ResetProgressCommand{UserID: r.PathValue("userId")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type saveProfileRequest struct {
	Email               string `json:"email"`
	Name                string `json:"name"`
	Image               string `json:"image"`
	LinkedInURL         string `json:"linkedinUrl"`
	PowerRankingEnabled *bool  `json:"powerRankingEnabled"`
}

// handleGetProfile handles GET /api/v1/users/{userId}/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProfile == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Profile handler not configured")
		return
	}

	result, err := s.deps.GetProfile.Handle(r.Context(), query.GetProfileQuery{UserID: r.PathValue("userId")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleSaveProfile handles PUT /api/v1/users/{userId}/profile
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.SaveProfile == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Profile handler not configured")
		return
	}

	var req saveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_input", "Request body must be a JSON object", err.Error())
		return
	}

	result, err := s.deps.SaveProfile.Handle(r.Context(), command.SaveProfileCommand{
		UserID:              r.PathValue("userId"),
		Email:               req.Email,
		Name:                req.Name,
		Image:               req.Image,
		LinkedInURL:         req.LinkedInURL,
		PowerRankingEnabled: req.PowerRankingEnabled,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING & CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetRanking handles GET /api/v1/ranking?limit=N
func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetRanking == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Ranking handler not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_input", "limit must be an integer", err.Error())
			return
		}
		limit = n
	}

	result, err := s.deps.GetRanking.Handle(r.Context(), query.GetRankingQuery{Limit: limit})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleListScenarios handles GET /api/v1/scenarios
func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListScenarios == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Catalog handler not configured")
		return
	}

	result := s.deps.ListScenarios.Handle(r.Context())
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result.Scenarios)})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps the error taxonomy to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *shared.DomainError
	message := err.Error()
	if errors.As(err, &de) {
		message = de.Message
	}

	// store errors wrap the context error, so the deadline is checked first
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, r, http.StatusGatewayTimeout, "timeout", "The request timed out")
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_input", message)
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", message)
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, r, http.StatusConflict, "conflict", message)
	case shared.IsStorageUnavailable(err), errors.Is(err, context.Canceled):
		writeJSONError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "Progress storage is unavailable, please retry")
	default:
		s.logger.Error("unhandled error",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err))
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
