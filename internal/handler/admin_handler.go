package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
	"github.com/ledionnezirii/germanmaster-sub001/internal/response"
)

// AdminHandler exposes read-only result and audit endpoints for
// platform staff.
type AdminHandler struct {
	assessments *repository.AssessmentRepository
	attempts    *repository.AttemptRepository
	events      *repository.IntegrityEventRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	assessments *repository.AssessmentRepository,
	attempts *repository.AttemptRepository,
	events *repository.IntegrityEventRepository,
) *AdminHandler {
	return &AdminHandler{
		assessments: assessments,
		attempts:    attempts,
		events:      events,
	}
}

// ListAssessments godoc
// GET /api/v1/admin/assessments
// Returns one assessment per level with its metadata.
func (h *AdminHandler) ListAssessments(c *gin.Context) {
	out := make([]gin.H, 0, len(model.LevelChain))
	for _, lvl := range model.LevelChain {
		def, err := h.assessments.GetByLevel(c.Request.Context(), lvl)
		if err != nil {
			continue
		}
		out = append(out, gin.H{
			"assessment_id":       def.ID,
			"level":               def.Level,
			"title":               def.Title,
			"time_budget_seconds": def.TimeBudgetSecs,
			"passing_threshold":   def.PassingThreshold,
			"question_count":      len(def.Questions),
		})
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": out})
}

// ListAttempts godoc
// GET /api/v1/admin/assessments/:id/attempts?page=&per_page=&passed=
// Paginated finalized attempts for one assessment.
func (h *AdminHandler) ListAttempts(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	var passed *bool
	if raw := c.Query("passed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
			return
		}
		passed = &v
	}

	summaries, total, err := h.attempts.ListByAssessment(c.Request.Context(), assessmentID, page, perPage, passed)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": summaries}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}

// GetAttempt godoc
// GET /api/v1/admin/attempts/:session_id
// One finalized attempt with its integrity event trail.
func (h *AdminHandler) GetAttempt(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	row, err := h.attempts.GetBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	events, err := h.events.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt":          row,
		"integrity_events": events,
	})
}
