package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/engine"
	"github.com/ledionnezirii/germanmaster-sub001/internal/middleware"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/response"
	"github.com/ledionnezirii/germanmaster-sub001/internal/service"
	"github.com/ledionnezirii/germanmaster-sub001/internal/validator"
)

// StartAttemptRequest is the payload for starting a level test.
type StartAttemptRequest struct {
	AssessmentID string `json:"assessment_id" binding:"required,uuid"`
}

// AssessmentHandler handles level-test attempt endpoints for learners.
type AssessmentHandler struct {
	controller   *engine.Controller
	assessments  *service.AssessmentService
	availability *service.AvailabilityService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(
	controller *engine.Controller,
	assessments *service.AssessmentService,
	availability *service.AvailabilityService,
) *AssessmentHandler {
	return &AssessmentHandler{
		controller:   controller,
		assessments:  assessments,
		availability: availability,
	}
}

// GetAvailability godoc
// GET /api/v1/learner/levels
// Returns the per-level availability ledger for the current learner.
func (h *AssessmentHandler) GetAvailability(c *gin.Context) {
	claims := middleware.GetClaims(c)

	ledger, err := h.availability.GetAvailability(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	levels := make([]gin.H, 0, len(model.LevelChain))
	for _, lvl := range model.LevelChain {
		rec := ledger[lvl]
		levels = append(levels, gin.H{
			"level":     lvl,
			"record":    rec,
			"available": rec.Available(h.availability.Now()),
		})
	}

	response.Success(c, http.StatusOK, gin.H{"levels": levels})
}

// GetPayload godoc
// GET /api/v1/learner/assessments/:id
// Returns the learner-facing assessment payload (no answer keys).
func (h *AssessmentHandler) GetPayload(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.assessments.GetPayload(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": payload})
}

// StartAttempt godoc
// POST /api/v1/learner/attempts
// Starts a timed attempt. Rejected when the level is unavailable or an
// attempt is already in flight for this learner.
func (h *AssessmentHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	assessmentID := uuid.MustParse(req.AssessmentID)

	session, err := h.controller.Start(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotAvailable):
			response.Fail(c, http.StatusForbidden, response.ErrNotAvailable)
		case errors.Is(err, engine.ErrAttemptAlreadyInProgress):
			response.Fail(c, http.StatusConflict, response.ErrAttemptInProgress)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	payload, err := h.assessments.GetPayload(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session":    session,
		"assessment": payload,
	})
}

// GetActiveAttempt godoc
// GET /api/v1/learner/attempts/active
// Resumes an in-flight attempt after a crash or reload. Returns the
// saved answers and the authoritative remaining time. An attempt whose
// budget expired while away comes back already force-failed.
func (h *AssessmentHandler) GetActiveAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	state, err := h.controller.Resume(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, engine.ErrNoActiveAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	var payload *model.AssessmentPayload
	if state.Session.Status == model.SessionStatusInProgress {
		payload, err = h.assessments.GetPayload(c.Request.Context(), state.Session.AssessmentID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":      state,
		"assessment": payload,
	})
}

// Submit godoc
// POST /api/v1/learner/attempts/submit
// Submits the attempt for grading. Rejected with the unanswered
// ordinals when any question is blank. Safe to retry after a grading
// outage.
func (h *AssessmentHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	result, err := h.controller.Submit(c.Request.Context(), claims.UserID)
	if err != nil {
		h.failFinalize(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Cancel godoc
// POST /api/v1/learner/attempts/cancel
// Cancels the attempt. Cancellation counts as a violation outcome and
// starts the retry cooldown.
func (h *AssessmentHandler) Cancel(c *gin.Context) {
	claims := middleware.GetClaims(c)

	result, err := h.controller.Cancel(c.Request.Context(), claims.UserID)
	if err != nil {
		h.failFinalize(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Acknowledge godoc
// POST /api/v1/learner/attempts/ack
// Confirms the learner saw the terminal result and releases the
// attempt slot.
func (h *AssessmentHandler) Acknowledge(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.controller.Acknowledge(claims.UserID); err != nil {
		switch {
		case errors.Is(err, engine.ErrNoActiveAttempt):
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		case errors.Is(err, engine.ErrNotFinalized):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotFinalized)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// failFinalize maps finalize-path errors to API responses.
func (h *AssessmentHandler) failFinalize(c *gin.Context, err error) {
	var incomplete *engine.IncompleteAnswersError
	switch {
	case errors.As(err, &incomplete):
		response.FailWithDetails(c, http.StatusUnprocessableEntity, response.ErrIncompleteAnswers, gin.H{
			"unanswered_count":   incomplete.Count,
			"unanswered_numbers": incomplete.Ordinals,
		})
	case errors.Is(err, engine.ErrNoActiveAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
	case errors.Is(err, engine.ErrAlreadyFinalized):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinalized)
	case errors.Is(err, engine.ErrGradingUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrGradingUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
