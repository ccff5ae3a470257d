package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/engine"
	"github.com/ledionnezirii/germanmaster-sub001/internal/middleware"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/monitor"
	ws "github.com/ledionnezirii/germanmaster-sub001/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt: autosave, integrity signals,
// heartbeat and submission over one connection.
type WSHandler struct {
	rdb        *redis.Client
	controller *engine.Controller
	log        zerolog.Logger
	upgrader   websocket.Upgrader

	// heartbeatTimeout bounds the silence between client messages; a
	// stream past it is considered stale and dropped.
	heartbeatTimeout time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, controller *engine.Controller, log zerolog.Logger, cfg *config.Config) *WSHandler {
	return &WSHandler{
		rdb:              rdb,
		controller:       controller,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(cfg.AllowedOrigins),
		heartbeatTimeout: cfg.HeartbeatTimeout,
	}
}

// AttemptStream godoc
// WS /ws/v1/attempt/stream
// Upgrades to WebSocket for the learner's active attempt. At most one
// attempt per learner exists, so the stream needs no attempt id.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID := claims.UserID

	// Reject before upgrading when there is nothing to stream.
	state, err := h.controller.GetState(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active attempt"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", userID).
		Str("session_id", state.Session.SessionID.String()).
		Logger()

	wsLog.Info().Msg("Learner connected")

	for {
		var env ws.RequestEnvelope
		raw, err := ws.ReadRaw(conn, h.heartbeatTimeout)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch env.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, userID, raw)
		case ws.ActionSignal:
			h.handleSignal(conn, wsLog, userID, raw)
		case ws.ActionHeartbeat:
			h.handleHeartbeat(conn, userID)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, userID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(env.Action))
		}
	}
}

// handleAutosave writes a single answer through the engine and queues
// it for the audit trail.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, userID int, raw []byte) {
	ctx := context.Background()

	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed autosave")
		return
	}
	if msg.QID == "" {
		ws.WriteError(conn, "q_id is required")
		return
	}

	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := h.controller.SaveAnswer(ctx, userID, questionID, msg.Answer); err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownQuestion):
			ws.WriteError(conn, "question does not belong to this assessment")
		case errors.Is(err, engine.ErrAlreadyFinalized):
			ws.WriteError(conn, "attempt already finalized")
		case errors.Is(err, engine.ErrNoActiveAttempt):
			ws.WriteError(conn, "no active attempt")
		default:
			wsLog.Error().Err(err).Msg("Autosave failed")
			ws.WriteError(conn, "save failed")
		}
		return
	}

	state, err := h.controller.GetState(userID)
	if err == nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"user_id":    userID,
			"session_id": state.Session.SessionID.String(),
			"q_id":       msg.QID,
			"answer":     msg.Answer,
			"saved_at":   time.Now().UTC().Unix(),
		})
		h.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

// handleSignal feeds an integrity signal into the monitor. Violations
// come back with the graded forced-failure result; tamper signals are
// acknowledged and queued for the audit log only.
func (h *WSHandler) handleSignal(conn *websocket.Conn, wsLog zerolog.Logger, userID int, raw []byte) {
	ctx := context.Background()

	var msg ws.SignalRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed signal")
		return
	}

	sig := monitor.SignalType(msg.Signal)

	state, stateErr := h.controller.GetState(userID)

	severity, err := h.controller.Signal(userID, sig)
	if err != nil {
		ws.WriteError(conn, "no active attempt")
		return
	}

	if stateErr == nil {
		kind, _ := monitor.Classify(sig)
		payload, _ := json.Marshal(map[string]interface{}{
			"user_id":    userID,
			"session_id": state.Session.SessionID.String(),
			"signal":     msg.Signal,
			"kind":       string(kind),
			"at":         time.Now().UTC().Unix(),
		})
		h.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, payload)
	}

	switch severity {
	case monitor.SeverityViolation:
		kind, _ := monitor.Classify(sig)
		wsLog.Warn().Str("signal", msg.Signal).Msg("Violation, attempt force-failed")
		ws.WriteTyped(conn, ws.ViolationResponse{Event: ws.EventViolation, Reason: string(kind)})
		if after, err := h.controller.GetState(userID); err == nil && after.Result != nil {
			h.writeGraded(conn, after.Result)
		}
	case monitor.SeverityTamper:
		ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "logged"})
	default:
		ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "ignored"})
	}
}

// handleHeartbeat answers with the authoritative remaining time.
func (h *WSHandler) handleHeartbeat(conn *websocket.Conn, userID int) {
	state, err := h.controller.GetState(userID)
	if err != nil {
		ws.WriteError(conn, "no active attempt")
		return
	}
	ws.WriteTyped(conn, ws.TimeResponse{
		Event:            ws.EventTime,
		RemainingSeconds: int64(state.RemainingSeconds),
	})
}

// handleSubmit finalizes via the engine and streams the graded result.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, userID int) {
	ctx := context.Background()

	result, err := h.controller.Submit(ctx, userID)
	if err != nil {
		var incomplete *engine.IncompleteAnswersError
		switch {
		case errors.As(err, &incomplete):
			ws.WriteError(conn, incomplete.Error())
		case errors.Is(err, engine.ErrGradingUnavailable):
			ws.WriteError(conn, "grading temporarily unavailable, retry submit")
		case errors.Is(err, engine.ErrNoActiveAttempt):
			ws.WriteError(conn, "no active attempt")
		case errors.Is(err, engine.ErrAlreadyFinalized):
			ws.WriteError(conn, "attempt already finalized")
		default:
			wsLog.Error().Err(err).Msg("Submit failed")
			ws.WriteError(conn, "submit failed")
		}
		return
	}

	wsLog.Info().Int("score", result.Score).Bool("passed", result.Passed).Msg("Attempt submitted and graded")
	h.writeGraded(conn, result)
}

func (h *WSHandler) writeGraded(conn *websocket.Conn, result *model.AttemptResult) {
	ws.WriteTyped(conn, ws.GradedResponse{
		Event:  ws.EventGraded,
		Status: "completed",
		Score:  result.Score,
		Passed: result.Passed,
	})
}
