package websocket

import "github.com/ledionnezirii/germanmaster-sub001/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionSignal    Action = "signal"
	ActionHeartbeat Action = "heartbeat"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action Action       `json:"action"`
	QID    string       `json:"q_id"`
	Answer model.Answer `json:"ans"`
}

// SignalRequest is sent by the client to report an integrity signal
// (tab switch, window blur, copy attempt, ...).
type SignalRequest struct {
	Action Action `json:"action"`
	Signal string `json:"signal"`
}

// HeartbeatRequest keeps the attempt marked as live.
type HeartbeatRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventViolation Event = "violation"
	EventGraded    Event = "graded"
	EventTime      Event = "time"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// ViolationResponse notifies the client its attempt was force-failed.
type ViolationResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type GradedResponse struct {
	Event  Event `json:"event"`
	Status string `json:"status"`
	Score  int    `json:"score"`
	Passed bool   `json:"passed"`
}

// TimeResponse carries the authoritative remaining time.
type TimeResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
