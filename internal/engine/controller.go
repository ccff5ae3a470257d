// Package engine runs the lifecycle of a single graded, time-boxed
// assessment attempt: the state machine, the races between timeout,
// violation and submission, and the consistency of the recovery record
// across process restarts.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/clock"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/monitor"
	"github.com/ledionnezirii/germanmaster-sub001/internal/recovery"
	"github.com/rs/zerolog"
)

const tickInterval = time.Second

// Grader finalizes an attempt: validates answers, computes the score,
// and updates the availability ledger. Must be idempotent per session
// id: resubmitting a finalized session returns the original result.
type Grader interface {
	Finalize(ctx context.Context, sub *model.GradingSubmission) (*model.AttemptResult, error)
}

// AvailabilityChecker reports whether a user may start a level now.
type AvailabilityChecker interface {
	Available(ctx context.Context, userID int, level model.Level) (bool, error)
}

// DefinitionSource loads immutable assessment definitions.
type DefinitionSource interface {
	Definition(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentDefinition, error)
}

// Attempt is one registered in-flight (or just-finalized, awaiting
// acknowledgement) attempt. All mutation happens under mu, which is
// the single-flight guard's backing lock.
type Attempt struct {
	mu       sync.Mutex
	session  *model.AssessmentSession
	def      *model.AssessmentDefinition
	mon      *monitor.Monitor
	stopTick func()

	// result is set once grading succeeded; pending holds the
	// submission for retry while grading is unreachable.
	result  *model.AttemptResult
	pending *model.GradingSubmission
}

// State is a read snapshot of an attempt for resume and countdown.
type State struct {
	Session          *model.AssessmentSession   `json:"session"`
	Answers          map[uuid.UUID]model.Answer `json:"answers"`
	RemainingSeconds int                        `json:"remaining_seconds"`
	Result           *model.AttemptResult       `json:"result,omitempty"`
}

// Controller is the session lifecycle state machine. It is the only
// writer to the recovery store and the only caller of the grader.
type Controller struct {
	cfg    *config.Config
	clk    clock.Clock
	sched  clock.Scheduler
	store  *recovery.Store
	defs   DefinitionSource
	grader Grader
	avail  AvailabilityChecker
	log    zerolog.Logger

	mu     sync.Mutex
	active map[int]*Attempt // userID -> attempt, at most one each
}

// NewController wires the controller with its collaborators.
func NewController(
	cfg *config.Config,
	clk clock.Clock,
	sched clock.Scheduler,
	store *recovery.Store,
	defs DefinitionSource,
	grader Grader,
	avail AvailabilityChecker,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		cfg:    cfg,
		clk:    clk,
		sched:  sched,
		store:  store,
		defs:   defs,
		grader: grader,
		avail:  avail,
		log:    log.With().Str("component", "attempt_engine").Logger(),
		active: make(map[int]*Attempt),
	}
}

// budget returns the attempt duration for a definition, falling back
// to the deployment default.
func (c *Controller) budget(def *model.AssessmentDefinition) time.Duration {
	if def.TimeBudgetSecs > 0 {
		return def.TimeBudget()
	}
	return c.cfg.TimeBudget
}

// Start begins a new attempt: Idle -> InProgress. Fails with
// ErrNotAvailable when the level is locked, or
// ErrAttemptAlreadyInProgress when a recovery record exists.
func (c *Controller) Start(ctx context.Context, userID int, assessmentID uuid.UUID) (*model.AssessmentSession, error) {
	def, err := c.defs.Definition(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	ok, err := c.avail.Available(ctx, userID, def.Level)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		return nil, ErrNotAvailable
	}

	c.mu.Lock()
	if _, exists := c.active[userID]; exists {
		c.mu.Unlock()
		return nil, ErrAttemptAlreadyInProgress
	}
	c.mu.Unlock()

	session := &model.AssessmentSession{
		SessionID:    uuid.New(),
		AssessmentID: assessmentID,
		UserID:       userID,
		Level:        def.Level,
		StartedAt:    c.clk.Now(),
		Answers:      make(map[uuid.UUID]model.Answer),
		Status:       model.SessionStatusInProgress,
	}

	rec := &recovery.Record{
		SessionID:      session.SessionID,
		AssessmentID:   assessmentID,
		Answers:        session.Answers,
		StartTimestamp: session.StartedAt.Unix(),
	}
	if err := c.store.Begin(ctx, userID, rec); err != nil {
		if err == recovery.ErrAttemptInFlight {
			return nil, ErrAttemptAlreadyInProgress
		}
		return nil, fmt.Errorf("persist attempt record: %w", err)
	}

	c.register(userID, session, def)

	c.log.Info().
		Int("user_id", userID).
		Str("session_id", session.SessionID.String()).
		Str("level", string(def.Level)).
		Msg("Attempt started")

	return session, nil
}

// register installs an attempt into the active map, arms its monitor
// and starts the 1 Hz expiry tick. Two resumes can race past lookup
// and both build an attempt; the registry decides the winner under
// c.mu and the loser's ticker is stopped so nothing leaks.
func (c *Controller) register(userID int, session *model.AssessmentSession, def *model.AssessmentDefinition) *Attempt {
	att := &Attempt{
		session: session,
		def:     def,
		mon:     monitor.New(),
	}

	att.mon.OnViolation(func(kind model.ViolationKind) {
		c.onViolation(att, kind)
	})
	att.mon.Arm()

	att.stopTick = c.sched.Every(tickInterval, func() {
		c.checkExpiry(att)
	})

	c.mu.Lock()
	if existing, ok := c.active[userID]; ok {
		c.mu.Unlock()
		att.stopTick()
		att.mon.Disarm()
		return existing
	}
	c.active[userID] = att
	c.mu.Unlock()

	return att
}

func (c *Controller) lookup(userID int) *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[userID]
}

// Resume restores an interrupted attempt after a reload or crash.
// A record whose remaining time has run out is not a normal expiry:
// the user left and time ran out while absent, so it resolves to
// ViolationFailed(test_abandoned) without re-entering InProgress.
func (c *Controller) Resume(ctx context.Context, userID int) (*State, error) {
	if att := c.lookup(userID); att != nil {
		return c.snapshot(att), nil
	}

	rec, err := c.store.Load(ctx, userID)
	if err != nil {
		if err == recovery.ErrNoRecord {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("load attempt record: %w", err)
	}

	def, err := c.defs.Definition(ctx, rec.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	startedAt := time.Unix(rec.StartTimestamp, 0).UTC()
	answers := rec.Answers
	if answers == nil {
		answers = make(map[uuid.UUID]model.Answer)
	}

	session := &model.AssessmentSession{
		SessionID:    rec.SessionID,
		AssessmentID: rec.AssessmentID,
		UserID:       userID,
		Level:        def.Level,
		StartedAt:    startedAt,
		Answers:      answers,
		Status:       model.SessionStatusInProgress,
	}

	remaining := clock.Remaining(startedAt, c.budget(def), c.clk.Now())
	if remaining <= 0 {
		return c.resolveAbandoned(ctx, userID, session, def)
	}

	att := c.register(userID, session, def)

	c.log.Info().
		Int("user_id", userID).
		Str("session_id", session.SessionID.String()).
		Int("answers", len(answers)).
		Dur("remaining", remaining).
		Msg("Attempt resumed")

	return c.snapshot(att), nil
}

// resolveAbandoned finalizes an over-deadline record as a
// test_abandoned violation.
func (c *Controller) resolveAbandoned(ctx context.Context, userID int, session *model.AssessmentSession, def *model.AssessmentDefinition) (*State, error) {
	session.Status = model.SessionStatusViolationFailed
	session.Finalizing = true
	session.ViolationRaised = true

	att := &Attempt{session: session, def: def, mon: monitor.New(), stopTick: func() {}}

	c.mu.Lock()
	c.active[userID] = att
	c.mu.Unlock()

	att.mu.Lock()
	defer att.mu.Unlock()

	if _, err := c.grade(ctx, att, model.OutcomeForceFailure, model.ViolationAbandoned); err != nil {
		return nil, err
	}

	c.log.Warn().
		Int("user_id", userID).
		Str("session_id", session.SessionID.String()).
		Msg("Abandoned attempt resolved as violation")

	return c.snapshotLocked(att), nil
}

func (c *Controller) snapshot(att *Attempt) *State {
	att.mu.Lock()
	defer att.mu.Unlock()
	return c.snapshotLocked(att)
}

// snapshotLocked copies the session and its answers map. Transports
// marshal the state after att.mu is released, so handing out the live
// map would race concurrent autosaves. Caller holds att.mu.
func (c *Controller) snapshotLocked(att *Attempt) *State {
	answers := make(map[uuid.UUID]model.Answer, len(att.session.Answers))
	for id, ans := range att.session.Answers {
		answers[id] = ans
	}
	sess := *att.session
	sess.Answers = answers

	remaining := clock.Remaining(att.session.StartedAt, c.budget(att.def), c.clk.Now())
	return &State{
		Session:          &sess,
		Answers:          answers,
		RemainingSeconds: int(remaining / time.Second),
		Result:           att.result,
	}
}

// GetState returns a snapshot of the user's attempt for countdown and
// resume rendering.
func (c *Controller) GetState(userID int) (*State, error) {
	att := c.lookup(userID)
	if att == nil {
		return nil, ErrNoActiveAttempt
	}
	return c.snapshot(att), nil
}

// SaveAnswer records an answer edit and writes it through to the
// recovery store. Keys must belong to the assessment definition.
// Empty answers clear the entry so the completeness gate stays honest.
func (c *Controller) SaveAnswer(ctx context.Context, userID int, questionID uuid.UUID, ans model.Answer) error {
	att := c.lookup(userID)
	if att == nil {
		return ErrNoActiveAttempt
	}

	att.mu.Lock()
	defer att.mu.Unlock()

	if att.session.Finalizing || att.session.Status.Terminal() {
		return ErrAlreadyFinalized
	}
	if att.def.QuestionByID(questionID) == nil {
		return ErrUnknownQuestion
	}

	if ans.IsEmpty() {
		delete(att.session.Answers, questionID)
	} else {
		att.session.Answers[questionID] = ans
	}

	rec := &recovery.Record{
		SessionID:      att.session.SessionID,
		AssessmentID:   att.session.AssessmentID,
		Answers:        att.session.Answers,
		StartTimestamp: att.session.StartedAt.Unix(),
	}
	if err := c.store.SaveAnswers(ctx, userID, rec); err != nil {
		return fmt.Errorf("write through answer: %w", err)
	}
	return nil
}

// Submit performs the explicit user submission: InProgress ->
// Submitted. Unanswered questions reject the call with
// IncompleteAnswersError and no state change. A submit racing an
// in-flight auto-submit or violation is a no-op; a submit after a
// grading outage retries the same submission idempotently.
func (c *Controller) Submit(ctx context.Context, userID int) (*model.AttemptResult, error) {
	att := c.lookup(userID)
	if att == nil {
		return nil, ErrNoActiveAttempt
	}

	att.mu.Lock()
	defer att.mu.Unlock()

	if att.result != nil {
		return att.result, nil
	}
	if att.session.Finalizing {
		if att.pending != nil {
			// Grading failed earlier; retry the recorded submission.
			return c.retryGrade(ctx, att)
		}
		return nil, ErrAlreadyFinalized
	}

	if missing := c.unanswered(att); len(missing) > 0 {
		return nil, &IncompleteAnswersError{Count: len(missing), Ordinals: missing}
	}

	att.session.Status = model.SessionStatusSubmitted
	return c.finalizeLocked(ctx, att, model.OutcomeNormal, "")
}

// unanswered returns the ordinals of questions without a usable answer.
func (c *Controller) unanswered(att *Attempt) []int {
	var ordinals []int
	for _, q := range att.def.Questions {
		ans, ok := att.session.Answers[q.ID]
		if !ok || ans.IsEmpty() {
			ordinals = append(ordinals, q.Ordinal)
		}
	}
	return ordinals
}

// Cancel is the user-initiated irreversible cancellation. It is routed
// through the integrity monitor so it shares the violation path:
// forced failure, tagged kind = cancelled.
func (c *Controller) Cancel(ctx context.Context, userID int) (*model.AttemptResult, error) {
	att := c.lookup(userID)
	if att == nil {
		return nil, ErrNoActiveAttempt
	}

	att.mon.Observe(monitor.SignalCancelRequested)

	att.mu.Lock()
	defer att.mu.Unlock()
	if att.result != nil {
		return att.result, nil
	}
	if att.pending != nil {
		return c.retryGrade(ctx, att)
	}
	return nil, ErrAlreadyFinalized
}

// Signal feeds a raw environment signal into the attempt's monitor.
// Returns the severity so transports can report suppression back.
func (c *Controller) Signal(userID int, sig monitor.SignalType) (monitor.Severity, error) {
	att := c.lookup(userID)
	if att == nil {
		return monitor.SeverityIgnore, ErrNoActiveAttempt
	}
	return att.mon.Observe(sig), nil
}

// onViolation is the monitor callback: InProgress -> ViolationFailed
// (or Cancelled). Runs synchronously on the signalling goroutine.
func (c *Controller) onViolation(att *Attempt, kind model.ViolationKind) {
	att.mu.Lock()
	defer att.mu.Unlock()

	if att.session.Finalizing || att.session.Status.Terminal() {
		return
	}

	att.session.ViolationRaised = true
	if kind == model.ViolationCancelled {
		att.session.Status = model.SessionStatusCancelled
	} else {
		att.session.Status = model.SessionStatusViolationFailed
	}

	if _, err := c.finalizeLocked(context.Background(), att, model.OutcomeForceFailure, kind); err != nil {
		c.log.Error().Err(err).
			Int("user_id", att.session.UserID).
			Str("kind", string(kind)).
			Msg("Violation finalize failed, record retained for retry")
	}
}

// checkExpiry is the 1 Hz scheduler callback. The first tick at which
// the derived remaining time hits zero auto-submits whatever answers
// exist: InProgress -> Expired.
func (c *Controller) checkExpiry(att *Attempt) {
	att.mu.Lock()
	defer att.mu.Unlock()

	if att.session.Finalizing || att.session.Status.Terminal() {
		return
	}
	if clock.Remaining(att.session.StartedAt, c.budget(att.def), c.clk.Now()) > 0 {
		return
	}

	att.session.Status = model.SessionStatusExpired
	if _, err := c.finalizeLocked(context.Background(), att, model.OutcomeAutoSubmitted, ""); err != nil {
		c.log.Error().Err(err).
			Int("user_id", att.session.UserID).
			Msg("Expiry finalize failed, record retained for retry")
	}
}

// finalizeLocked performs the one terminal transition. Caller holds
// att.mu and has already set the terminal status. Setting Finalizing
// here makes every concurrent trigger a no-op before any side effect
// runs.
func (c *Controller) finalizeLocked(ctx context.Context, att *Attempt, kind model.OutcomeKind, vkind model.ViolationKind) (*model.AttemptResult, error) {
	att.session.Finalizing = true
	att.stopTick()
	att.mon.Disarm()

	return c.grade(ctx, att, kind, vkind)
}

// grade calls the grading service exactly once per attempt (retries
// reuse the same submission, and the service is idempotent by session
// id). The recovery record is cleared only after grading succeeds.
func (c *Controller) grade(ctx context.Context, att *Attempt, kind model.OutcomeKind, vkind model.ViolationKind) (*model.AttemptResult, error) {
	if att.pending == nil {
		att.pending = &model.GradingSubmission{
			SessionID:     att.session.SessionID,
			AssessmentID:  att.session.AssessmentID,
			UserID:        att.session.UserID,
			Level:         att.session.Level,
			StartedAt:     att.session.StartedAt,
			Answers:       att.session.Answers,
			Kind:          kind,
			ViolationKind: vkind,
		}
	}
	return c.retryGrade(ctx, att)
}

func (c *Controller) retryGrade(ctx context.Context, att *Attempt) (*model.AttemptResult, error) {
	res, err := c.grader.Finalize(ctx, att.pending)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGradingUnavailable, err)
	}

	att.result = res
	att.pending = nil

	cleared, err := c.store.Clear(ctx, att.session.UserID)
	if err != nil {
		c.log.Warn().Err(err).
			Int("user_id", att.session.UserID).
			Msg("Recovery record clear failed; next start will be blocked until retried")
	} else if !cleared {
		c.log.Debug().
			Int("user_id", att.session.UserID).
			Msg("Recovery record already cleared")
	}

	c.log.Info().
		Int("user_id", att.session.UserID).
		Str("session_id", att.session.SessionID.String()).
		Str("status", string(att.session.Status)).
		Int("score", res.Score).
		Bool("passed", res.Passed).
		Msg("Attempt finalized")

	return res, nil
}

// Acknowledge dismisses a graded terminal attempt: terminal -> Idle.
// The attempt leaves the active registry; the recovery record was
// already cleared during finalization.
func (c *Controller) Acknowledge(userID int) error {
	att := c.lookup(userID)
	if att == nil {
		return ErrNoActiveAttempt
	}

	att.mu.Lock()
	finalized := att.result != nil
	att.mu.Unlock()

	if !finalized {
		return ErrNotFinalized
	}

	c.mu.Lock()
	delete(c.active, userID)
	c.mu.Unlock()
	return nil
}

// Shutdown stops all tickers. In-flight attempts stay recoverable via
// their recovery records.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, att := range c.active {
		if att.stopTick != nil {
			att.stopTick()
		}
		att.mon.Disarm()
	}
}
