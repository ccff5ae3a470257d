package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ledionnezirii/germanmaster-sub001/internal/clock"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/monitor"
	"github.com/ledionnezirii/germanmaster-sub001/internal/recovery"
)

// ─── Test doubles ───────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualScheduler collects tick callbacks so tests fire them by hand.
type manualScheduler struct {
	mu    sync.Mutex
	ticks []func()
	stops int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	s.ticks = append(s.ticks, fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.stops++
		s.mu.Unlock()
	}
}

func (s *manualScheduler) Tick() {
	s.mu.Lock()
	fns := append([]func(){}, s.ticks...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// fakeGrader counts calls and can fail a number of times before
// succeeding, to exercise the retry path.
type fakeGrader struct {
	mu        sync.Mutex
	calls     int
	failTimes int
	last      *model.GradingSubmission
}

func (g *fakeGrader) Finalize(_ context.Context, sub *model.GradingSubmission) (*model.AttemptResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = sub

	if g.failTimes > 0 {
		g.failTimes--
		return nil, errors.New("grading backend down")
	}

	score := len(sub.Answers) * 20
	passed := sub.Kind != model.OutcomeForceFailure && score >= 85
	return &model.AttemptResult{
		SessionID:     sub.SessionID,
		AssessmentID:  sub.AssessmentID,
		UserID:        sub.UserID,
		Score:         score,
		Passed:        passed,
		OutcomeKind:   sub.Kind,
		ViolationKind: sub.ViolationKind,
	}, nil
}

func (g *fakeGrader) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeAvailability struct{ available bool }

func (a *fakeAvailability) Available(context.Context, int, model.Level) (bool, error) {
	return a.available, nil
}

type fakeDefs struct{ def *model.AssessmentDefinition }

func (d *fakeDefs) Definition(_ context.Context, id uuid.UUID) (*model.AssessmentDefinition, error) {
	if id != d.def.ID {
		return nil, errors.New("unknown assessment")
	}
	return d.def, nil
}

// ─── Fixture ────────────────────────────────────────────────────────

type fixture struct {
	ctrl   *Controller
	clk    *fakeClock
	sched  *manualScheduler
	grader *fakeGrader
	avail  *fakeAvailability
	def    *model.AssessmentDefinition
	mr     *miniredis.Miniredis
}

func testDefinition() *model.AssessmentDefinition {
	def := &model.AssessmentDefinition{
		ID:               uuid.New(),
		Level:            model.LevelA1,
		Title:            "Einstufungstest A1",
		TimeBudgetSecs:   1800,
		PassingThreshold: 85,
	}
	for i := 1; i <= 5; i++ {
		def.Questions = append(def.Questions, model.Question{
			ID:            uuid.New(),
			AssessmentID:  def.ID,
			Ordinal:       i,
			Prompt:        "Frage",
			Type:          model.QuestionTypeSingleChoice,
			CorrectValues: []string{"richtig"},
		})
	}
	return def
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		clk:    newFakeClock(),
		sched:  &manualScheduler{},
		grader: &fakeGrader{},
		avail:  &fakeAvailability{available: true},
		def:    testDefinition(),
		mr:     mr,
	}

	cfg := &config.Config{
		TimeBudget:   30 * time.Minute,
		PassingScore: 85,
		Cooldown:     14 * 24 * time.Hour,
	}

	f.ctrl = NewController(cfg, f.clk, f.sched, recovery.NewStore(rdb), &fakeDefs{def: f.def}, f.grader, f.avail, zerolog.Nop())
	return f
}

func (f *fixture) answerAll(t *testing.T, userID int) {
	t.Helper()
	for _, q := range f.def.Questions {
		err := f.ctrl.SaveAnswer(context.Background(), userID, q.ID, model.Answer{Single: "richtig"})
		if err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestStartAndSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.ctrl.Start(ctx, 1, f.def.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Status != model.SessionStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", session.Status)
	}

	f.answerAll(t, 1)

	result, err := f.ctrl.Submit(ctx, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Passed || result.Score != 100 {
		t.Fatalf("expected passed with score 100, got %+v", result)
	}
	if result.OutcomeKind != model.OutcomeNormal {
		t.Fatalf("expected normal outcome, got %s", result.OutcomeKind)
	}
	if f.grader.Calls() != 1 {
		t.Fatalf("expected exactly one grading call, got %d", f.grader.Calls())
	}
	if f.mr.Exists("user:1:attempt") {
		t.Fatalf("expected recovery record cleared after grading")
	}
}

func TestStartRejectedWhenUnavailable(t *testing.T) {
	f := newFixture(t)
	f.avail.available = false

	_, err := f.ctrl.Start(context.Background(), 1, f.def.ID)
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}

func TestStartRejectedWhenAttemptInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := f.ctrl.Start(ctx, 1, f.def.ID)
	if !errors.Is(err, ErrAttemptAlreadyInProgress) {
		t.Fatalf("expected ErrAttemptAlreadyInProgress, got %v", err)
	}
}

func TestSubmitIncompleteKeepsInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Answer only the first two questions.
	for _, q := range f.def.Questions[:2] {
		if err := f.ctrl.SaveAnswer(ctx, 1, q.ID, model.Answer{Single: "richtig"}); err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}

	_, err := f.ctrl.Submit(ctx, 1)
	var incomplete *IncompleteAnswersError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteAnswersError, got %v", err)
	}
	if incomplete.Count != 3 {
		t.Fatalf("expected 3 unanswered, got %d", incomplete.Count)
	}
	if want := []int{3, 4, 5}; len(incomplete.Ordinals) != 3 ||
		incomplete.Ordinals[0] != want[0] || incomplete.Ordinals[2] != want[2] {
		t.Fatalf("expected ordinals %v, got %v", want, incomplete.Ordinals)
	}

	state, err := f.ctrl.GetState(1)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Session.Status != model.SessionStatusInProgress {
		t.Fatalf("rejected submit must not change status, got %s", state.Session.Status)
	}
	if f.grader.Calls() != 0 {
		t.Fatalf("grader must not run on rejected submit")
	}
}

func TestClearedAnswerCountsAsUnanswered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answerAll(t, 1)

	// Clearing an answer must reopen the completeness gate.
	if err := f.ctrl.SaveAnswer(ctx, 1, f.def.Questions[0].ID, model.Answer{}); err != nil {
		t.Fatalf("clear answer: %v", err)
	}

	_, err := f.ctrl.Submit(ctx, 1)
	var incomplete *IncompleteAnswersError
	if !errors.As(err, &incomplete) || incomplete.Count != 1 {
		t.Fatalf("expected one unanswered question, got %v", err)
	}
}

func TestSaveAnswerUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := f.ctrl.SaveAnswer(ctx, 1, uuid.New(), model.Answer{Single: "x"})
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

// ─── Expiry ─────────────────────────────────────────────────────────

func TestExpiryAutoSubmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Partial answers are fine for an auto-submit.
	if err := f.ctrl.SaveAnswer(ctx, 1, f.def.Questions[0].ID, model.Answer{Single: "richtig"}); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	f.clk.Advance(29 * time.Minute)
	f.sched.Tick()
	if state, _ := f.ctrl.GetState(1); state.Session.Status != model.SessionStatusInProgress {
		t.Fatalf("must not expire before the deadline")
	}

	f.clk.Advance(time.Minute)
	f.sched.Tick()

	state, err := f.ctrl.GetState(1)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Session.Status != model.SessionStatusExpired {
		t.Fatalf("expected EXPIRED, got %s", state.Session.Status)
	}
	if state.Result == nil || state.Result.OutcomeKind != model.OutcomeAutoSubmitted {
		t.Fatalf("expected auto-submitted result, got %+v", state.Result)
	}
	if state.RemainingSeconds != 0 {
		t.Fatalf("remaining must floor at zero, got %d", state.RemainingSeconds)
	}

	// A late tick or explicit submit is a no-op returning the result.
	f.sched.Tick()
	res, err := f.ctrl.Submit(ctx, 1)
	if err != nil || res.OutcomeKind != model.OutcomeAutoSubmitted {
		t.Fatalf("late submit must return the existing result, got %v %+v", err, res)
	}
	if f.grader.Calls() != 1 {
		t.Fatalf("expected exactly one grading call, got %d", f.grader.Calls())
	}
}

// ─── Violations ─────────────────────────────────────────────────────

func TestTabSwitchForceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answerAll(t, 1)

	sev, err := f.ctrl.Signal(1, monitor.SignalVisibilityHidden)
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	if sev != monitor.SeverityViolation {
		t.Fatalf("expected violation severity, got %d", sev)
	}

	state, _ := f.ctrl.GetState(1)
	if state.Session.Status != model.SessionStatusViolationFailed {
		t.Fatalf("expected VIOLATION_FAILED, got %s", state.Session.Status)
	}
	if state.Result == nil || state.Result.Passed {
		t.Fatalf("a violation can never pass, got %+v", state.Result)
	}
	if state.Result.ViolationKind != model.ViolationTabSwitch {
		t.Fatalf("expected tab_switch, got %s", state.Result.ViolationKind)
	}

	// Answers are complete, yet the forced failure must stand.
	if state.Result.OutcomeKind != model.OutcomeForceFailure {
		t.Fatalf("expected forceFailure, got %s", state.Result.OutcomeKind)
	}
}

func TestDuplicateViolationSignalsCollapse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Blur then hidden fire near-simultaneously in real browsers.
	f.ctrl.Signal(1, monitor.SignalWindowBlur)
	f.ctrl.Signal(1, monitor.SignalVisibilityHidden)

	state, _ := f.ctrl.GetState(1)
	if state.Result.ViolationKind != model.ViolationWindowBlur {
		t.Fatalf("first signal wins, got %s", state.Result.ViolationKind)
	}
	if f.grader.Calls() != 1 {
		t.Fatalf("expected exactly one grading call, got %d", f.grader.Calls())
	}
}

func TestTamperSignalsDoNotFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, sig := range []monitor.SignalType{
		monitor.SignalCopy, monitor.SignalPaste, monitor.SignalDevTools, monitor.SignalContextMenu,
	} {
		sev, err := f.ctrl.Signal(1, sig)
		if err != nil {
			t.Fatalf("signal %s: %v", sig, err)
		}
		if sev != monitor.SeverityTamper {
			t.Fatalf("expected tamper severity for %s, got %d", sig, sev)
		}
	}

	state, _ := f.ctrl.GetState(1)
	if state.Session.Status != model.SessionStatusInProgress {
		t.Fatalf("tamper signals must not end the attempt, got %s", state.Session.Status)
	}
}

func TestCancelIsViolationOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := f.ctrl.Cancel(ctx, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.OutcomeKind != model.OutcomeForceFailure || result.ViolationKind != model.ViolationCancelled {
		t.Fatalf("cancel must grade as forced failure/cancelled, got %+v", result)
	}

	state, _ := f.ctrl.GetState(1)
	if state.Session.Status != model.SessionStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", state.Session.Status)
	}
}

// ─── Resume ─────────────────────────────────────────────────────────

func TestResumeRestoresAnswersAndDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.ctrl.Start(ctx, 1, f.def.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.ctrl.SaveAnswer(ctx, 1, f.def.Questions[0].ID, model.Answer{Single: "richtig"}); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	// Simulate a crash: rebuild the controller on the same Redis.
	f.clk.Advance(10 * time.Minute)
	rdb := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
	defer rdb.Close()
	cfg := &config.Config{TimeBudget: 30 * time.Minute, PassingScore: 85}
	ctrl2 := NewController(cfg, f.clk, f.sched, recovery.NewStore(rdb), &fakeDefs{def: f.def}, f.grader, f.avail, zerolog.Nop())

	state, err := ctrl2.Resume(ctx, 1)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state.Session.SessionID != session.SessionID {
		t.Fatalf("resume must restore the same session, got %s", state.Session.SessionID)
	}
	if len(state.Answers) != 1 {
		t.Fatalf("expected 1 restored answer, got %d", len(state.Answers))
	}
	// 30m budget minus the 10m away.
	if state.RemainingSeconds != 20*60 {
		t.Fatalf("expected 1200s remaining, got %d", state.RemainingSeconds)
	}
}

func TestResumeAfterDeadlineIsAbandoned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clk.Advance(31 * time.Minute)
	rdb := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
	defer rdb.Close()
	cfg := &config.Config{TimeBudget: 30 * time.Minute, PassingScore: 85}
	ctrl2 := NewController(cfg, f.clk, f.sched, recovery.NewStore(rdb), &fakeDefs{def: f.def}, f.grader, f.avail, zerolog.Nop())

	state, err := ctrl2.Resume(ctx, 1)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state.Session.Status != model.SessionStatusViolationFailed {
		t.Fatalf("overdue resume must fail as violation, got %s", state.Session.Status)
	}
	if state.Result == nil || state.Result.ViolationKind != model.ViolationAbandoned {
		t.Fatalf("expected test_abandoned, got %+v", state.Result)
	}
	if f.mr.Exists("user:1:attempt") {
		t.Fatalf("expected recovery record cleared after abandoned grading")
	}
}

func TestResumeWithoutRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Resume(context.Background(), 1)
	if !errors.Is(err, ErrNoActiveAttempt) {
		t.Fatalf("expected ErrNoActiveAttempt, got %v", err)
	}
}

// ─── Grading outage ─────────────────────────────────────────────────

func TestSubmitRetriesAfterGradingOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grader.failTimes = 1

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answerAll(t, 1)

	_, err := f.ctrl.Submit(ctx, 1)
	if !errors.Is(err, ErrGradingUnavailable) {
		t.Fatalf("expected ErrGradingUnavailable, got %v", err)
	}
	if !f.mr.Exists("user:1:attempt") {
		t.Fatalf("recovery record must survive a grading outage")
	}

	// Answers are frozen once finalization began.
	err = f.ctrl.SaveAnswer(ctx, 1, f.def.Questions[0].ID, model.Answer{Single: "anders"})
	if !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
	}

	result, err := f.ctrl.Submit(ctx, 1)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("retry must grade the original submission, got %+v", result)
	}
	if f.grader.Calls() != 2 {
		t.Fatalf("expected 2 grading calls (fail + retry), got %d", f.grader.Calls())
	}
	if f.mr.Exists("user:1:attempt") {
		t.Fatalf("expected recovery record cleared after successful retry")
	}
}

// ─── Races and acknowledgement ──────────────────────────────────────

func TestConcurrentSubmitsGradeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answerAll(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ctrl.Submit(ctx, 1)
		}()
	}
	wg.Wait()

	if f.grader.Calls() != 1 {
		t.Fatalf("racing submits must grade exactly once, got %d calls", f.grader.Calls())
	}
}

func TestAcknowledgeReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Not yet finalized.
	if err := f.ctrl.Acknowledge(1); !errors.Is(err, ErrNotFinalized) {
		t.Fatalf("expected ErrNotFinalized, got %v", err)
	}

	f.answerAll(t, 1)
	if _, err := f.ctrl.Submit(ctx, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.ctrl.Acknowledge(1); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := f.ctrl.GetState(1); !errors.Is(err, ErrNoActiveAttempt) {
		t.Fatalf("acknowledged attempt must leave the registry, got %v", err)
	}

	// The slot is free for a fresh start.
	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start after acknowledge: %v", err)
	}
}

func TestStateSnapshotIsIsolatedFromAutosaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.Start(ctx, 1, f.def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.ctrl.SaveAnswer(ctx, 1, f.def.Questions[0].ID, model.Answer{Single: "richtig"}); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	state, err := f.ctrl.GetState(1)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}

	// Edits after the snapshot must not show through it.
	if err := f.ctrl.SaveAnswer(ctx, 1, f.def.Questions[1].ID, model.Answer{Single: "richtig"}); err != nil {
		t.Fatalf("save answer: %v", err)
	}
	if len(state.Answers) != 1 || len(state.Session.Answers) != 1 {
		t.Fatalf("snapshot must be a copy, got %d/%d answers", len(state.Answers), len(state.Session.Answers))
	}

	// Transports marshal the state outside the session lock; do exactly
	// that against a stream of concurrent autosaves.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			q := f.def.Questions[i%len(f.def.Questions)]
			f.ctrl.SaveAnswer(ctx, 1, q.ID, model.Answer{Single: "richtig"})
			f.ctrl.SaveAnswer(ctx, 1, q.ID, model.Answer{})
		}
	}()
	for i := 0; i < 500; i++ {
		s, err := f.ctrl.GetState(1)
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if _, err := json.Marshal(s); err != nil {
			t.Fatalf("marshal state: %v", err)
		}
	}
	<-done
}

func TestConcurrentResumesRegisterOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.ctrl.Start(ctx, 1, f.def.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Crash and rebuild on the same Redis, then resume from many tabs
	// at once.
	rdb := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
	defer rdb.Close()
	cfg := &config.Config{TimeBudget: 30 * time.Minute, PassingScore: 85}
	ctrl2 := NewController(cfg, f.clk, f.sched, recovery.NewStore(rdb), &fakeDefs{def: f.def}, f.grader, f.avail, zerolog.Nop())

	var wg sync.WaitGroup
	states := make([]*State, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := ctrl2.Resume(ctx, 1)
			if err != nil {
				t.Errorf("resume: %v", err)
				return
			}
			states[i] = state
		}(i)
	}
	wg.Wait()

	for i, state := range states {
		if state == nil || state.Session.SessionID != session.SessionID {
			t.Fatalf("resume %d restored the wrong session: %+v", i, state)
		}
	}

	// One ticker from Start plus exactly one surviving the resume race;
	// every losing registration must have stopped its own.
	f.sched.mu.Lock()
	live := len(f.sched.ticks) - f.sched.stops
	f.sched.mu.Unlock()
	if live != 2 {
		t.Fatalf("expected 2 live tickers (original + one resumed), got %d", live)
	}
}

var _ clock.Clock = (*fakeClock)(nil)
var _ clock.Scheduler = (*manualScheduler)(nil)
