package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ledionnezirii/germanmaster-sub001/internal/clock"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/engine"
	"github.com/ledionnezirii/germanmaster-sub001/internal/middleware"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/recovery"
	"github.com/ledionnezirii/germanmaster-sub001/internal/service"
)

type stubGrader struct{}

func (stubGrader) Finalize(_ context.Context, sub *model.GradingSubmission) (*model.AttemptResult, error) {
	return &model.AttemptResult{SessionID: sub.SessionID, UserID: sub.UserID}, nil
}

type stubAvailability struct{}

func (stubAvailability) Available(context.Context, int, model.Level) (bool, error) {
	return true, nil
}

type stubDefs struct{ def *model.AssessmentDefinition }

func (d stubDefs) Definition(context.Context, uuid.UUID) (*model.AssessmentDefinition, error) {
	return d.def, nil
}

type stubScheduler struct{}

func (stubScheduler) Every(time.Duration, func()) func() { return func() {} }

func attemptController(t *testing.T, def *model.AssessmentDefinition) *engine.Controller {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{TimeBudget: 30 * time.Minute, PassingScore: 85}
	return engine.NewController(
		cfg, clock.SystemClock{}, stubScheduler{}, recovery.NewStore(rdb),
		stubDefs{def: def}, stubGrader{}, stubAvailability{}, zerolog.Nop(),
	)
}

func learnerRequest(method, path string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: 1})
	return w, c
}

func TestSubmitIncompleteReportsCountAndNumbers(t *testing.T) {
	def := &model.AssessmentDefinition{
		ID:             uuid.New(),
		Level:          model.LevelA1,
		TimeBudgetSecs: 1800,
	}
	for i := 1; i <= 5; i++ {
		def.Questions = append(def.Questions, model.Question{
			ID:           uuid.New(),
			AssessmentID: def.ID,
			Ordinal:      i,
			Type:         model.QuestionTypeSingleChoice,
		})
	}

	ctrl := attemptController(t, def)
	ctx := context.Background()
	if _, err := ctrl.Start(ctx, 1, def.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, q := range def.Questions[:2] {
		if err := ctrl.SaveAnswer(ctx, 1, q.ID, model.Answer{Single: "richtig"}); err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}

	h := NewAssessmentHandler(ctrl, nil, nil)
	w, c := learnerRequest(http.MethodPost, "/api/v1/learner/attempts/submit")
	h.Submit(c)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				UnansweredCount   int   `json:"unanswered_count"`
				UnansweredNumbers []int `json:"unanswered_numbers"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body.Error.Code != "INCOMPLETE_ANSWERS" {
		t.Fatalf("code = %s, want INCOMPLETE_ANSWERS", body.Error.Code)
	}
	if body.Error.Details.UnansweredCount != 3 {
		t.Fatalf("unanswered_count = %d, want 3", body.Error.Details.UnansweredCount)
	}
	want := []int{3, 4, 5}
	got := body.Error.Details.UnansweredNumbers
	if len(got) != len(want) {
		t.Fatalf("unanswered_numbers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unanswered_numbers = %v, want %v", got, want)
		}
	}
}
