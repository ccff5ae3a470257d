package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
)

func scoringDef(t *testing.T) *model.AssessmentDefinition {
	t.Helper()
	def := &model.AssessmentDefinition{
		ID:               uuid.New(),
		Level:            model.LevelB1,
		Title:            "Einstufungstest B1",
		TimeBudgetSecs:   1800,
		PassingThreshold: 85,
	}
	makeQ := func(typ model.QuestionType, correct ...string) model.Question {
		return model.Question{
			ID:            uuid.New(),
			AssessmentID:  def.ID,
			Ordinal:       len(def.Questions) + 1,
			Prompt:        "q",
			Type:          typ,
			Options:       json.RawMessage(`[]`),
			CorrectValues: correct,
		}
	}
	def.Questions = []model.Question{
		makeQ(model.QuestionTypeSingleChoice, "der"),
		makeQ(model.QuestionTypeSingleChoice, "die"),
		makeQ(model.QuestionTypeMultiChoice, "gehen", "fahren"),
		makeQ(model.QuestionTypeFillBlanks, "habe", "gemacht"),
	}
	return def
}

func TestScoreAllCorrect(t *testing.T) {
	def := scoringDef(t)
	answers := map[uuid.UUID]model.Answer{
		def.Questions[0].ID: {Single: "der"},
		def.Questions[1].ID: {Single: " DIE "},
		def.Questions[2].ID: {Multi: []string{"fahren", "gehen"}},
		def.Questions[3].ID: {Blanks: []string{"habe", "gemacht"}},
	}
	if got := Score(def, answers); got != 100 {
		t.Fatalf("score = %d, want 100", got)
	}
}

func TestScoreRoundsPercentage(t *testing.T) {
	def := scoringDef(t)
	// One of four correct rounds to 25; three of four to 75.
	answers := map[uuid.UUID]model.Answer{
		def.Questions[0].ID: {Single: "der"},
	}
	if got := Score(def, answers); got != 25 {
		t.Fatalf("score = %d, want 25", got)
	}

	answers[def.Questions[1].ID] = model.Answer{Single: "die"}
	answers[def.Questions[2].ID] = model.Answer{Multi: []string{"gehen", "fahren"}}
	if got := Score(def, answers); got != 75 {
		t.Fatalf("score = %d, want 75", got)
	}
}

func TestScoreUnansweredAndWrongScoreZero(t *testing.T) {
	def := scoringDef(t)
	answers := map[uuid.UUID]model.Answer{
		def.Questions[0].ID: {Single: "das"},                        // wrong
		def.Questions[2].ID: {Multi: []string{"gehen"}},             // incomplete set
		def.Questions[3].ID: {Blanks: []string{"gemacht", "habe"}},  // wrong order
		uuid.New():          {Single: "der"},                        // unknown question
	}
	if got := Score(def, answers); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}

func TestScoreEmptyDefinition(t *testing.T) {
	def := &model.AssessmentDefinition{ID: uuid.New(), Level: model.LevelA1}
	if got := Score(def, nil); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}

func TestLedgerRecordOutcomes(t *testing.T) {
	cooldown := 14 * 24 * time.Hour
	s := &GradingService{cfg: &config.Config{Cooldown: cooldown, PassingScore: 85}}
	finished := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		row         *repository.AttemptRow
		wantOutcome model.AvailabilityOutcome
		wantNext    bool
	}{
		{
			name:        "pass closes the level for good",
			row:         &repository.AttemptRow{UserID: 1, Level: model.LevelA1, Score: 92, Passed: true, OutcomeKind: model.OutcomeNormal, FinishedAt: finished},
			wantOutcome: model.OutcomePassed,
		},
		{
			name:        "fail starts a cooldown",
			row:         &repository.AttemptRow{UserID: 1, Level: model.LevelA1, Score: 40, OutcomeKind: model.OutcomeNormal, FinishedAt: finished},
			wantOutcome: model.OutcomeFailedCooldown,
			wantNext:    true,
		},
		{
			name:        "expiry counts as a regular fail",
			row:         &repository.AttemptRow{UserID: 1, Level: model.LevelA1, Score: 60, OutcomeKind: model.OutcomeAutoSubmitted, FinishedAt: finished},
			wantOutcome: model.OutcomeFailedCooldown,
			wantNext:    true,
		},
		{
			name:        "violation gets its own cooldown kind",
			row:         &repository.AttemptRow{UserID: 1, Level: model.LevelA1, Score: 100, OutcomeKind: model.OutcomeForceFailure, FinishedAt: finished},
			wantOutcome: model.OutcomeViolationCooldown,
			wantNext:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.ledgerRecord(tt.row)
			if rec.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", rec.Outcome, tt.wantOutcome)
			}
			if tt.wantNext {
				if rec.NextAvailableAt == nil {
					t.Fatalf("next_available_at missing")
				}
				if want := finished.Add(cooldown); !rec.NextAvailableAt.Equal(want) {
					t.Fatalf("next_available_at = %v, want %v", rec.NextAvailableAt, want)
				}
			} else if rec.NextAvailableAt != nil {
				t.Fatalf("passed level must not carry a cooldown")
			}
			if rec.LastScore == nil || *rec.LastScore != tt.row.Score {
				t.Fatalf("last_score not carried over")
			}
		})
	}
}
