package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeFillBlanks   QuestionType = "FILL_BLANKS"
)

// Question is a single assessment question. CorrectValues is only ever
// read server-side; learner-facing payloads use QuestionForLearner.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	AssessmentID  uuid.UUID       `json:"assessment_id"`
	Ordinal       int             `json:"ordinal"`
	Prompt        string          `json:"prompt"`
	Type          QuestionType    `json:"type"`
	Options       json.RawMessage `json:"options"`
	CorrectValues []string        `json:"-"`
}

// QuestionForLearner is a question stripped of its correct values.
type QuestionForLearner struct {
	ID      uuid.UUID       `json:"id"`
	Ordinal int             `json:"ordinal"`
	Prompt  string          `json:"prompt"`
	Type    QuestionType    `json:"type"`
	Options json.RawMessage `json:"options"`
}

// AssessmentDefinition is the immutable description of a level test.
// Authored by content tooling; read-only to the attempt engine.
type AssessmentDefinition struct {
	ID               uuid.UUID  `json:"id"`
	Level            Level      `json:"level"`
	Title            string     `json:"title"`
	TimeBudgetSecs   int        `json:"time_budget_seconds"`
	PassingThreshold int        `json:"passing_threshold"`
	Questions        []Question `json:"questions"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TimeBudget returns the attempt duration as a time.Duration.
func (d *AssessmentDefinition) TimeBudget() time.Duration {
	return time.Duration(d.TimeBudgetSecs) * time.Second
}

// QuestionByID returns the question with the given id, or nil.
func (d *AssessmentDefinition) QuestionByID(id uuid.UUID) *Question {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i]
		}
	}
	return nil
}

// AssessmentPayload is the Redis-cached payload sent to learners
// (no correct answers).
type AssessmentPayload struct {
	AssessmentID uuid.UUID            `json:"assessment_id"`
	Level        Level                `json:"level"`
	Title        string               `json:"title"`
	TimeBudget   int                  `json:"time_budget_seconds"`
	Questions    []QuestionForLearner `json:"questions"`
}

// ForLearner strips correct values from the definition.
func (d *AssessmentDefinition) ForLearner() *AssessmentPayload {
	qs := make([]QuestionForLearner, 0, len(d.Questions))
	for _, q := range d.Questions {
		qs = append(qs, QuestionForLearner{
			ID:      q.ID,
			Ordinal: q.Ordinal,
			Prompt:  q.Prompt,
			Type:    q.Type,
			Options: q.Options,
		})
	}
	return &AssessmentPayload{
		AssessmentID: d.ID,
		Level:        d.Level,
		Title:        d.Title,
		TimeBudget:   d.TimeBudgetSecs,
		Questions:    qs,
	}
}

// Answer is a submitted value for one question: a single choice, a
// multi-choice set, or an ordered list of blanks. Exactly one field is
// populated per question type.
type Answer struct {
	Single string   `json:"single,omitempty"`
	Multi  []string `json:"multi,omitempty"`
	Blanks []string `json:"blanks,omitempty"`
}

// IsEmpty reports whether the answer carries no usable value.
func (a Answer) IsEmpty() bool {
	if strings.TrimSpace(a.Single) != "" {
		return false
	}
	for _, v := range a.Multi {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	for _, v := range a.Blanks {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Matches compares the answer against a question's correct values.
// Single choice and blanks use case-insensitive trimmed comparison;
// multi-choice requires exact set equality.
func (a Answer) Matches(q *Question) bool {
	switch q.Type {
	case QuestionTypeSingleChoice:
		if len(q.CorrectValues) != 1 {
			return false
		}
		return canon(a.Single) == canon(q.CorrectValues[0])
	case QuestionTypeMultiChoice:
		return setEqual(a.Multi, q.CorrectValues)
	case QuestionTypeFillBlanks:
		if len(a.Blanks) != len(q.CorrectValues) {
			return false
		}
		for i, want := range q.CorrectValues {
			if canon(a.Blanks[i]) != canon(want) {
				return false
			}
		}
		return true
	}
	return false
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func setEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	g := make([]string, len(got))
	w := make([]string, len(want))
	for i, v := range got {
		g[i] = canon(v)
	}
	for i, v := range want {
		w[i] = canon(v)
	}
	sort.Strings(g)
	sort.Strings(w)
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}
