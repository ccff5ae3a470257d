package model

import (
	"testing"

	"github.com/google/uuid"
)

func question(qt QuestionType, correct ...string) *Question {
	return &Question{
		ID:            uuid.New(),
		Type:          qt,
		CorrectValues: correct,
	}
}

func TestAnswerMatchesSingleChoice(t *testing.T) {
	q := question(QuestionTypeSingleChoice, "heiße")

	if !(Answer{Single: "heiße"}).Matches(q) {
		t.Fatalf("exact match must pass")
	}
	if !(Answer{Single: " Heiße "}).Matches(q) {
		t.Fatalf("trimmed case-insensitive match must pass")
	}
	if (Answer{Single: "heißt"}).Matches(q) {
		t.Fatalf("wrong value must fail")
	}
	if (Answer{}).Matches(q) {
		t.Fatalf("empty answer must fail")
	}
}

func TestAnswerMatchesMultiChoiceIsOrderInsensitive(t *testing.T) {
	q := question(QuestionTypeMultiChoice, "drei", "sieben")

	if !(Answer{Multi: []string{"sieben", "drei"}}).Matches(q) {
		t.Fatalf("order must not matter")
	}
	if !(Answer{Multi: []string{" Drei ", "SIEBEN"}}).Matches(q) {
		t.Fatalf("members are canonicalized")
	}
	if (Answer{Multi: []string{"drei"}}).Matches(q) {
		t.Fatalf("subset must fail")
	}
	if (Answer{Multi: []string{"drei", "sieben", "acht"}}).Matches(q) {
		t.Fatalf("superset must fail")
	}
}

func TestAnswerMatchesBlanksArePositional(t *testing.T) {
	q := question(QuestionTypeFillBlanks, "aus", "nach")

	if !(Answer{Blanks: []string{"aus", "nach"}}).Matches(q) {
		t.Fatalf("positional match must pass")
	}
	if (Answer{Blanks: []string{"nach", "aus"}}).Matches(q) {
		t.Fatalf("blanks are positional, swapped order must fail")
	}
	if (Answer{Blanks: []string{"aus"}}).Matches(q) {
		t.Fatalf("missing blank must fail")
	}
}

func TestAnswerIsEmpty(t *testing.T) {
	if !(Answer{}).IsEmpty() {
		t.Fatalf("zero answer is empty")
	}
	if !(Answer{Single: "   "}).IsEmpty() {
		t.Fatalf("whitespace-only single is empty")
	}
	if !(Answer{Multi: []string{"", " "}}).IsEmpty() {
		t.Fatalf("whitespace-only multi is empty")
	}
	if (Answer{Blanks: []string{"", "aus"}}).IsEmpty() {
		t.Fatalf("one filled blank is not empty")
	}
}

func TestForLearnerStripsCorrectValues(t *testing.T) {
	def := &AssessmentDefinition{
		ID:    uuid.New(),
		Level: LevelA1,
		Questions: []Question{
			{ID: uuid.New(), Ordinal: 1, Type: QuestionTypeSingleChoice, CorrectValues: []string{"heiße"}},
			{ID: uuid.New(), Ordinal: 2, Type: QuestionTypeFillBlanks, CorrectValues: []string{"aus"}},
		},
	}

	payload := def.ForLearner()
	if len(payload.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(payload.Questions))
	}
	// QuestionForLearner has no correct-values field at all; check the
	// identifying data survived.
	if payload.Questions[0].ID != def.Questions[0].ID || payload.Questions[1].Ordinal != 2 {
		t.Fatalf("payload must preserve question identity")
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if SessionStatusInProgress.Terminal() {
		t.Fatalf("IN_PROGRESS is not terminal")
	}
	for _, s := range []SessionStatus{
		SessionStatusSubmitted, SessionStatusExpired,
		SessionStatusViolationFailed, SessionStatusCancelled,
	} {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}

func TestLevelChain(t *testing.T) {
	if LevelA1.Previous() != "" {
		t.Fatalf("A1 has no prerequisite")
	}
	if LevelB1.Previous() != LevelA2 {
		t.Fatalf("B1 requires A2, got %s", LevelB1.Previous())
	}
	if LevelC2.Next() != "" {
		t.Fatalf("C2 is the last level")
	}
	if !LevelB2.Valid() || Level("D1").Valid() {
		t.Fatalf("level validity broken")
	}
}
