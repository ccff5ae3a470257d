package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/database"
	"github.com/ledionnezirii/germanmaster-sub001/internal/logger"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
)

type seedQuestion struct {
	Prompt  string
	Type    model.QuestionType
	Options []string
	Correct []string
}

type seedAssessment struct {
	Level     model.Level
	Title     string
	Questions []seedQuestion
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding Level Tests A1-C2 ===")

	for _, seed := range seeds() {
		var existing uuid.UUID
		err := pool.QueryRow(ctx, `SELECT id FROM assessments WHERE level = $1`, seed.Level).Scan(&existing)
		if err == nil {
			fmt.Printf("Level %s already seeded (id %s), skipping\n", seed.Level, existing)
			continue
		}
		if err != pgx.ErrNoRows {
			log.Fatal().Err(err).Str("level", string(seed.Level)).Msg("Failed to check existing assessment")
		}

		if err := insertAssessment(ctx, pool, cfg, seed); err != nil {
			log.Fatal().Err(err).Str("level", string(seed.Level)).Msg("Failed to seed assessment")
		}
		fmt.Printf("Seeded level %s with %d questions\n", seed.Level, len(seed.Questions))
	}

	fmt.Println("Done")
}

func insertAssessment(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, seed seedAssessment) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	assessmentID := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO assessments (id, level, title, time_budget_seconds, passing_threshold)
		 VALUES ($1, $2, $3, $4, $5)`,
		assessmentID, seed.Level, seed.Title,
		int(cfg.TimeBudget.Seconds()), cfg.PassingScore,
	)
	if err != nil {
		return err
	}

	for i, q := range seed.Questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO questions (id, assessment_id, ordinal, prompt, type, options, correct_values)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), assessmentID, i+1, q.Prompt, q.Type, opts, q.Correct,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seeds() []seedAssessment {
	return []seedAssessment{
		{
			Level: model.LevelA1,
			Title: "Einstufungstest A1",
			Questions: []seedQuestion{
				{
					Prompt:  "Wie heißt du? — Ich ___ Anna.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"heiße", "heißt", "heißen", "heißest"},
					Correct: []string{"heiße"},
				},
				{
					Prompt:  "Welche Wörter sind Zahlen?",
					Type:    model.QuestionTypeMultiChoice,
					Options: []string{"drei", "Haus", "sieben", "Katze"},
					Correct: []string{"drei", "sieben"},
				},
				{
					Prompt:  "Ergänze: Ich komme ___ Deutschland.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"aus"},
				},
				{
					Prompt:  "Was ist das Gegenteil von 'groß'?",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"klein", "alt", "neu", "lang"},
					Correct: []string{"klein"},
				},
				{
					Prompt:  "Ergänze: Das ___ ein Buch.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"ist"},
				},
			},
		},
		{
			Level: model.LevelA2,
			Title: "Einstufungstest A2",
			Questions: []seedQuestion{
				{
					Prompt:  "Gestern ___ ich ins Kino gegangen.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"bin", "habe", "war", "werde"},
					Correct: []string{"bin"},
				},
				{
					Prompt:  "Welche Verben sind trennbar?",
					Type:    model.QuestionTypeMultiChoice,
					Options: []string{"aufstehen", "verstehen", "einkaufen", "bekommen"},
					Correct: []string{"aufstehen", "einkaufen"},
				},
				{
					Prompt:  "Ergänze den Komparativ: Mein Bruder ist ___ als ich. (alt)",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"älter"},
				},
				{
					Prompt:  "Ich freue mich ___ deinen Besuch.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"auf", "über", "an", "für"},
					Correct: []string{"auf"},
				},
				{
					Prompt:  "Ergänze: Wenn es regnet, ___ wir zu Hause.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"bleiben"},
				},
			},
		},
		{
			Level: model.LevelB1,
			Title: "Einstufungstest B1",
			Questions: []seedQuestion{
				{
					Prompt:  "Der Brief ___ gestern geschrieben.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"wurde", "war", "ist", "hatte"},
					Correct: []string{"wurde"},
				},
				{
					Prompt:  "Welche Konnektoren leiten einen Nebensatz ein?",
					Type:    model.QuestionTypeMultiChoice,
					Options: []string{"weil", "deshalb", "obwohl", "trotzdem"},
					Correct: []string{"weil", "obwohl"},
				},
				{
					Prompt:  "Ergänze: Ich wünschte, ich ___ mehr Zeit.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"hätte"},
				},
				{
					Prompt:  "Er tut so, ___ er nichts wüsste.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"als ob", "wenn", "dass", "damit"},
					Correct: []string{"als ob"},
				},
				{
					Prompt:  "Ergänze das Relativpronomen: Das ist der Mann, ___ mir geholfen hat.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"der"},
				},
			},
		},
		{
			Level: model.LevelB2,
			Title: "Einstufungstest B2",
			Questions: []seedQuestion{
				{
					Prompt:  "___ des schlechten Wetters fand das Konzert statt.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"Trotz", "Wegen", "Während", "Statt"},
					Correct: []string{"Trotz"},
				},
				{
					Prompt:  "Welche Ausdrücke gehören zur indirekten Rede?",
					Type:    model.QuestionTypeMultiChoice,
					Options: []string{"er sei gekommen", "er ist gekommen", "sie habe gesagt", "sie hat gesagt"},
					Correct: []string{"er sei gekommen", "sie habe gesagt"},
				},
				{
					Prompt:  "Ergänze: Je mehr man übt, ___ besser wird man.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"desto", "umso"},
				},
				{
					Prompt:  "Das Problem ist noch ___ (lösen, zu + Infinitiv mit Modalbedeutung).",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"zu lösen", "gelöst", "lösbar", "zu lösten"},
					Correct: []string{"zu lösen"},
				},
				{
					Prompt:  "Ergänze das Partizip I: das ___ Kind (schlafen)",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"schlafende"},
				},
			},
		},
		{
			Level: model.LevelC1,
			Title: "Einstufungstest C1",
			Questions: []seedQuestion{
				{
					Prompt:  "Der Vorschlag ___ einer gründlichen Prüfung unterzogen.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"wurde", "hat", "ist", "war"},
					Correct: []string{"wurde"},
				},
				{
					Prompt:  "Welche Sätze enthalten einen Nominalstil?",
					Type:    model.QuestionTypeMultiChoice,
					Options: []string{"Bei Ankunft des Zuges", "Als der Zug ankam", "Nach Abschluss der Arbeiten", "Nachdem die Arbeiten abgeschlossen waren"},
					Correct: []string{"Bei Ankunft des Zuges", "Nach Abschluss der Arbeiten"},
				},
				{
					Prompt:  "Ergänze: Es bedarf ___ großen Anstrengung. (Genitiv)",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"einer"},
				},
				{
					Prompt:  "Die Maßnahme dürfte kaum ___ sein.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"zielführend", "zielführende", "zielführenden", "zielgeführt"},
					Correct: []string{"zielführend"},
				},
				{
					Prompt:  "Ergänze das Funktionsverbgefüge: eine Entscheidung ___",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"treffen"},
				},
			},
		},
		{
			Level: model.LevelC2,
			Title: "Einstufungstest C2",
			Questions: []seedQuestion{
				{
					Prompt:  "Seine Argumentation entbehrt ___ Grundlage.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"jeglicher", "jegliche", "jeglichem", "jeglichen"},
					Correct: []string{"jeglicher"},
				},
				{
					Prompt:  "Welche Wendungen sind idiomatisch korrekt?",
					Type:    model.QuestionTypeMultiChoice,
					Options: []string{"ins Gras beißen", "ins Gras springen", "die Flinte ins Korn werfen", "die Flinte ins Feld werfen"},
					Correct: []string{"ins Gras beißen", "die Flinte ins Korn werfen"},
				},
				{
					Prompt:  "Ergänze: Wie dem auch ___, wir müssen handeln.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"sei"},
				},
				{
					Prompt:  "Der Autor bedient sich ___ ausgefeilten Sprache.",
					Type:    model.QuestionTypeSingleChoice,
					Options: []string{"einer", "eine", "einem", "eines"},
					Correct: []string{"einer"},
				},
				{
					Prompt:  "Ergänze: Das lässt sich nicht von der Hand ___.",
					Type:    model.QuestionTypeFillBlanks,
					Correct: []string{"weisen"},
				},
			},
		},
	}
}
