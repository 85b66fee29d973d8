// Command seed loads exercises and their tests from a JSON file into
// the database. Exercise authoring has no HTTP surface; this is how
// content reaches an environment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"codequest/internal/common"
	"codequest/internal/domain/model"
	"codequest/internal/domain/repository"
	"codequest/internal/platform/config"
	"codequest/internal/platform/database"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type seedExercise struct {
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Difficulty  int        `json:"difficulty"`
	BaseXP      int        `json:"base_xp"`
	LanguageID  *string    `json:"language_id,omitempty"`
	BadgeRarity *string    `json:"badge_rarity,omitempty"`
	BadgeID     *string    `json:"high_score_badge_id,omitempty"`
	Tests       []seedTest `json:"tests"`
}

type seedTest struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

func main() {
	file := flag.String("file", "seed/exercises.json", "path to the exercise seed file")
	flag.Parse()

	config.Load()
	database.Connect()
	defer database.Close()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("reading seed file: %v", err)
	}
	var exercises []seedExercise
	if err := json.Unmarshal(raw, &exercises); err != nil {
		log.Fatalf("parsing seed file: %v", err)
	}

	repo := repository.NewPgExerciseRepository(database.DB)
	ctx := context.Background()

	for _, se := range exercises {
		status := model.ExerciseStatus(se.Status)
		if status == "" {
			status = model.ExerciseDraft
		}
		ex := &model.Exercise{
			ID:         uuid.NewString(),
			Title:      se.Title,
			Slug:       slug.Make(se.Title),
			Status:     status,
			Difficulty: se.Difficulty,
			BaseXP:     se.BaseXP,
			LanguageID: se.LanguageID,
		}
		if se.BadgeRarity != nil {
			rarity := model.BadgeRarity(*se.BadgeRarity)
			ex.BadgeRarity = &rarity
		}
		ex.HighScoreBadgeID = se.BadgeID

		if err := repo.CreateExercise(ctx, ex); err != nil {
			if errors.Is(err, common.ErrConflict) {
				log.Printf("skipping %q: slug already exists", se.Title)
				continue
			}
			log.Fatalf("creating exercise %q: %v", se.Title, err)
		}

		tests := make([]model.TestCase, len(se.Tests))
		for i, t := range se.Tests {
			tests[i] = model.TestCase{Index: i, Input: t.Input, ExpectedOutput: t.ExpectedOutput}
		}
		if err := repo.ReplaceTests(ctx, ex.ID, tests); err != nil {
			log.Fatalf("writing tests for %q: %v", se.Title, err)
		}
		log.Printf("seeded %q as %s (%d tests)", se.Title, ex.Slug, len(tests))
	}
}
