package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// questionsFile is the screening script shipped next to the config package.
// Deployments override it by replacing the file; a missing file falls back to
// the built-in defaults.
const questionsFile = "questions.json"

// questionList mirrors the structure of questions.json
type questionList struct {
	Questions []entity.Question `json:"questions"`
}

var defaultQuestions = []entity.Question{
	{ID: 1, QuestionText: "Let's get started with your name. What is your first and last name?", Category: entity.QuestionCategoryName, IsRequired: true, Order: 1},
	{ID: 2, QuestionText: "Please share your Social Security Number. If you'd rather skip for now, just say 'skip'.", Category: entity.QuestionCategorySSN, IsRequired: true, Order: 2},
	{ID: 3, QuestionText: "What's your street address, including ZIP code?", Category: entity.QuestionCategoryAddress, IsRequired: true, Order: 3},
	{ID: 4, QuestionText: "Are you under the age of 40? Please answer yes or no.", Category: entity.QuestionCategoryYesNo, IsRequired: true, Order: 4},
	{ID: 5, QuestionText: "Have you or anyone in your household received TANF welfare payments? Please answer yes or no.", Category: entity.QuestionCategoryYesNo, IsRequired: true, Order: 5},
	{ID: 6, QuestionText: "Have you served in the U.S. military? Please answer yes or no.", Category: entity.QuestionCategoryYesNo, IsRequired: true, Order: 6},
	{ID: 7, QuestionText: "In the past year, were you unemployed and did you receive unemployment compensation for at least 27 weeks? Please answer yes or no.", Category: entity.QuestionCategoryYesNo, IsRequired: false, Order: 7},
}

func loadQuestions(cfg *Config) error {
	path := filepath.Join("internal", "config", questionsFile)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Warning: questions file not found at %s, using default question list\n", path)
		cfg.Questions = defaultQuestions
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read questions file: %w", err)
	}

	var list questionList
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse questions JSON: %w", err)
	}

	if len(list.Questions) == 0 {
		return fmt.Errorf("questions file contains no questions: %s", path)
	}

	if err := ValidateQuestions(list.Questions); err != nil {
		return fmt.Errorf("invalid questions file %s: %w", path, err)
	}

	sort.Slice(list.Questions, func(i, j int) bool {
		return list.Questions[i].Order < list.Questions[j].Order
	})

	cfg.Questions = list.Questions

	fmt.Printf("Loaded %d questions from %s\n", len(cfg.Questions), path)
	return nil
}

// ValidateQuestions checks that every question has text, a positive unique id
// and a unique order, so the list forms a stable call script.
func ValidateQuestions(questions []entity.Question) error {
	seenIDs := make(map[int]bool, len(questions))
	seenOrder := make(map[int]bool, len(questions))

	for _, q := range questions {
		if q.ID <= 0 {
			return fmt.Errorf("question id must be positive, got %d", q.ID)
		}
		if q.QuestionText == "" {
			return fmt.Errorf("question %d has empty text", q.ID)
		}
		if seenIDs[q.ID] {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		if seenOrder[q.Order] {
			return fmt.Errorf("duplicate question order %d", q.Order)
		}
		seenIDs[q.ID] = true
		seenOrder[q.Order] = true
	}

	return nil
}
