package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

// nonAnswerPhrases signal that the caller deflected instead of answering.
// Matching is token-sequence based, so short entries like "hi" cannot fire
// inside longer words.
var nonAnswerPhrases = []string{
	"i don't know", "i dont know", "don't know", "dont know",
	"i'm not sure", "im not sure", "not sure", "unsure",
	"maybe", "perhaps", "i think", "i guess",
	"what do you mean", "can you repeat", "repeat",
	"hello", "hi", "hey", "goodbye", "bye",
	"how are you", "nice to meet you", "thank you",
}

var nonAnswerSequences = func() [][]string {
	seqs := make([][]string, 0, len(nonAnswerPhrases))
	for _, phrase := range nonAnswerPhrases {
		seqs = append(seqs, tokenize(phrase))
	}
	return seqs
}()

var yesNoTokens = map[string]bool{
	"yes":  true,
	"no":   true,
	"yeah": true,
	"nope": true,
	"yep":  true,
	"nah":  true,
}

var fallbackTemplates = map[string]string{
	entity.QuestionCategoryName:    "I need your full name - first and last name. Could you please provide both?",
	entity.QuestionCategorySSN:     "I need your Social Security Number to proceed. Please provide your 9-digit SSN.",
	entity.QuestionCategoryAddress: "I need your complete address including street number, street name, and ZIP code.",
	entity.QuestionCategoryYesNo:   "I need a clear yes or no answer to this question. Please respond with yes or no.",
	entity.QuestionCategoryDate:    "I need the date in MM/DD/YYYY format. Please provide the date in this format.",
}

const defaultFallback = "I didn't understand your response. Could you please answer the question clearly?"

// retryPrefix softens the fallback once the caller has already been asked to
// rephrase at least once.
const retryPrefix = "Let's try that once more. "

// AnswerResult is the outcome of validating one transcription.
// FallbackMessage is empty when Accepted is true.
type AnswerResult struct {
	Accepted        bool
	FallbackMessage string
}

// AnswerValidator decides whether a transcription actually answers its
// question. It is pure and stateless: the attempt number is supplied by the
// caller, nothing is learned across calls.
type AnswerValidator struct {
	minLength       int
	confidenceFloor float64
}

func NewAnswerValidator(cfg config.ValidationConfig) *AnswerValidator {
	return &AnswerValidator{
		minLength:       cfg.MinAnswerLength,
		confidenceFloor: cfg.ConfidenceFloor,
	}
}

// Validate applies the rejection policy for the question's category.
// attempt is 1-based; repeat attempts get a gentler fallback prefix.
func (v *AnswerValidator) Validate(question entity.Question, text string, confidence float64, attempt int) AnswerResult {
	if v.answers(question, text, confidence) {
		return AnswerResult{Accepted: true}
	}
	return AnswerResult{FallbackMessage: v.fallback(question.Category, attempt)}
}

func (v *AnswerValidator) answers(question entity.Question, text string, confidence float64) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < v.minLength {
		return false
	}
	if confidence < v.confidenceFloor {
		return false
	}

	tokens := tokenize(trimmed)
	if containsNonAnswer(tokens) {
		return false
	}

	switch question.Category {
	case entity.QuestionCategoryName:
		if len(strings.Fields(trimmed)) < 2 {
			return false
		}
	case entity.QuestionCategorySSN:
		if digitCount(trimmed) != 9 {
			return false
		}
	case entity.QuestionCategoryYesNo:
		if !containsAnyToken(tokens, yesNoTokens) {
			return false
		}
	}

	return true
}

func (v *AnswerValidator) fallback(category string, attempt int) string {
	msg, ok := fallbackTemplates[category]
	if !ok {
		msg = defaultFallback
	}
	if attempt > 1 {
		return retryPrefix + msg
	}
	return msg
}

// tokenize lowercases the text and splits it into words, keeping apostrophes
// so contractions like "don't" stay intact.
func tokenize(s string) []string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			return r
		case r == '’': // typographic apostrophe
			return '\''
		default:
			return ' '
		}
	}, strings.ToLower(s))
	return strings.Fields(mapped)
}

func containsNonAnswer(tokens []string) bool {
	for _, seq := range nonAnswerSequences {
		if hasSequence(tokens, seq) {
			return true
		}
	}
	return false
}

// hasSequence reports whether seq appears as consecutive tokens.
func hasSequence(tokens, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(tokens) {
		return false
	}
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for j := range seq {
			if tokens[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func containsAnyToken(tokens []string, set map[string]bool) bool {
	for _, tok := range tokens {
		if set[tok] {
			return true
		}
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
