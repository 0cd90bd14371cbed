package formatter

import (
	"bytes"
	"testing"
	"time"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

func sampleResults() *entity.SessionResults {
	return &entity.SessionResults{
		SessionID:      "sess-1",
		Status:         entity.SessionStatusCompleted,
		TotalQuestions: 2,
		AnsweredCount:  1,
		CreatedAt:      time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Answers: []entity.AnsweredQuestion{
			{
				QuestionID:   1,
				QuestionText: "What is your full name?",
				Category:     entity.QuestionCategoryName,
				AnswerText:   "John Smith",
				Confidence:   0.94,
				Answered:     true,
			},
			{
				QuestionID:   2,
				QuestionText: "Are you a US citizen?",
				Category:     entity.QuestionCategoryYesNo,
			},
		},
	}
}

func TestFactoryCreate(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		format        entity.ResultFormat
		wantExtension string
		wantType      string
	}{
		{format: entity.FormatMarkdown, wantExtension: ".md", wantType: "text/markdown; charset=utf-8"},
		{format: entity.FormatDOCX, wantExtension: ".docx", wantType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{format: entity.FormatPDF, wantExtension: ".pdf", wantType: "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := factory.Create(tt.format)
			if err != nil {
				t.Fatalf("Create(%s) error = %v", tt.format, err)
			}
			if f.FileExtension() != tt.wantExtension {
				t.Errorf("FileExtension() = %q, want %q", f.FileExtension(), tt.wantExtension)
			}
			if f.ContentType() != tt.wantType {
				t.Errorf("ContentType() = %q, want %q", f.ContentType(), tt.wantType)
			}
		})
	}

	if _, err := factory.Create(entity.ResultFormat("csv")); err == nil {
		t.Error("Create(csv) expected error")
	}
}

func TestMarkdownFormat(t *testing.T) {
	data, err := NewMarkdownFormatter().Format(sampleResults())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := `# Call Results

- Session: sess-1
- Status: completed
- Answered: 1 of 2
- Started: 2026-03-14 10:30:00 UTC

## 1. What is your full name?

John Smith (confidence 0.94)

## 2. Are you a US citizen?

No answer recorded.

`
	if string(data) != want {
		t.Errorf("Format() =\n%s\nwant\n%s", data, want)
	}
}

func TestPDFFormat(t *testing.T) {
	data, err := NewPDFFormatter().Format(sampleResults())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("Format() output does not start with a PDF header")
	}
}
