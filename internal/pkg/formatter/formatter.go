package formatter

import (
	"fmt"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

const baseTitle = "Call Results"

// Formatter renders a session transcript into one export format.
type Formatter interface {
	Format(results *entity.SessionResults) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// summaryLines is the header block shared by every format.
func summaryLines(results *entity.SessionResults) []string {
	return []string{
		fmt.Sprintf("Session: %s", results.SessionID),
		fmt.Sprintf("Status: %s", results.Status),
		fmt.Sprintf("Answered: %d of %d", results.AnsweredCount, results.TotalQuestions),
		fmt.Sprintf("Started: %s", results.CreatedAt.Format("2006-01-02 15:04:05 MST")),
	}
}

// answerLine renders one answer, or a placeholder when the caller never got
// past the question.
func answerLine(a entity.AnsweredQuestion) string {
	if !a.Answered {
		return "No answer recorded."
	}
	return fmt.Sprintf("%s (confidence %.2f)", a.AnswerText, a.Confidence)
}
