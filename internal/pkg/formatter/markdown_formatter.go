package formatter

import (
	"bytes"
	"fmt"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(results *entity.SessionResults) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)
	for _, line := range summaryLines(results) {
		fmt.Fprintf(&buf, "- %s\n", line)
	}
	buf.WriteString("\n")

	for i, a := range results.Answers {
		fmt.Fprintf(&buf, "## %d. %s\n\n", i+1, a.QuestionText)
		fmt.Fprintf(&buf, "%s\n\n", answerLine(a))
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
