package llm

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/sakif/interview-me/internal/model"
)

var (
	//go:embed prompts/questions.txt
	questionsPrompt string
	//go:embed prompts/feedback.txt
	feedbackPrompt string
)

// Categories are the assessment categories, in display order.
var Categories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence and Clarity",
}

// QuestionsPrompt renders the question-generation prompt.
func QuestionsPrompt(req QuestionRequest) string {
	return strings.NewReplacer(
		"{{role}}", req.Role,
		"{{level}}", req.Level,
		"{{techstack}}", strings.Join(req.TechStack, ", "),
		"{{type}}", req.Type,
		"{{amount}}", strconv.Itoa(req.Amount),
	).Replace(questionsPrompt)
}

// FeedbackPrompt renders the assessment prompt.
func FeedbackPrompt(req FeedbackRequest) string {
	return strings.NewReplacer(
		"{{role}}", req.Role,
		"{{level}}", req.Level,
		"{{type}}", req.Type,
		"{{transcript}}", FormatTranscript(req.Transcript),
	).Replace(feedbackPrompt)
}

// FormatTranscript renders messages as "- role: content" lines.
func FormatTranscript(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("- ")
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
