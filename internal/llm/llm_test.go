package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/interview-me/internal/model"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `["a"]`, want: `["a"]`},
		{in: "```json\n[\"a\"]\n```", want: `["a"]`},
		{in: "```\n{\"x\":1}\n```  ", want: `{"x":1}`},
		{in: "  ```json[\"a\"]```", want: `["a"]`},
		{in: "\n\n[\"no fence\"]\n\n", want: `["no fence"]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in), "input %q", tt.in)
	}
}

func TestParseQuestions(t *testing.T) {
	qs, err := ParseQuestions("```json\n[\"What is Go?\", \"  \", \" Why channels? \", \"Third\"]\n```", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"What is Go?", "Why channels?"}, qs)

	_, err = ParseQuestions(`[]`, 0)
	assert.Error(t, err)

	_, err = ParseQuestions(`{"questions": []}`, 0)
	assert.Error(t, err)
}

func TestParseFeedback(t *testing.T) {
	raw := `{
		"totalScore": 140,
		"categoryScores": [
			{"name": " Communication Skills ", "score": 72.6, "comment": "clear"},
			{"name": "Technical Knowledge", "score": -5, "comment": "weak"}
		],
		"strengths": ["structured answers"],
		"finalAssessment": " Solid start. "
	}`
	d, err := ParseFeedback(raw)
	require.NoError(t, err)

	assert.Equal(t, 100, d.TotalScore)
	assert.Equal(t, model.CategoryScore{Name: "Communication Skills", Score: 73, Comment: "clear"}, d.CategoryScores[0])
	assert.Equal(t, 0, d.CategoryScores[1].Score)
	assert.Equal(t, []string{"structured answers"}, d.Strengths)
	assert.NotNil(t, d.AreasForImprovement)
	assert.Equal(t, "Solid start.", d.FinalAssessment)
}

func TestParseFeedback_TotalFromCategories(t *testing.T) {
	d, err := ParseFeedback(`{"categoryScores":[{"name":"A","score":60},{"name":"B","score":81}]}`)
	require.NoError(t, err)
	assert.Equal(t, 70, d.TotalScore)
}

func TestParseFeedback_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not json", `{}`, `{"strengths":["x"]}`} {
		_, err := ParseFeedback(raw)
		assert.Error(t, err, raw)
	}
}

func TestQuestionsPrompt(t *testing.T) {
	p := QuestionsPrompt(QuestionRequest{
		Role: "Frontend Developer", Level: "Junior", Type: "technical",
		TechStack: []string{"react", "typescript"}, Amount: 5,
	})
	assert.Contains(t, p, "The job role is Frontend Developer.")
	assert.Contains(t, p, "react, typescript")
	assert.Contains(t, p, "The amount of questions required is: 5.")
	assert.NotContains(t, p, "{{")
}

func TestFeedbackPrompt(t *testing.T) {
	p := FeedbackPrompt(FeedbackRequest{
		Role: "Backend Engineer", Level: "Senior", Type: "mixed",
		Transcript: []model.Message{
			{Role: model.RoleAssistant, Content: "Hi"},
			{Role: model.RoleUser, Content: "Hello"},
		},
	})
	assert.Contains(t, p, "- assistant: Hi\n- user: Hello\n")
	for _, c := range Categories {
		assert.Contains(t, p, c)
	}
	assert.False(t, strings.Contains(p, "{{"))
}

func TestUnavailable(t *testing.T) {
	var g Generator = Unavailable{}
	_, err := g.GenerateQuestions(context.Background(), QuestionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.GenerateFeedback(context.Background(), FeedbackRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
