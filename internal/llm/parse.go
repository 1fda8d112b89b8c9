package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sakif/interview-me/internal/model"
)

// stripFences removes a surrounding ``` or ```json block, which models add
// even when asked for bare JSON.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseQuestions decodes a JSON array of questions. Blank entries are
// dropped and at most limit questions are kept when limit > 0.
func ParseQuestions(raw string, limit int) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		return nil, fmt.Errorf("llm: decoding questions: %w", err)
	}

	questions := make([]string, 0, len(items))
	for _, q := range items {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, errors.New("llm: model returned no questions")
	}
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

// rawDraft accepts fractional scores.
type rawDraft struct {
	TotalScore     float64 `json:"totalScore"`
	CategoryScores []struct {
		Name    string  `json:"name"`
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"categoryScores"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	FinalAssessment     string   `json:"finalAssessment"`
}

// ParseFeedback decodes an assessment object and clamps every score to
// 0..100. A missing total is the mean of the category scores.
func ParseFeedback(raw string) (*FeedbackDraft, error) {
	var r rawDraft
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return nil, fmt.Errorf("llm: decoding feedback: %w", err)
	}
	if len(r.CategoryScores) == 0 && strings.TrimSpace(r.FinalAssessment) == "" {
		return nil, errors.New("llm: model returned an empty assessment")
	}

	d := &FeedbackDraft{
		CategoryScores:      make([]model.CategoryScore, 0, len(r.CategoryScores)),
		Strengths:           nonNil(r.Strengths),
		AreasForImprovement: nonNil(r.AreasForImprovement),
		FinalAssessment:     strings.TrimSpace(r.FinalAssessment),
	}
	sum := 0
	for _, c := range r.CategoryScores {
		score := clampScore(c.Score)
		sum += score
		d.CategoryScores = append(d.CategoryScores, model.CategoryScore{
			Name:    strings.TrimSpace(c.Name),
			Score:   score,
			Comment: strings.TrimSpace(c.Comment),
		})
	}
	d.TotalScore = clampScore(r.TotalScore)
	if r.TotalScore == 0 && len(d.CategoryScores) > 0 {
		d.TotalScore = sum / len(d.CategoryScores)
	}
	return d, nil
}

func clampScore(s float64) int {
	return int(math.Round(max(0, min(100, s))))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
