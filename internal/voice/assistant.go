package voice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionsPlaceholder is substituted by the vendor with the "questions" call variable.
const QuestionsPlaceholder = "{{questions}}"

//go:embed interviewer.yaml
var defaultInterviewer []byte

// Assistant is an inline assistant definition sent with a start request.
type Assistant struct {
	Name         string      `yaml:"name"`
	FirstMessage string      `yaml:"first_message"`
	Transcriber  Transcriber `yaml:"transcriber"`
	Voice        Voice       `yaml:"voice"`
	Model        Model       `yaml:"model"`
}

type Transcriber struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model"    json:"model"`
	Language string `yaml:"language" json:"language"`
}

type Voice struct {
	Provider        string  `yaml:"provider"          json:"provider"`
	VoiceID         string  `yaml:"voice_id"          json:"voiceId"`
	Stability       float64 `yaml:"stability"         json:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"  json:"similarityBoost"`
	Speed           float64 `yaml:"speed"             json:"speed"`
	Style           float64 `yaml:"style"             json:"style"`
	UseSpeakerBoost bool    `yaml:"use_speaker_boost" json:"useSpeakerBoost"`
}

type Model struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// LoadAssistant reads an assistant definition from path, or the embedded
// interviewer when path is empty.
func LoadAssistant(path string) (*Assistant, error) {
	data := defaultInterviewer
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("voice: reading assistant file %s: %w", path, err)
		}
		data = b
	}
	return ParseAssistant(data)
}

// ParseAssistant decodes and validates an assistant definition.
func ParseAssistant(data []byte) (*Assistant, error) {
	var a Assistant
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("voice: parsing assistant YAML: %w", err)
	}
	if err := validateAssistant(&a); err != nil {
		return nil, fmt.Errorf("voice: invalid assistant: %w", err)
	}
	return &a, nil
}

func validateAssistant(a *Assistant) error {
	var errs []error
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(a.FirstMessage) == "" {
		errs = append(errs, errors.New("first_message is required"))
	}
	if a.Model.Provider == "" || a.Model.Model == "" {
		errs = append(errs, errors.New("model.provider and model.model are required"))
	}
	if !strings.Contains(a.Model.SystemPrompt, QuestionsPlaceholder) {
		errs = append(errs, fmt.Errorf("model.system_prompt must contain %s", QuestionsPlaceholder))
	}
	if a.Voice.Stability < 0 || a.Voice.Stability > 1 {
		errs = append(errs, errors.New("voice.stability must be between 0 and 1"))
	}
	return errors.Join(errs...)
}
