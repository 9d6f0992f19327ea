// Package prompts renders the LLM prompts used for answer feedback and
// question generation from embedded text templates.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/interviewer/internal/model"
)

// Templates holds the built-in prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

const maxAnswerRunes = 10000

var (
	candidateAnswerRegex    = regexp.MustCompile(`(?i)</?\s*candidate-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// PromptVariant selects the tone of the feedback prompt.
type PromptVariant string

const (
	// PromptStrict asks for blunt, gap-first feedback.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default coaching tone.
	PromptStandard PromptVariant = "standard"
	// PromptLenient asks for encouraging feedback.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce          sync.Once
	loadErr           error
	feedbackTemplates map[PromptVariant]*template.Template
	questionTemplate  *template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// FeedbackData holds template data for feedback prompts.
type FeedbackData struct {
	QuestionText string
	QuestionType model.QuestionType
	Keywords     string
	Answer       string
}

// QuestionData holds template data for the question generation prompt.
type QuestionData struct {
	Domain     string
	Type       model.QuestionType
	Difficulty model.Difficulty
	JobContext string
}

// DifficultyLower is used by the template to phrase "an easy question".
func (d QuestionData) DifficultyLower() string {
	return strings.ToLower(string(d.Difficulty))
}

// Load parses the prompt templates from fsys. Only the first call has
// any effect; later calls return the result of the first.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		feedbackTemplates = make(map[PromptVariant]*template.Template)
		for _, v := range []PromptVariant{PromptStrict, PromptStandard, PromptLenient} {
			tmpl, err := parseFile(fsys, "templates/feedback_"+string(v)+".txt")
			if err != nil {
				loadErr = err
				return
			}
			feedbackTemplates[v] = tmpl
		}
		questionTemplate, loadErr = parseFile(fsys, "templates/question.txt")
	})
	return loadErr
}

func parseFile(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildFeedbackPrompt renders the feedback prompt for one answer.
func BuildFeedbackPrompt(variant PromptVariant, q model.Question, answer string) (string, error) {
	if feedbackTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := feedbackTemplates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	qType := q.Type
	if qType == "" {
		qType = "general"
	}
	return render(tmpl, FeedbackData{
		QuestionText: q.Text,
		QuestionType: qType,
		Keywords:     strings.Join(q.Keywords, ", "),
		Answer:       sanitizeAnswer(answer),
	})
}

// BuildQuestionPrompt renders the question generation prompt.
func BuildQuestionPrompt(d QuestionData) (string, error) {
	if questionTemplate == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	return render(questionTemplate, d)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeAnswer strips tags a candidate could use to break out of the
// answer block and caps the answer length.
func sanitizeAnswer(answer string) string {
	answer = candidateAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)[:maxAnswerRunes]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
