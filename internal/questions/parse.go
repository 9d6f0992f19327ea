package questions

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const questionSchema = `{
	"type": "object",
	"required": ["question"],
	"properties": {
		"question": {"type": "string", "pattern": "\\S"},
		"keywords": {"type": "array", "items": {"type": "string"}},
		"criteria": {"type": "array", "items": {"type": "string"}},
		"sample_answer": {"type": "string"}
	}
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(questionSchema))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://question.json", doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile("schema://question.json")
})

// generated is the question content returned by the LLM.
type generated struct {
	Question     string   `json:"question"`
	Keywords     []string `json:"keywords"`
	Criteria     []string `json:"criteria"`
	SampleAnswer string   `json:"sample_answer"`
}

var introPhrases = []string{"here is", "this is", "here's", "question:"}

// parseResponse extracts question content from raw LLM output. JSON output
// must match questionSchema. Non-JSON output goes through a line heuristic.
// ok is false when nothing usable was found.
func parseResponse(raw string) (generated, bool, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		g, ok := parseLoose(raw)
		return g, ok, nil
	}

	schema, err := compiledSchema()
	if err != nil {
		return generated{}, false, err
	}
	if err := schema.Validate(doc); err != nil {
		return generated{}, false, fmt.Errorf("schema validation failed: %w", err)
	}

	var g generated
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return generated{}, false, err
	}
	g.Question = strings.TrimSpace(g.Question)
	return g, true, nil
}

// parseLoose takes the first line that is not an introduction and either
// ends with '?' or is longer than 20 characters.
func parseLoose(raw string) (generated, bool) {
	content := strings.TrimSpace(raw)
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" || isIntro(line) {
			continue
		}
		if strings.HasSuffix(line, "?") || utf8.RuneCountInString(line) > 20 {
			if line == content {
				return generated{}, false
			}
			return generated{Question: line}, true
		}
	}
	return generated{}, false
}

func isIntro(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range introPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
