package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/interviewer/internal/model"
)

const defaultTechnicalDomain = "Software Engineering"

//go:embed bank.yaml
var defaultBank []byte

// Bank is the static question catalog.
type Bank struct {
	Technical       map[string]map[model.Difficulty][]string `yaml:"technical"`
	Behavioral      []string                                 `yaml:"behavioral"`
	Situational     []string                                 `yaml:"situational"`
	Keywords        map[string][]string                      `yaml:"keywords"`
	DefaultKeywords []string                                 `yaml:"default_keywords"`
	Criteria        []string                                 `yaml:"criteria"`
}

// DefaultBank returns the built-in bank.
func DefaultBank() *Bank {
	b, err := ParseBank(defaultBank)
	if err != nil {
		panic(fmt.Sprintf("built-in question bank: %v", err))
	}
	return b
}

// LoadBank reads a bank from a YAML file.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", path, err)
	}
	return ParseBank(data)
}

// ParseBank parses and validates a YAML bank.
func ParseBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("invalid question bank: %w", err)
	}
	return &b, nil
}

func (b *Bank) validate() error {
	byDiff, ok := b.Technical[defaultTechnicalDomain]
	if !ok {
		return fmt.Errorf("technical questions for %q are required", defaultTechnicalDomain)
	}
	if len(byDiff[model.DifficultyEasy]) == 0 {
		return fmt.Errorf("easy technical questions for %q are required", defaultTechnicalDomain)
	}
	for domain, levels := range b.Technical {
		if len(levels[model.DifficultyEasy]) == 0 {
			return fmt.Errorf("domain %q has no easy technical questions", domain)
		}
	}
	if len(b.Behavioral) == 0 {
		return errors.New("behavioral questions are required")
	}
	if len(b.Situational) == 0 {
		return errors.New("situational questions are required")
	}
	return nil
}

// candidates returns the texts a bank question of the given kind may be drawn from.
// Unknown domains fall back to Software Engineering and unknown difficulties to Easy.
func (b *Bank) candidates(domain string, t model.QuestionType, d model.Difficulty) []string {
	switch t {
	case model.TypeTechnical:
		byDiff, ok := b.Technical[domain]
		if !ok {
			byDiff = b.Technical[defaultTechnicalDomain]
		}
		if list := byDiff[d]; len(list) > 0 {
			return list
		}
		return byDiff[model.DifficultyEasy]
	case model.TypeSituational:
		return b.Situational
	default:
		return b.Behavioral
	}
}

func (b *Bank) keywords(domain string) []string {
	if kw, ok := b.Keywords[domain]; ok {
		return slices.Clone(kw)
	}
	return slices.Clone(b.DefaultKeywords)
}
