package local

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/catfeed/internal/core/domain"
)

//go:embed facts.yaml
var defaultFactsYAML []byte

type factsFile struct {
	Facts []string `yaml:"facts"`
}

// DefaultFacts returns the built-in fact list.
func DefaultFacts() []domain.Fact {
	facts, err := parseFacts(defaultFactsYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded facts: %v", err))
	}
	return facts
}

// LoadFacts reads a YAML file of the form `facts: [...]`.
func LoadFacts(path string) ([]domain.Fact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file: %w", err)
	}
	facts, err := parseFacts(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse facts file: %w", err)
	}
	return facts, nil
}

func parseFacts(data []byte) ([]domain.Fact, error) {
	var f factsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	facts := make([]domain.Fact, 0, len(f.Facts))
	for _, text := range f.Facts {
		if text = strings.TrimSpace(text); text != "" {
			facts = append(facts, domain.NewFact(text))
		}
	}
	if len(facts) == 0 {
		return nil, domain.ErrNoFacts
	}
	return facts, nil
}
