package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var defaultPersona []byte

// Achievement is a highlighted accomplishment.
type Achievement struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Project is a featured portfolio project.
type Project struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Persona holds the biography facts the assistant speaks from.
type Persona struct {
	Name         string        `yaml:"name"`
	Title        string        `yaml:"title"`
	Company      string        `yaml:"company"`
	CompanyURL   string        `yaml:"company_url"`
	Bio          string        `yaml:"bio"`
	LeetCode     string        `yaml:"leetcode"`
	Skills       []string      `yaml:"skills"`
	Achievements []Achievement `yaml:"achievements"`
	Projects     []Project     `yaml:"projects"`
	Guidelines   []string      `yaml:"guidelines"`
}

// DefaultPersona returns the persona compiled into the binary.
func DefaultPersona() (*Persona, error) {
	return ParsePersona(defaultPersona)
}

// LoadPersona reads a persona file, or the compiled-in persona when path is empty.
func LoadPersona(path string) (*Persona, error) {
	if path == "" {
		return DefaultPersona()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	return ParsePersona(data)
}

// ParsePersona decodes YAML persona data.
func ParsePersona(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona: %w", err)
	}
	if p.Name == "" {
		return nil, errors.New("persona name is required")
	}
	return &p, nil
}
