package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/hearth/internal/model"
)

// RuleFile is the on-disk format for bulk rule definitions.
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule in a rule file. The category may be given by name or id.
type RuleSpec struct {
	Enabled    *bool                `yaml:"enabled,omitempty"`
	Name       string               `yaml:"name"`
	Category   string               `yaml:"category,omitempty"`
	Conditions model.RuleConditions `yaml:"conditions"`
	CategoryID int64                `yaml:"category_id,omitempty"`
	Priority   int                  `yaml:"priority"`
}

// LoadFile reads rule definitions from a YAML file.
func LoadFile(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML rule definitions.
func Parse(data []byte) ([]RuleSpec, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	for i, spec := range file.Rules {
		if spec.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i+1)
		}
	}
	return file.Rules, nil
}

// Resolve turns s into a rule, looking up the category by name when no id is given.
func (s RuleSpec) Resolve(categories *model.CategoryIndex) (model.CategorizationRule, error) {
	rule := model.CategorizationRule{
		Name:       s.Name,
		CategoryID: s.CategoryID,
		Priority:   s.Priority,
		Enabled:    s.Enabled == nil || *s.Enabled,
		Conditions: s.Conditions,
	}

	if rule.CategoryID == 0 {
		cat, ok := categories.ByName(s.Category)
		if !ok {
			return rule, fmt.Errorf("rule %q references unknown category %q", s.Name, s.Category)
		}
		rule.CategoryID = cat.ID
	}

	if err := Validate(rule); err != nil {
		return rule, err
	}
	return rule, nil
}
