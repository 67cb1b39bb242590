package config

import (
	"fmt"
	"os"

	"github.com/stemsi/course-review-backend/internal/eligibility"
	"gopkg.in/yaml.v3"
)

// LoadPolicy overlays the YAML file at path onto base. Keys missing from
// the file keep their base value. An empty path returns base unchanged.
//
//	term_limit: 7
//	course_limit: 2
//	fail_grade: F
func LoadPolicy(path string, base eligibility.Policy) (eligibility.Policy, error) {
	if path == "" {
		return base, base.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read policy file: %w", err)
	}
	policy := base
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return base, fmt.Errorf("parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return base, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}
