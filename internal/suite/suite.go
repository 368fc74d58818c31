// Package suite defines the resolved suite configuration handed to
// the runner, and a YAML loader for it.
package suite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/gate"
)

// Defaults applied when a suite leaves fields unset.
const (
	DefaultTrialCount     = 1
	DefaultConcurrency    = 4
	DefaultTimeoutMs      = 30_000
	DefaultFixtureTTLDays = 30
)

// Suite is a fully resolved suite definition.
type Suite struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description,omitempty"`
	// TargetVersion declares the target logic version; bumping it is
	// the deliberate way to invalidate recorded fixtures.
	TargetVersion        string       `yaml:"target_version,omitempty"`
	TrialCount           int          `yaml:"trial_count,omitempty"`
	Concurrency          int          `yaml:"concurrency,omitempty"`
	TimeoutMs            int64        `yaml:"timeout_ms,omitempty"`
	MaxRequestsPerMinute int          `yaml:"max_requests_per_minute,omitempty"`
	StrictFixtures       bool         `yaml:"strict_fixtures,omitempty"`
	FixtureTTLDays       float64      `yaml:"fixture_ttl_days,omitempty"`
	Graders              []string     `yaml:"graders,omitempty"`
	JudgeModel           string       `yaml:"judge_model,omitempty"`
	Gates                *gate.Config `yaml:"gates,omitempty"`
	Cases                []eval.Case  `yaml:"cases"`
}

// Load reads and validates a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eval.WrapRuntime(err, "failed to read suite file %s", path)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &eval.FrameworkError{Kind: eval.KindConfig, Msg: fmt.Sprintf("invalid suite file %s", path), Err: err}
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) applyDefaults() {
	if s.TrialCount <= 0 {
		s.TrialCount = DefaultTrialCount
	}
	if s.Concurrency <= 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.TimeoutMs <= 0 {
		s.TimeoutMs = DefaultTimeoutMs
	}
	if s.FixtureTTLDays <= 0 {
		s.FixtureTTLDays = DefaultFixtureTTLDays
	}
}

// Validate checks structural requirements: a suite id, at least one
// case, and unique case ids.
func (s *Suite) Validate() error {
	if s.ID == "" {
		return eval.NewConfigError("suite id is required")
	}
	if len(s.Cases) == 0 {
		return eval.NewConfigError("suite %q has no cases", s.ID)
	}
	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.ID == "" {
			return eval.NewConfigError("case %d in suite %q has no id", i, s.ID)
		}
		if seen[c.ID] {
			return eval.NewConfigError("duplicate case id %q in suite %q", c.ID, s.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// ConfigHash fingerprints the suite for fixture invalidation.
func (s *Suite) ConfigHash() string {
	return eval.ComputeConfigHash(s.ID, s.TargetVersion)
}
