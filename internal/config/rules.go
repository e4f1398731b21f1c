package config

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const RulesVersion = 2

//go:embed rules.yaml
var defaultRules []byte

type Rules struct {
	Version    int             `yaml:"version"`
	AI         AIRules         `yaml:"ai"`
	Paraphrase ParaphraseRules `yaml:"paraphrase"`
	Code       CodeRules       `yaml:"code"`
}

type AIRules struct {
	Patterns      []string `yaml:"patterns"`
	PatternWeight float64  `yaml:"pattern_weight"`

	VarianceThreshold float64 `yaml:"variance_threshold"`
	MinSentences      int     `yaml:"min_sentences"`
	VarianceWeight    float64 `yaml:"variance_weight"`

	FormalWords   []string `yaml:"formal_words"`
	FormalDensity float64  `yaml:"formal_density"`
	FormalWeight  float64  `yaml:"formal_weight"`

	MATTRThreshold float64 `yaml:"mattr_threshold"`
	MATTRWindow    int     `yaml:"mattr_window"`
	MATTRMinWords  int     `yaml:"mattr_min_words"`
	MATTRWeight    float64 `yaml:"mattr_weight"`

	WindowSentences   int     `yaml:"window_sentences"`
	WindowStride      int     `yaml:"window_stride"`
	WindowSDThreshold float64 `yaml:"window_sd_threshold"`
	WindowWeight      float64 `yaml:"window_weight"`
}

type ParaphraseRules struct {
	Phrases      []string `yaml:"phrases"`
	PhraseWeight float64  `yaml:"phrase_weight"`

	StructuralJaccard float64 `yaml:"structural_jaccard"`
	StructuralWeight  float64 `yaml:"structural_weight"`
}

// CodeRules drive the structure signal for source code. Each pattern is a
// regular expression counted once per match.
type CodeRules struct {
	Patterns      map[string]string `yaml:"patterns"`
	DensityWeight float64           `yaml:"density_weight"`
}

// DefaultRules returns the rule set compiled into the binary.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads rules from path, or the built-in set when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) Validate() error {
	if r.Version != RulesVersion {
		return fmt.Errorf("unsupported rules version %d (want %d)", r.Version, RulesVersion)
	}
	if r.AI.WindowSentences > 0 && (r.AI.WindowStride <= 0 || r.AI.WindowStride > r.AI.WindowSentences) {
		return fmt.Errorf("window_stride must be in 1..%d", r.AI.WindowSentences)
	}
	if r.Paraphrase.StructuralJaccard < 0 || r.Paraphrase.StructuralJaccard > 1 {
		return fmt.Errorf("structural_jaccard must be within [0,1]")
	}
	for _, w := range []float64{
		r.AI.PatternWeight, r.AI.VarianceWeight, r.AI.FormalWeight, r.AI.MATTRWeight,
		r.AI.WindowWeight, r.Paraphrase.PhraseWeight, r.Paraphrase.StructuralWeight,
		r.Code.DensityWeight,
	} {
		if w < 0 {
			return fmt.Errorf("rule weights must not be negative")
		}
	}
	for name, expr := range r.Code.Patterns {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("code pattern %s: %w", name, err)
		}
	}
	return nil
}
