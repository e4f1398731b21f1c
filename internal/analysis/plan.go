package analysis

import "github.com/darved2305/VeriTextAI/internal/model"

// Stage names also label traces and metrics.
const (
	StageNormalize   = "normalize"
	StageFingerprint = "fingerprint"
	StageSource      = "source_match"
	StageAI          = "ai_detect"
	StageParaphrase  = "paraphrase_detect"
	StageStructural  = "paraphrase_structural"
	StageCode        = "code_structure"
	StageAggregate   = "aggregate"
)

// Plan lists the detector stages to run per check type.
type Plan map[model.CheckType][]string

// DefaultPlan keeps the corpus out of ai_detection and paraphrase checks, so
// they succeed while the corpus is down. Code checks skip the prose signals.
func DefaultPlan() Plan {
	textOnly := []string{StageAI, StageParaphrase}
	return Plan{
		model.CheckPlagiarism:     {StageSource, StageAI, StageParaphrase, StageStructural},
		model.CheckCodeSimilarity: {StageSource, StageCode},
		model.CheckAIDetection:    textOnly,
		model.CheckParaphrase:     textOnly,
	}
}

func (p Plan) has(ct model.CheckType, stage string) bool {
	for _, s := range p[ct] {
		if s == stage {
			return true
		}
	}
	return false
}

