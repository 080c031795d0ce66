package model

import "fmt"

// Match category labels, mapped from the match rate by fixed thresholds.
const (
	MatchExceptional      = "exceptional"
	MatchHigh             = "high"
	MatchGood             = "good"
	MatchModerate         = "moderate"
	MatchNeedsImprovement = "needs improvement"
)

// CategoryForMatchRate maps a match rate in [0,1] onto its fixed label.
func CategoryForMatchRate(rate float64) string {
	switch {
	case rate >= 0.9:
		return MatchExceptional
	case rate >= 0.8:
		return MatchHigh
	case rate >= 0.7:
		return MatchGood
	case rate >= 0.6:
		return MatchModerate
	default:
		return MatchNeedsImprovement
	}
}

// ExtractedCV is the structured record produced by the CV extraction stage.
type ExtractedCV struct {
	Skills            []string `json:"skills"`
	Experiences       []string `json:"experiences"`
	Projects          []string `json:"projects"`
	Education         []string `json:"education"`
	Achievements      []string `json:"achievements"`
	YearsOfExperience *int     `json:"years_of_experience,omitempty"`
}

// CVScores holds the per-criterion CV scores, each in [1,5].
type CVScores struct {
	TechnicalSkillsMatch int `json:"technical_skills_match"`
	ExperienceLevel      int `json:"experience_level"`
	RelevantAchievements int `json:"relevant_achievements"`
	CulturalFit          int `json:"cultural_fit"`
}

func (s CVScores) Validate() error {
	criteria := map[string]int{
		"technical_skills_match": s.TechnicalSkillsMatch,
		"experience_level":       s.ExperienceLevel,
		"relevant_achievements":  s.RelevantAchievements,
		"cultural_fit":           s.CulturalFit,
	}
	for name, score := range criteria {
		if score < 1 || score > 5 {
			return fmt.Errorf("cv score %s out of range [1,5]: %d", name, score)
		}
	}
	return nil
}

// CVAssessment is the outcome of matching the CV against the job description.
type CVAssessment struct {
	MatchRate    float64  `json:"match_rate"`
	Category     string   `json:"category"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Scores       CVScores `json:"scores"`
}

// ProjectScores holds the per-criterion project scores, each in [1,5].
type ProjectScores struct {
	Correctness   int `json:"correctness"`
	CodeQuality   int `json:"code_quality"`
	Resilience    int `json:"resilience"`
	Documentation int `json:"documentation"`
	Creativity    int `json:"creativity"`
}

func (s ProjectScores) Validate() error {
	criteria := map[string]int{
		"correctness":   s.Correctness,
		"code_quality":  s.CodeQuality,
		"resilience":    s.Resilience,
		"documentation": s.Documentation,
		"creativity":    s.Creativity,
	}
	for name, score := range criteria {
		if score < 1 || score > 5 {
			return fmt.Errorf("project score %s out of range [1,5]: %d", name, score)
		}
	}
	return nil
}

// ProjectAssessment is the consistency-checked outcome of the project stage.
type ProjectAssessment struct {
	Score    float64       `json:"score"`
	Feedback string        `json:"feedback"`
	Scores   ProjectScores `json:"scores"`
}

// StructuredEvaluation is the full evaluation payload stored on a
// completed task. Immutable once assigned.
type StructuredEvaluation struct {
	CV             ExtractedCV       `json:"cv"`
	CVMatch        CVAssessment      `json:"cv_match"`
	Project        ProjectAssessment `json:"project"`
	OverallSummary string            `json:"overall_summary"`
}
