package pipeline

import (
	"fmt"

	"github.com/fadilmartias/cv-evaluator/internal/model"
)

// Stage payloads parsed from oracle responses. Each implements the
// invoker's Response contract; a failed Validate counts as a schema
// mismatch and is retried within the invocation budget.

type extractedCVResponse struct {
	model.ExtractedCV
}

func (r *extractedCVResponse) Validate() error {
	// The extraction schema tolerates sparse CVs; empty lists are
	// normalized so downstream prompts never see null fields.
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Experiences == nil {
		r.Experiences = []string{}
	}
	if r.Projects == nil {
		r.Projects = []string{}
	}
	if r.Education == nil {
		r.Education = []string{}
	}
	if r.Achievements == nil {
		r.Achievements = []string{}
	}
	return nil
}

type cvMatchResponse struct {
	MatchRate      float64        `json:"match_rate"`
	Feedback       string         `json:"feedback"`
	Strengths      []string       `json:"strengths"`
	Improvements   []string       `json:"improvements"`
	DetailedScores model.CVScores `json:"detailed_scores"`
}

func (r *cvMatchResponse) Validate() error {
	if r.MatchRate < 0 || r.MatchRate > 1 {
		return fmt.Errorf("match_rate out of range [0,1]: %v", r.MatchRate)
	}
	if r.Feedback == "" {
		return fmt.Errorf("feedback is empty")
	}
	return r.DetailedScores.Validate()
}

type projectEvaluationResponse struct {
	Score          float64             `json:"score"`
	Feedback       string              `json:"feedback"`
	DetailedScores model.ProjectScores `json:"detailed_scores"`
}

func (r *projectEvaluationResponse) Validate() error {
	if r.Score < 1 || r.Score > 10 {
		return fmt.Errorf("project score out of range [1,10]: %v", r.Score)
	}
	if r.Feedback == "" {
		return fmt.Errorf("feedback is empty")
	}
	return r.DetailedScores.Validate()
}
