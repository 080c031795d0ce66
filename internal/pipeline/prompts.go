package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fadilmartias/cv-evaluator/internal/model"
)

const (
	defaultJobDescription = "Backend Developer position"
	defaultCVQuery        = "CV evaluation scoring technical skills experience"
	projectRubricQuery    = "project evaluation rubric code quality correctness resilience documentation"

	genericCVContext = "Score the candidate against common backend engineering expectations: technical depth, relevant experience, measurable achievements and collaboration skills."

	genericProjectContext = "Score the project against common engineering expectations: correctness of the solution, code quality, resilience to failure, documentation and creative extras."
)

func extractCVPrompt(cvText string) string {
	return fmt.Sprintf(`Analyze the following CV text and extract structured information in JSON format.
Return ONLY the JSON, no additional text or formatting.

Expected JSON structure:
{
    "skills": ["skill1", "skill2"],
    "experiences": ["experience1", "experience2"],
    "projects": ["project1", "project2"],
    "education": ["education1", "education2"],
    "achievements": ["achievement1", "achievement2"],
    "years_of_experience": number_or_null
}

CV Text:
%s`, cvText)
}

func evaluateCVPrompt(cv *extractedCVResponse, jobDescription, context string) string {
	if strings.TrimSpace(context) == "" {
		context = genericCVContext
	}

	years := "unknown"
	if cv.YearsOfExperience != nil {
		years = fmt.Sprintf("%d", *cv.YearsOfExperience)
	}

	return fmt.Sprintf(`You are an expert HR evaluator. Analyze how well this candidate matches the job requirements.

Job Description:
%s

Additional Context:
%s

Candidate Data:
- Skills: %s
- Years of experience: %s
- Experiences: %s
- Projects: %s
- Education: %s
- Achievements: %s

Return ONLY JSON in this exact shape:
{
    "match_rate": <float 0.0-1.0>,
    "feedback": "<detailed feedback>",
    "strengths": ["<strength>"],
    "improvements": ["<improvement area>"],
    "detailed_scores": {
        "technical_skills_match": <int 1-5>,
        "experience_level": <int 1-5>,
        "relevant_achievements": <int 1-5>,
        "cultural_fit": <int 1-5>
    }
}`,
		jobDescription,
		context,
		strings.Join(cv.Skills, ", "),
		years,
		strings.Join(cv.Experiences, "; "),
		strings.Join(cv.Projects, "; "),
		strings.Join(cv.Education, "; "),
		strings.Join(cv.Achievements, "; "),
	)
}

func evaluateProjectPrompt(projectText, rubric string) string {
	if strings.TrimSpace(rubric) == "" {
		rubric = genericProjectContext
	}

	return fmt.Sprintf(`Evaluate this project report based on the scoring rubric.

Scoring Rubric:
%s

Project Report:
%s

Return ONLY JSON in this exact shape:
{
    "score": <float 1.0-10.0>,
    "feedback": "<detailed feedback>",
    "detailed_scores": {
        "correctness": <int 1-5>,
        "code_quality": <int 1-5>,
        "resilience": <int 1-5>,
        "documentation": <int 1-5>,
        "creativity": <int 1-5>
    }
}`, rubric, projectText)
}

func refineProjectPrompt(initial *projectEvaluationResponse, projectText string) string {
	initialJSON, err := json.MarshalIndent(initial, "", "  ")
	if err != nil {
		initialJSON = []byte("{}")
	}

	excerpt := projectText
	if len(excerpt) > 1000 {
		excerpt = excerpt[:1000] + "..."
	}

	return fmt.Sprintf(`Review and refine this project evaluation. Check that the scoring is fair and internally consistent.

Initial Evaluation:
%s

Project Report (for reference):
%s

Return the refined evaluation as ONLY JSON in the same shape as the initial evaluation.`, initialJSON, excerpt)
}

func overallSummaryPrompt(result *model.StructuredEvaluation) string {
	return fmt.Sprintf(`Generate a concise overall summary for this candidate evaluation:

CV Match Rate: %.2f (%s)
CV Feedback: %s

Project Score: %.1f/10
Project Feedback: %s

Provide a 2-3 sentence overall summary that highlights key strengths, areas for improvement, and a hiring recommendation.`,
		result.CVMatch.MatchRate,
		result.CVMatch.Category,
		result.CVMatch.Feedback,
		result.Project.Score,
		result.Project.Feedback,
	)
}
