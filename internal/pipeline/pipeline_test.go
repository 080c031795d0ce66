package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fadilmartias/cv-evaluator/internal/document"
	"github.com/fadilmartias/cv-evaluator/internal/invoker"
	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedOracle feeds canned responses through a real invoker so the
// stages exercise the actual decode and validation path.
type scriptedOracle struct {
	responses []string
	prompts   []string
	err       error
}

func (s *scriptedOracle) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.prompts) > len(s.responses) {
		return "", fmt.Errorf("unexpected call %d", len(s.prompts))
	}
	return s.responses[len(s.prompts)-1], nil
}

type stubDocs struct {
	texts map[string]string
}

func (s *stubDocs) GetText(ctx context.Context, handle string) (string, error) {
	text, ok := s.texts[handle]
	if !ok {
		return "", &document.ExtractionError{Handle: handle, Err: errors.New("no such document")}
	}
	return text, nil
}

type stubRetriever struct {
	docs map[string][]model.RubricDocument
	err  error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query, category string, k int) ([]model.RubricDocument, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs[category], nil
}

const (
	extractionJSON = `{
		"skills": ["Go", "Python", "AWS", "PostgreSQL"],
		"experiences": ["Backend engineer at a payments startup"],
		"projects": ["Built an order matching engine"],
		"education": ["BSc Computer Science"],
		"achievements": ["Cut p99 latency by 40%"],
		"years_of_experience": 5
	}`

	matchJSON = `{
		"match_rate": 0.85,
		"feedback": "Strong backend profile with relevant cloud experience.",
		"strengths": ["Distributed systems", "Cloud platforms"],
		"improvements": ["More AI/ML exposure"],
		"detailed_scores": {
			"technical_skills_match": 4,
			"experience_level": 4,
			"relevant_achievements": 4,
			"cultural_fit": 4
		}
	}`

	initialProjectJSON = `{
		"score": 7.0,
		"feedback": "Solid implementation with basic error handling.",
		"detailed_scores": {
			"correctness": 4,
			"code_quality": 4,
			"resilience": 3,
			"documentation": 3,
			"creativity": 3
		}
	}`

	refinedProjectJSON = `{
		"score": 7.5,
		"feedback": "Solid implementation; resilience is better than first assessed.",
		"detailed_scores": {
			"correctness": 4,
			"code_quality": 4,
			"resilience": 4,
			"documentation": 3,
			"creativity": 3
		}
	}`

	summaryText = "Strong candidate with relevant backend depth. Recommended for the next interview round."
)

func happyOracle() *scriptedOracle {
	return &scriptedOracle{responses: []string{
		extractionJSON,
		matchJSON,
		initialProjectJSON,
		refinedProjectJSON,
		summaryText,
	}}
}

func testDocs() *stubDocs {
	return &stubDocs{texts: map[string]string{
		"cv.txt":     "Backend engineer, five years with Go, Python and AWS. Led a team of four on a payments platform.",
		"report.txt": "The project implements an evaluation service with a retry layer, structured logging and a README covering setup.",
	}}
}

func testRetriever() *stubRetriever {
	return &stubRetriever{docs: map[string][]model.RubricDocument{
		model.CategoryCVScoring: {
			{ID: "rubric-cv", Content: "CV scoring rubric body", Category: model.CategoryCVScoring, Embedding: pgvector.NewVector([]float32{1, 0})},
		},
		model.CategoryProjectScoring: {
			{ID: "rubric-project", Content: "Project scoring rubric body", Category: model.CategoryProjectScoring, Embedding: pgvector.NewVector([]float32{0, 1})},
		},
	}}
}

func testTask() *model.EvaluationTask {
	return &model.EvaluationTask{
		ID:           uuid.New(),
		Status:       model.StatusProcessing,
		CVHandle:     "cv.txt",
		ReportHandle: "report.txt",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func newTestPipeline(oracle *scriptedOracle, retriever *stubRetriever) *Pipeline {
	inv := invoker.New(oracle, invoker.Policy{MaxAttempts: 1, Timeout: time.Second}, nil, zap.NewNop())
	return New(inv, retriever, testDocs(), 2, zap.NewNop())
}

func TestRunProducesAggregatedResult(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, testRetriever())

	result, err := pipe.Run(context.Background(), testTask())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"Go", "Python", "AWS", "PostgreSQL"}, result.CV.Skills)
	require.NotNil(t, result.CV.YearsOfExperience)
	assert.Equal(t, 5, *result.CV.YearsOfExperience)

	assert.InDelta(t, 0.85, result.CVMatch.MatchRate, 1e-9)
	assert.Equal(t, model.MatchHigh, result.CVMatch.Category)
	assert.NotEmpty(t, result.CVMatch.Feedback)

	// The refined pass, not the initial one, is what survives.
	assert.InDelta(t, 7.5, result.Project.Score, 1e-9)
	assert.Equal(t, 4, result.Project.Scores.Resilience)

	assert.Equal(t, summaryText, result.OverallSummary)
	assert.Len(t, oracle.prompts, 5)
}

func TestRunFeedsRubricContextIntoPrompts(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, testRetriever())

	_, err := pipe.Run(context.Background(), testTask())
	require.NoError(t, err)

	require.Len(t, oracle.prompts, 5)
	assert.Contains(t, oracle.prompts[1], "CV scoring rubric body")
	assert.Contains(t, oracle.prompts[2], "Project scoring rubric body")
}

func TestRunRefinementSeesInitialEvaluation(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, testRetriever())

	_, err := pipe.Run(context.Background(), testTask())
	require.NoError(t, err)

	refinePrompt := oracle.prompts[3]
	assert.Contains(t, refinePrompt, "Solid implementation with basic error handling.")
	assert.Contains(t, refinePrompt, "retry layer")
}

func TestRunFallsBackWhenRetrievalFails(t *testing.T) {
	oracle := happyOracle()
	retriever := &stubRetriever{err: errors.New("vector store down")}
	pipe := newTestPipeline(oracle, retriever)

	result, err := pipe.Run(context.Background(), testTask())
	require.NoError(t, err)
	require.NotNil(t, result)

	// Generic guidance substitutes for the missing rubric context.
	assert.Contains(t, oracle.prompts[1], "common backend engineering expectations")
	assert.Contains(t, oracle.prompts[2], "common engineering expectations")
}

func TestRunFallsBackWhenRetrievalEmpty(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, &stubRetriever{})

	result, err := pipe.Run(context.Background(), testTask())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, oracle.prompts[1], "common backend engineering expectations")
}

func TestRunAbortsWhenExtractionStageFails(t *testing.T) {
	oracle := &scriptedOracle{err: &invoker.Error{Kind: invoker.KindPermanent, Attempts: 1, Err: errors.New("invalid api key")}}
	pipe := newTestPipeline(oracle, testRetriever())

	result, err := pipe.Run(context.Background(), testTask())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "cv extraction")
	assert.Len(t, oracle.prompts, 1)
}

func TestRunAbortsWhenDocumentMissing(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, testRetriever())

	task := testTask()
	task.CVHandle = "missing.txt"

	result, err := pipe.Run(context.Background(), task)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "cv text")
	assert.Empty(t, oracle.prompts)
}

func TestRunUsesJobDescriptionFromTask(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, testRetriever())

	task := testTask()
	task.JobDescription = "Senior Platform Engineer, Kubernetes and Go"

	_, err := pipe.Run(context.Background(), task)
	require.NoError(t, err)
	assert.Contains(t, oracle.prompts[1], "Senior Platform Engineer, Kubernetes and Go")
}

func TestRunDefaultsJobDescription(t *testing.T) {
	oracle := happyOracle()
	pipe := newTestPipeline(oracle, testRetriever())

	_, err := pipe.Run(context.Background(), testTask())
	require.NoError(t, err)
	assert.Contains(t, oracle.prompts[1], defaultJobDescription)
}

func TestRunRejectsOutOfRangeMatchRate(t *testing.T) {
	oracle := happyOracle()
	oracle.responses[1] = strings.Replace(matchJSON, "0.85", "1.7", 1)
	pipe := newTestPipeline(oracle, testRetriever())

	result, err := pipe.Run(context.Background(), testTask())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "cv evaluation")
	assert.True(t, invoker.IsPermanent(err))
}

func TestMatchCategoryThresholds(t *testing.T) {
	cases := []struct {
		rate float64
		want string
	}{
		{0.95, model.MatchExceptional},
		{0.9, model.MatchExceptional},
		{0.85, model.MatchHigh},
		{0.8, model.MatchHigh},
		{0.75, model.MatchGood},
		{0.7, model.MatchGood},
		{0.65, model.MatchModerate},
		{0.6, model.MatchModerate},
		{0.55, model.MatchNeedsImprovement},
		{0, model.MatchNeedsImprovement},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%.2f", tc.rate), func(t *testing.T) {
			oracle := happyOracle()
			oracle.responses[1] = strings.Replace(matchJSON, "0.85", fmt.Sprintf("%.2f", tc.rate), 1)
			pipe := newTestPipeline(oracle, testRetriever())

			result, err := pipe.Run(context.Background(), testTask())
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.CVMatch.Category)
		})
	}
}
