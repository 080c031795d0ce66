package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadilmartias/cv-evaluator/internal/document"
	"github.com/fadilmartias/cv-evaluator/internal/invoker"
	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/fadilmartias/cv-evaluator/internal/rag"
	"go.uber.org/zap"
)

// Invoker is the resilient oracle boundary the stages call through.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, out invoker.Response) error
	InvokeText(ctx context.Context, prompt string) (string, error)
}

// Retriever serves rubric context for a query and category.
type Retriever interface {
	Retrieve(ctx context.Context, query, category string, k int) ([]model.RubricDocument, error)
}

// Pipeline runs the four-stage evaluation for one task. Stages are
// strictly sequential; an exhausted oracle call aborts the whole run
// and nothing partial survives.
type Pipeline struct {
	invoker Invoker
	index   Retriever
	docs    document.Store
	topK    int
	logger  *zap.Logger
}

func New(inv Invoker, index Retriever, docs document.Store, topK int, logger *zap.Logger) *Pipeline {
	if topK <= 0 {
		topK = 2
	}
	return &Pipeline{invoker: inv, index: index, docs: docs, topK: topK, logger: logger}
}

func (p *Pipeline) Run(ctx context.Context, task *model.EvaluationTask) (*model.StructuredEvaluation, error) {
	log := p.logger.With(zap.String("task_id", task.ID.String()))

	cvText, err := p.docs.GetText(ctx, task.CVHandle)
	if err != nil {
		return nil, fmt.Errorf("cv text: %w", err)
	}
	reportText, err := p.docs.GetText(ctx, task.ReportHandle)
	if err != nil {
		return nil, fmt.Errorf("project report text: %w", err)
	}

	jobDescription := strings.TrimSpace(task.JobDescription)
	if jobDescription == "" {
		jobDescription = defaultJobDescription
	}

	// Stage 1: structured extraction from the raw CV text.
	log.Info("stage 1: extracting CV structure")
	var extracted extractedCVResponse
	if err := p.invoker.Invoke(ctx, extractCVPrompt(cvText), &extracted); err != nil {
		return nil, fmt.Errorf("cv extraction: %w", err)
	}

	// Stage 2: rubric context for CV scoring. Retrieval failures fall
	// back to a generic prompt instead of failing the task.
	log.Info("stage 2: retrieving CV scoring context")
	cvContext := p.retrieveContext(ctx, log, cvQuery(jobDescription), model.CategoryCVScoring)

	// Stage 3: match the structured CV against the job description.
	log.Info("stage 3: evaluating CV match")
	var match cvMatchResponse
	if err := p.invoker.Invoke(ctx, evaluateCVPrompt(&extracted, jobDescription, cvContext), &match); err != nil {
		return nil, fmt.Errorf("cv evaluation: %w", err)
	}

	// Stage 4: initial project evaluation, then a refinement pass fed
	// the initial scores plus the report text.
	log.Info("stage 4: evaluating project report")
	projectContext := p.retrieveContext(ctx, log, projectRubricQuery, model.CategoryProjectScoring)

	var initial projectEvaluationResponse
	if err := p.invoker.Invoke(ctx, evaluateProjectPrompt(reportText, projectContext), &initial); err != nil {
		return nil, fmt.Errorf("project evaluation: %w", err)
	}

	var refined projectEvaluationResponse
	if err := p.invoker.Invoke(ctx, refineProjectPrompt(&initial, reportText), &refined); err != nil {
		return nil, fmt.Errorf("project refinement: %w", err)
	}

	result := &model.StructuredEvaluation{
		CV: extracted.ExtractedCV,
		CVMatch: model.CVAssessment{
			MatchRate:    match.MatchRate,
			Category:     model.CategoryForMatchRate(match.MatchRate),
			Feedback:     match.Feedback,
			Strengths:    match.Strengths,
			Improvements: match.Improvements,
			Scores:       match.DetailedScores,
		},
		Project: model.ProjectAssessment{
			Score:    refined.Score,
			Feedback: refined.Feedback,
			Scores:   refined.DetailedScores,
		},
	}

	log.Info("generating overall summary")
	summary, err := p.invoker.InvokeText(ctx, overallSummaryPrompt(result))
	if err != nil {
		return nil, fmt.Errorf("overall summary: %w", err)
	}
	result.OverallSummary = strings.TrimSpace(summary)

	return result, nil
}

func (p *Pipeline) retrieveContext(ctx context.Context, log *zap.Logger, query, category string) string {
	docs, err := p.index.Retrieve(ctx, query, category, p.topK)
	if err != nil {
		log.Warn("context retrieval failed, falling back to generic prompt",
			zap.String("category", category),
			zap.Error(err),
		)
		return ""
	}
	if len(docs) == 0 {
		log.Warn("no rubric context found, falling back to generic prompt",
			zap.String("category", category),
		)
		return ""
	}
	return rag.Context(docs)
}

func cvQuery(jobDescription string) string {
	if jobDescription == defaultJobDescription {
		return defaultCVQuery
	}
	return jobDescription
}
