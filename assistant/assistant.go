// Package assistant composes retrieval, text generation and SQL execution
// into the question-answering operations the pipeline stages call.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"querypilot/ai"
	"querypilot/chart"
	"querypilot/errs"
	"querypilot/models"
	"querypilot/training"
	"querypilot/vectorstore"
)

// Retriever finds trained context similar to a question.
type Retriever interface {
	RelatedContext(ctx context.Context, question string, k int) (vectorstore.Related, error)
	SampleQuestions(ctx context.Context, n int) ([]string, error)
}

// Generator turns a prompt into text.
type Generator interface {
	Submit(ctx context.Context, prompt string) (string, error)
}

type SQLRunner interface {
	RunSQL(ctx context.Context, sql string) (models.QueryResult, error)
	SchemaColumns(ctx context.Context) ([]models.ColumnInfo, error)
	Dialect() string
}

type SQLValidator interface {
	IsSQLValid(ctx context.Context, sql string) bool
}

type Options struct {
	RetrievalK        int
	FollowupLimit     int
	QuestionLimit     int
	AllowLLMToSeeData bool
}

func (o Options) withDefaults() Options {
	if o.RetrievalK <= 0 {
		o.RetrievalK = 10
	}
	if o.FollowupLimit <= 0 {
		o.FollowupLimit = 5
	}
	if o.QuestionLimit <= 0 {
		o.QuestionLimit = 5
	}
	return o
}

type Assistant struct {
	retriever Retriever
	generator Generator
	runner    SQLRunner
	validator SQLValidator
	opts      Options

	columns   []models.ColumnInfo
	createdAt time.Time
}

// New builds an Assistant and reads the columns catalog of the target
// database. A catalog failure is logged, not returned: the database may come
// back before the first question is asked.
func New(ctx context.Context, retriever Retriever, generator Generator, runner SQLRunner, validator SQLValidator, opts Options) *Assistant {
	a := &Assistant{
		retriever: retriever,
		generator: generator,
		runner:    runner,
		validator: validator,
		opts:      opts.withDefaults(),
		createdAt: time.Now(),
	}
	columns, err := runner.SchemaColumns(ctx)
	if err != nil {
		slog.Warn("could not read columns catalog", "error", err)
	} else {
		a.columns = columns
		slog.Info("read columns catalog", "columns", len(columns))
	}
	return a
}

func (a *Assistant) CreatedAt() time.Time {
	return a.createdAt
}

func (a *Assistant) submit(ctx context.Context, messages []ai.Message) (string, error) {
	response, err := a.generator.Submit(ctx, ai.RenderPrompt(messages))
	if err != nil {
		return "", err
	}
	if response == ai.InvalidPromptResponse {
		return "", errs.Generation(ai.InvalidPromptResponse, nil)
	}
	return response, nil
}

// GenerateSQL retrieves context for question and asks the model for SQL.
// When the model first asks for an intermediate query and the model may see
// data, that query is run and the model is asked once more.
func (a *Assistant) GenerateSQL(ctx context.Context, question string) (string, error) {
	related, err := a.retriever.RelatedContext(ctx, question, a.opts.RetrievalK)
	if err != nil {
		return "", err
	}

	in := ai.SQLPromptInput{
		Dialect:       a.runner.Dialect(),
		Question:      question,
		DDL:           related.DDL,
		Documentation: related.Documentation,
	}
	for _, hit := range related.QuestionSQL {
		in.Examples = append(in.Examples, ai.QuestionSQL{Question: hit.Question, SQL: hit.SQL})
	}

	response, err := a.submit(ctx, ai.BuildSQLPrompt(in))
	if err != nil {
		return "", err
	}

	if ai.IsIntermediateSQL(response) {
		intermediate := ai.ExtractSQL(response)
		if !a.opts.AllowLLMToSeeData {
			return "", errs.Generation("the model needs to see data to answer; enable ALLOW_LLM_TO_SEE_DATA", nil)
		}
		slog.Info("running intermediate query", "sql", intermediate)
		result, err := a.runner.RunSQL(ctx, intermediate)
		if err != nil {
			return "", fmt.Errorf("run intermediate sql: %w", err)
		}
		in.IntermediateResults = append(in.IntermediateResults, ai.BuildIntermediateResult(intermediate, result))
		if response, err = a.submit(ctx, ai.BuildSQLPrompt(in)); err != nil {
			return "", err
		}
	}

	sql := ai.ExtractSQL(response)
	if sql == "" {
		return "", errs.Generation("model returned no SQL", nil)
	}
	return sql, nil
}

// IsSQLValid never touches the target database.
func (a *Assistant) IsSQLValid(ctx context.Context, sql string) bool {
	return a.validator.IsSQLValid(ctx, sql)
}

func (a *Assistant) RunSQL(ctx context.Context, sql string) (models.QueryResult, error) {
	return a.runner.RunSQL(ctx, sql)
}

func (a *Assistant) ShouldGenerateChart(result models.QueryResult) bool {
	return chart.ShouldGenerate(result)
}

// GeneratePlotCode returns the model's chart spec. It is not validated here.
func (a *Assistant) GeneratePlotCode(ctx context.Context, question, sql string, result models.QueryResult) (string, error) {
	response, err := a.submit(ctx, ai.BuildPlotPrompt(question, sql, result))
	if err != nil {
		return "", err
	}
	return ai.StripCodeFence(response), nil
}

func (a *Assistant) RenderPlot(code string, result models.QueryResult) (figure *models.Figure, err error) {
	defer func() {
		if r := recover(); r != nil {
			figure, err = nil, errs.Render(fmt.Sprintf("chart evaluation panicked: %v", r), nil)
		}
	}()
	spec, err := chart.Parse(code)
	if err != nil {
		return nil, err
	}
	return chart.Render(spec, result)
}

func (a *Assistant) GenerateFollowups(ctx context.Context, question, sql string, result models.QueryResult) ([]string, error) {
	response, err := a.submit(ctx, ai.BuildFollowupPrompt(question, sql, result, a.opts.FollowupLimit))
	if err != nil {
		return nil, err
	}
	return ai.ParseFollowups(response, a.opts.FollowupLimit), nil
}

func (a *Assistant) GenerateSummary(ctx context.Context, question string, result models.QueryResult) (string, error) {
	response, err := a.submit(ctx, ai.BuildSummaryPrompt(question, result))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// GenerateQuestions samples questions from the trained question/SQL pairs.
func (a *Assistant) GenerateQuestions(ctx context.Context) ([]string, error) {
	return a.retriever.SampleQuestions(ctx, a.opts.QuestionLimit)
}

// TrainingPlan describes every table of the columns catalog read at init.
func (a *Assistant) TrainingPlan() []models.TrainingItem {
	return training.Plan(a.columns)
}
