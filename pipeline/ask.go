package pipeline

import (
	"context"
	"errors"
	"time"

	"querypilot/models"
)

// ErrInvalidSQL is reported for the is_sql_valid stage when the generated
// statement fails validation. Ask stops there and never runs it.
var ErrInvalidSQL = errors.New("the generated SQL is not a single valid SELECT statement")

type AskOptions struct {
	Chart     bool
	Followups bool
	Summary   bool
}

func DefaultAskOptions() AskOptions {
	return AskOptions{Chart: true, Followups: true, Summary: true}
}

// Observer receives each finished stage. It is called from the goroutine
// running Ask.
type Observer func(models.StageEvent)

// Ask runs the stages for question in order. A failed stage is recorded in
// Answer.Errors; outputs of earlier stages are kept. A chart failure does not
// stop follow-ups and summary.
func (p *Pipeline) Ask(ctx context.Context, question string, opts AskOptions, observe Observer) models.Answer {
	answer := models.Answer{Question: question}
	report := func(stage string, start time.Time, cached bool, output any, err error) bool {
		event := models.StageEvent{Stage: stage, Cached: cached, Duration: time.Since(start)}
		if err != nil {
			if answer.Errors == nil {
				answer.Errors = map[string]string{}
			}
			answer.Errors[stage] = err.Error()
			event.Error = err.Error()
		} else {
			event.Output = output
		}
		if observe != nil {
			observe(event)
		}
		return err == nil
	}

	start := time.Now()
	sql, cached, err := p.generateSQL(ctx, question)
	if !report(StageGenerateSQL, start, cached, sql, err) {
		return answer
	}
	answer.SQL = sql

	start = time.Now()
	valid, cached, err := p.isSQLValid(ctx, sql)
	if err == nil && !valid {
		err = ErrInvalidSQL
	}
	if !report(StageIsSQLValid, start, cached, valid, err) {
		return answer
	}
	answer.SQLValid = true

	start = time.Now()
	result, cached, err := p.runSQL(ctx, sql)
	if !report(StageRunSQL, start, cached, result, err) {
		return answer
	}
	answer.Result = &result

	if opts.Chart {
		p.chart(ctx, question, sql, result, &answer, report)
	}

	if opts.Followups {
		start = time.Now()
		followups, cached, err := p.generateFollowups(ctx, question, sql, result)
		if report(StageGenerateFollowups, start, cached, followups, err) {
			answer.Followups = followups
		}
	}

	if opts.Summary {
		start = time.Now()
		summary, cached, err := p.generateSummary(ctx, question, result)
		if report(StageGenerateSummary, start, cached, summary, err) {
			answer.Summary = summary
		}
	}
	return answer
}

func (p *Pipeline) chart(ctx context.Context, question, sql string, result models.QueryResult, answer *models.Answer,
	report func(string, time.Time, bool, any, error) bool) {
	start := time.Now()
	should, cached, err := p.shouldGenerateChart(ctx, question, sql, result)
	if !report(StageShouldGenerateChart, start, cached, should, err) || !should {
		return
	}
	answer.ShouldChart = true

	start = time.Now()
	code, cached, err := p.generatePlotCode(ctx, question, sql, result)
	if !report(StageGeneratePlotCode, start, cached, code, err) {
		return
	}
	answer.PlotCode = code

	start = time.Now()
	figure, cached, err := p.renderPlot(ctx, code, result)
	if report(StageRenderPlot, start, cached, figure, err) {
		answer.Figure = figure
	}
}
