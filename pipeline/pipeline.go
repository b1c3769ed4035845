// Package pipeline memoizes the Assistant operations as stages. Results are
// keyed by stage name and argument values and stay valid until the shared
// Assistant is recreated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"querypilot/cache"
	"querypilot/errs"
	"querypilot/models"
	"querypilot/observability"
)

const (
	StageGenerateQuestions   = "generate_questions"
	StageGenerateSQL         = "generate_sql"
	StageIsSQLValid          = "is_sql_valid"
	StageRunSQL              = "run_sql"
	StageShouldGenerateChart = "should_generate_chart"
	StageGeneratePlotCode    = "generate_plot_code"
	StageRenderPlot          = "render_plot"
	StageGenerateFollowups   = "generate_followups"
	StageGenerateSummary     = "generate_summary"
)

// Assistant is the set of operations the stages memoize.
type Assistant interface {
	GenerateQuestions(ctx context.Context) ([]string, error)
	GenerateSQL(ctx context.Context, question string) (string, error)
	IsSQLValid(ctx context.Context, sql string) bool
	RunSQL(ctx context.Context, sql string) (models.QueryResult, error)
	ShouldGenerateChart(result models.QueryResult) bool
	GeneratePlotCode(ctx context.Context, question, sql string, result models.QueryResult) (string, error)
	RenderPlot(code string, result models.QueryResult) (*models.Figure, error)
	GenerateFollowups(ctx context.Context, question, sql string, result models.QueryResult) ([]string, error)
	GenerateSummary(ctx context.Context, question string, result models.QueryResult) (string, error)
}

type Factory func(ctx context.Context) (Assistant, error)

type Pipeline struct {
	holder  *Holder
	cache   *cache.Cache
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
}

// New returns a Pipeline over c. Recreating the Assistant flushes c.
// stageTimeout bounds every uncached stage call; <= 0 disables it.
func New(factory Factory, c *cache.Cache, ttl, stageTimeout time.Duration) *Pipeline {
	p := &Pipeline{cache: c, timeout: stageTimeout, now: time.Now}
	p.holder = NewHolder(factory, ttl, func() {
		c.Flush()
		observability.SetStageCacheEntries(0)
	})
	return p
}

func (p *Pipeline) Holder() *Holder {
	return p.holder
}

// Assistant returns the current shared Assistant, creating it if needed.
func (p *Pipeline) Assistant(ctx context.Context) (Assistant, error) {
	a, _, err := p.holder.GetOrCreate(ctx, p.now())
	return a, err
}

// run is the memoizing wrapper every stage goes through. Concurrent misses
// on one key share a single call; failures are never stored.
func run[T any](ctx context.Context, p *Pipeline, stage string, args []any, call func(context.Context, Assistant) (T, error)) (T, bool, error) {
	var zero T

	a, gen, err := p.holder.GetOrCreate(ctx, p.now())
	if err != nil {
		observability.RecordStageCall(stage, observability.OutcomeError)
		return zero, false, errs.WithStage(stage, err)
	}

	key := cache.Key(stage, args...)
	if entry, ok := p.cache.Get(key); ok && entry.Generation == gen {
		if v, ok := entry.Value.(T); ok {
			observability.RecordStageCall(stage, observability.OutcomeHit)
			slog.Debug("stage cache hit", "stage", stage, "generation", gen)
			return v, true, nil
		}
	}

	ch := p.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (value any, err error) {
		// The call outlives a caller that gives up; the stage timeout bounds it.
		stageCtx, cancel := p.stageContext(ctx)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("stage panicked: %v", r)
			}
		}()

		start := time.Now()
		v, err := call(stageCtx, a)
		observability.ObserveStageDuration(stage, time.Since(start))
		if err != nil {
			if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("stage timed out after %s: %w", p.timeout, err)
			}
			return nil, err
		}
		p.cache.Set(key, cache.Entry{Value: v, CreatedAt: p.now(), Generation: gen})
		observability.SetStageCacheEntries(p.cache.ItemCount())
		return v, nil
	})

	select {
	case <-ctx.Done():
		observability.RecordStageCall(stage, observability.OutcomeError)
		return zero, false, errs.WithStage(stage, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			observability.RecordStageCall(stage, observability.OutcomeError)
			slog.Warn("stage failed", "stage", stage, "error", res.Err)
			return zero, false, errs.WithStage(stage, res.Err)
		}
		observability.RecordStageCall(stage, observability.OutcomeMiss)
		return res.Val.(T), false, nil
	}
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if p.timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, p.timeout)
}

func (p *Pipeline) generateQuestions(ctx context.Context) ([]string, bool, error) {
	return run(ctx, p, StageGenerateQuestions, nil, func(ctx context.Context, a Assistant) ([]string, error) {
		return a.GenerateQuestions(ctx)
	})
}

func (p *Pipeline) generateSQL(ctx context.Context, question string) (string, bool, error) {
	return run(ctx, p, StageGenerateSQL, []any{question}, func(ctx context.Context, a Assistant) (string, error) {
		return a.GenerateSQL(ctx, question)
	})
}

func (p *Pipeline) isSQLValid(ctx context.Context, sql string) (bool, bool, error) {
	return run(ctx, p, StageIsSQLValid, []any{sql}, func(ctx context.Context, a Assistant) (bool, error) {
		return a.IsSQLValid(ctx, sql), nil
	})
}

func (p *Pipeline) runSQL(ctx context.Context, sql string) (models.QueryResult, bool, error) {
	return run(ctx, p, StageRunSQL, []any{sql}, func(ctx context.Context, a Assistant) (models.QueryResult, error) {
		return a.RunSQL(ctx, sql)
	})
}

func (p *Pipeline) shouldGenerateChart(ctx context.Context, question, sql string, result models.QueryResult) (bool, bool, error) {
	return run(ctx, p, StageShouldGenerateChart, []any{question, sql, result}, func(_ context.Context, a Assistant) (bool, error) {
		return a.ShouldGenerateChart(result), nil
	})
}

func (p *Pipeline) generatePlotCode(ctx context.Context, question, sql string, result models.QueryResult) (string, bool, error) {
	return run(ctx, p, StageGeneratePlotCode, []any{question, sql, result}, func(ctx context.Context, a Assistant) (string, error) {
		return a.GeneratePlotCode(ctx, question, sql, result)
	})
}

func (p *Pipeline) renderPlot(ctx context.Context, code string, result models.QueryResult) (*models.Figure, bool, error) {
	return run(ctx, p, StageRenderPlot, []any{code, result}, func(_ context.Context, a Assistant) (*models.Figure, error) {
		return a.RenderPlot(code, result)
	})
}

func (p *Pipeline) generateFollowups(ctx context.Context, question, sql string, result models.QueryResult) ([]string, bool, error) {
	return run(ctx, p, StageGenerateFollowups, []any{question, sql, result}, func(ctx context.Context, a Assistant) ([]string, error) {
		return a.GenerateFollowups(ctx, question, sql, result)
	})
}

func (p *Pipeline) generateSummary(ctx context.Context, question string, result models.QueryResult) (string, bool, error) {
	return run(ctx, p, StageGenerateSummary, []any{question, result}, func(ctx context.Context, a Assistant) (string, error) {
		return a.GenerateSummary(ctx, question, result)
	})
}

func (p *Pipeline) GenerateQuestions(ctx context.Context) ([]string, error) {
	v, _, err := p.generateQuestions(ctx)
	return v, err
}

func (p *Pipeline) GenerateSQL(ctx context.Context, question string) (string, error) {
	v, _, err := p.generateSQL(ctx, question)
	return v, err
}

func (p *Pipeline) IsSQLValid(ctx context.Context, sql string) (bool, error) {
	v, _, err := p.isSQLValid(ctx, sql)
	return v, err
}

func (p *Pipeline) RunSQL(ctx context.Context, sql string) (models.QueryResult, error) {
	v, _, err := p.runSQL(ctx, sql)
	return v, err
}

func (p *Pipeline) ShouldGenerateChart(ctx context.Context, question, sql string, result models.QueryResult) (bool, error) {
	v, _, err := p.shouldGenerateChart(ctx, question, sql, result)
	return v, err
}

func (p *Pipeline) GeneratePlotCode(ctx context.Context, question, sql string, result models.QueryResult) (string, error) {
	v, _, err := p.generatePlotCode(ctx, question, sql, result)
	return v, err
}

func (p *Pipeline) RenderPlot(ctx context.Context, code string, result models.QueryResult) (*models.Figure, error) {
	v, _, err := p.renderPlot(ctx, code, result)
	return v, err
}

func (p *Pipeline) GenerateFollowups(ctx context.Context, question, sql string, result models.QueryResult) ([]string, error) {
	v, _, err := p.generateFollowups(ctx, question, sql, result)
	return v, err
}

func (p *Pipeline) GenerateSummary(ctx context.Context, question string, result models.QueryResult) (string, error) {
	v, _, err := p.generateSummary(ctx, question, result)
	return v, err
}
