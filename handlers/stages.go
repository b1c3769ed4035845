package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"querypilot/models"
	"querypilot/validation"
)

// GenerateSQLHandler runs the generate_sql stage
// @Summary      Generate SQL
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.QuestionRequest  true  "Question"
// @Success      200      {object}  map[string]string  "Generated SQL"
// @Failure      400      {object}  map[string]string  "Invalid question"
// @Failure      502      {object}  map[string]string  "Text model failed"
// @Router       /api/stages/generate-sql [post]
func (h *Handlers) GenerateSQLHandler(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if err := validation.ValidateQuestion(req.Question); err != nil {
		badRequest(c, err.Error())
		return
	}
	sql, err := h.pipeline.GenerateSQL(c.Request.Context(), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sql": sql})
}

// IsSQLValidHandler runs the is_sql_valid stage
// @Summary      Check SQL
// @Description  Parses the statement without executing it. Only a single SELECT or WITH statement is valid. Lenient for sqlserver targets: T-SQL is not parsed, only the statement count and leading keyword are checked.
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.SQLRequest  true  "SQL"
// @Success      200      {object}  map[string]bool
// @Router       /api/stages/is-sql-valid [post]
func (h *Handlers) IsSQLValidHandler(c *gin.Context) {
	var req models.SQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	valid, err := h.pipeline.IsSQLValid(c.Request.Context(), req.SQL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// RunSQLHandler runs the run_sql stage
// @Summary      Run SQL
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.SQLRequest  true  "SQL"
// @Success      200      {object}  models.QueryResult
// @Failure      422      {object}  map[string]string  "Query failed"
// @Failure      503      {object}  map[string]string  "Database unreachable"
// @Router       /api/stages/run-sql [post]
func (h *Handlers) RunSQLHandler(c *gin.Context) {
	var req models.SQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	result, err := h.pipeline.RunSQL(c.Request.Context(), req.SQL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindStageData(c *gin.Context, needQuestion, needCode bool) (models.StageDataRequest, bool) {
	var req models.StageDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return req, false
	}
	if needQuestion && strings.TrimSpace(req.Question) == "" {
		badRequest(c, "question is required")
		return req, false
	}
	if needCode && strings.TrimSpace(req.Code) == "" {
		badRequest(c, "code is required")
		return req, false
	}
	if len(req.Result.Columns) == 0 {
		badRequest(c, "result with columns is required")
		return req, false
	}
	return req, true
}

// ShouldChartHandler runs the should_generate_chart stage
// @Summary      Decide whether to chart
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.StageDataRequest  true  "Question, SQL and result"
// @Success      200      {object}  map[string]bool
// @Router       /api/stages/should-chart [post]
func (h *Handlers) ShouldChartHandler(c *gin.Context) {
	req, ok := bindStageData(c, false, false)
	if !ok {
		return
	}
	should, err := h.pipeline.ShouldGenerateChart(c.Request.Context(), req.Question, req.SQL, req.Result)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"should_chart": should})
}

// PlotCodeHandler runs the generate_plot_code stage
// @Summary      Generate chart code
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.StageDataRequest  true  "Question, SQL and result"
// @Success      200      {object}  map[string]string  "JSON chart spec"
// @Failure      502      {object}  map[string]string  "Text model failed"
// @Router       /api/stages/plot-code [post]
func (h *Handlers) PlotCodeHandler(c *gin.Context) {
	req, ok := bindStageData(c, true, false)
	if !ok {
		return
	}
	code, err := h.pipeline.GeneratePlotCode(c.Request.Context(), req.Question, req.SQL, req.Result)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// RenderPlotHandler runs the render_plot stage
// @Summary      Render chart
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.StageDataRequest  true  "Chart code and result"
// @Success      200      {object}  models.Figure
// @Failure      422      {object}  map[string]string  "Chart could not be rendered"
// @Router       /api/stages/render-plot [post]
func (h *Handlers) RenderPlotHandler(c *gin.Context) {
	req, ok := bindStageData(c, false, true)
	if !ok {
		return
	}
	figure, err := h.pipeline.RenderPlot(c.Request.Context(), req.Code, req.Result)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, figure)
}

// FollowupsHandler runs the generate_followups stage
// @Summary      Generate follow-up questions
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.StageDataRequest  true  "Question, SQL and result"
// @Success      200      {object}  map[string][]string
// @Failure      502      {object}  map[string]string  "Text model failed"
// @Router       /api/stages/followups [post]
func (h *Handlers) FollowupsHandler(c *gin.Context) {
	req, ok := bindStageData(c, true, false)
	if !ok {
		return
	}
	followups, err := h.pipeline.GenerateFollowups(c.Request.Context(), req.Question, req.SQL, req.Result)
	if err != nil {
		writeError(c, err)
		return
	}
	if followups == nil {
		followups = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"followups": followups})
}

// SummaryHandler runs the generate_summary stage
// @Summary      Summarize a result
// @Tags         Stages
// @Accept       json
// @Produce      json
// @Param        request  body      models.StageDataRequest  true  "Question and result"
// @Success      200      {object}  map[string]string
// @Failure      502      {object}  map[string]string  "Text model failed"
// @Router       /api/stages/summary [post]
func (h *Handlers) SummaryHandler(c *gin.Context) {
	req, ok := bindStageData(c, true, false)
	if !ok {
		return
	}
	summary, err := h.pipeline.GenerateSummary(c.Request.Context(), req.Question, req.Result)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
