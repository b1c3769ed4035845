package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"querypilot/db"
	"querypilot/errs"
	"querypilot/models"
	"querypilot/pipeline"
	"querypilot/service"
	"querypilot/training"
)

// @title           querypilot API
// @version         1.0
// @description     Ask natural-language questions about a SQL database. Each answer is built by memoized stages: SQL generation, validation, execution, charting, follow-ups and summary.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:9090
// @BasePath  /

// @schemes   http https

// Pinger reports whether the target database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// trainable is implemented by assistants that expose their vector store and
// the training plan built from the columns catalog.
type trainable interface {
	Corpus() (training.VectorStore, bool)
	TrainingPlan() []models.TrainingItem
}

type Handlers struct {
	pipeline *pipeline.Pipeline
	db       *db.DB
	results  *service.ResultsStorage
	pinger   Pinger
}

func New(p *pipeline.Pipeline, database *db.DB, results *service.ResultsStorage, pinger Pinger) *Handlers {
	return &Handlers{
		pipeline: p,
		db:       database,
		results:  results,
		pinger:   pinger,
	}
}

// Register mounts every API route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.HealthHandler)

	api := r.Group("/api")
	api.POST("/ask", h.AskHandler)
	api.GET("/ask/stream", h.AskStreamHandler)
	api.GET("/questions", h.QuestionsHandler)
	api.GET("/history", h.HistoryHandler)

	stages := api.Group("/stages")
	stages.POST("/generate-sql", h.GenerateSQLHandler)
	stages.POST("/is-sql-valid", h.IsSQLValidHandler)
	stages.POST("/run-sql", h.RunSQLHandler)
	stages.POST("/should-chart", h.ShouldChartHandler)
	stages.POST("/plot-code", h.PlotCodeHandler)
	stages.POST("/render-plot", h.RenderPlotHandler)
	stages.POST("/followups", h.FollowupsHandler)
	stages.POST("/summary", h.SummaryHandler)

	api.POST("/sql/execute", h.ExecuteSQLHandler)

	api.GET("/results/files", h.ListResultFilesHandler)
	api.GET("/results/file/:filename", h.GetResultFileHandler)
	api.POST("/results/figures", h.SaveFigureHandler)
	api.GET("/results/figures/:filename", h.GetFigureHandler)

	api.GET("/train", h.ListTrainingHandler)
	api.POST("/train", h.TrainHandler)
	api.POST("/train/plan", h.TrainPlanHandler)
	api.DELETE("/train/:id", h.DeleteTrainingHandler)
}

// writeError answers with the status code matching the error kind.
func writeError(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
