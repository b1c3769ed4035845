package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"querypilot/models"
	"querypilot/service"
)

// ExecuteSQLHandler executes a SQL query against the target database
// @Summary      Execute SQL query
// @Description  Execute a SQL query through the run_sql stage and optionally save the result as JSON, CSV or Parquet
// @Tags         SQL Execution
// @Accept       json
// @Produce      json
// @Param        request  body      models.ExecuteSQLRequest  true  "SQL execution request"
// @Success      200      {object}  map[string]interface{}  "Query result and saved file name"
// @Failure      400      {object}  map[string]string  "Invalid request"
// @Failure      422      {object}  map[string]string  "Query failed"
// @Failure      503      {object}  map[string]string  "Database unreachable"
// @Router       /api/sql/execute [post]
func (h *Handlers) ExecuteSQLHandler(c *gin.Context) {
	var req models.ExecuteSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = service.FormatJSON // Default to JSON
	}
	if req.Save && !service.IsSupportedFormat(format) {
		badRequest(c, "format must be json, csv or parquet")
		return
	}

	result, err := h.pipeline.RunSQL(c.Request.Context(), req.SQL)
	if err != nil {
		writeError(c, err)
		return
	}

	response := gin.H{"result": result}
	if req.Save {
		filename, err := h.results.SaveResult(c.Request.Context(), result, req.SQL, format)
		if err != nil {
			slog.Error("failed to save result", "format", format, "error", err)
			response["save_error"] = err.Error()
		} else {
			response["file"] = filename
		}
	}
	c.JSON(http.StatusOK, response)
}
