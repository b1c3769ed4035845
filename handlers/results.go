package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"querypilot/models"
	"querypilot/service"
	"querypilot/storage"
)

// ListResultFilesHandler lists all result files
// @Summary      List result files
// @Description  Get a list of all saved SQL query result files (JSON/CSV/Parquet)
// @Tags         Results
// @Produce      json
// @Success      200  {object}  map[string][]models.ResultFileInfo  "List of result files"
// @Failure      500  {object}  map[string]string                   "Failed to list files"
// @Router       /api/results/files [get]
func (h *Handlers) ListResultFilesHandler(c *gin.Context) {
	files, err := h.results.ListResultFiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to list files: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// GetResultFileHandler retrieves a specific result file
// @Summary      Get result file
// @Description  Get the complete content of a specific result file by filename
// @Tags         Results
// @Produce      json
// @Param        filename  path      string  true  "Result file name"
// @Success      200       {object}  models.ResultFile  "Result file content"
// @Failure      400       {object}  map[string]string   "Unsupported file format"
// @Failure      404       {object}  map[string]string   "File not found"
// @Router       /api/results/file/{filename} [get]
func (h *Handlers) GetResultFileHandler(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		badRequest(c, "Filename is required")
		return
	}

	resultFile, err := h.results.GetResultFile(c.Request.Context(), filename)
	if err != nil {
		writeStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, resultFile)
}

// SaveFigureHandler stores a rendered figure
// @Summary      Save figure
// @Tags         Results
// @Accept       json
// @Produce      json
// @Param        figure  body      models.Figure  true  "Rendered figure"
// @Success      201     {object}  map[string]string  "Saved file name"
// @Failure      400     {object}  map[string]string  "Invalid figure"
// @Router       /api/results/figures [post]
func (h *Handlers) SaveFigureHandler(c *gin.Context) {
	var figure models.Figure
	if err := c.ShouldBindJSON(&figure); err != nil || len(figure.Data) == 0 {
		badRequest(c, "A figure with data is required")
		return
	}
	filename, err := h.results.SaveFigure(c.Request.Context(), &figure)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"filename": filename})
}

// GetFigureHandler reads a saved figure
// @Summary      Get figure
// @Tags         Results
// @Produce      json
// @Param        filename  path      string  true  "Figure file name"
// @Success      200       {object}  models.Figure
// @Failure      404       {object}  map[string]string  "File not found"
// @Router       /api/results/figures/{filename} [get]
func (h *Handlers) GetFigureHandler(c *gin.Context) {
	figure, err := h.results.GetFigure(c.Request.Context(), c.Param("filename"))
	if err != nil {
		writeStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, figure)
}

func writeStorageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("File not found: %v", err)})
	case errors.Is(err, service.ErrUnsupportedFormat):
		badRequest(c, err.Error())
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
