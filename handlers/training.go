package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"querypilot/errs"
	"querypilot/models"
	"querypilot/training"
)

// trainer builds a Trainer over the current assistant's vector store.
func (h *Handlers) trainer(c *gin.Context) (*training.Trainer, trainable, bool) {
	a, err := h.pipeline.Assistant(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil, nil, false
	}
	t, ok := a.(trainable)
	if !ok {
		writeError(c, errs.Configuration("assistant does not support training", nil))
		return nil, nil, false
	}
	store, ok := t.Corpus()
	if !ok {
		writeError(c, errs.Configuration("assistant has no writable vector store", nil))
		return nil, nil, false
	}
	return training.NewTrainer(store, h.db), t, true
}

// ListTrainingHandler lists trained items
// @Summary      List training data
// @Tags         Training
// @Produce      json
// @Success      200  {object}  map[string][]models.TrainingItem
// @Router       /api/train [get]
func (h *Handlers) ListTrainingHandler(c *gin.Context) {
	items, err := h.db.GetTrainingItems()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []models.TrainingItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// TrainHandler adds one training item
// @Summary      Train
// @Description  Adds DDL, documentation or a question/SQL pair to the retrieval corpus. Exactly one kind per request.
// @Tags         Training
// @Accept       json
// @Produce      json
// @Param        request  body      models.TrainRequest  true  "Training item"
// @Success      201      {object}  models.TrainingItem
// @Failure      400      {object}  map[string]string  "Invalid item"
// @Failure      503      {object}  map[string]string  "Vector store unavailable"
// @Router       /api/train [post]
func (h *Handlers) TrainHandler(c *gin.Context) {
	var req models.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	item, err := training.FromRequest(req)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	trainer, _, ok := h.trainer(c)
	if !ok {
		return
	}
	trained, err := trainer.Train(c.Request.Context(), item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trained)
}

// TrainPlanHandler trains the plan built from the columns catalog
// @Summary      Train from the columns catalog
// @Description  Adds one documentation item per table, describing its columns.
// @Tags         Training
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string  "Vector store unavailable"
// @Router       /api/train/plan [post]
func (h *Handlers) TrainPlanHandler(c *gin.Context) {
	trainer, t, ok := h.trainer(c)
	if !ok {
		return
	}
	plan := t.TrainingPlan()
	trained, err := trainer.TrainAll(c.Request.Context(), plan)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error(), "trained": len(trained), "planned": len(plan)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trained": len(trained), "planned": len(plan), "items": trained})
}

// DeleteTrainingHandler removes a trained item
// @Summary      Remove training data
// @Tags         Training
// @Produce      json
// @Param        id   path      string  true  "Training item id"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string  "Unknown id"
// @Router       /api/train/{id} [delete]
func (h *Handlers) DeleteTrainingHandler(c *gin.Context) {
	id := c.Param("id")
	trainer, _, ok := h.trainer(c)
	if !ok {
		return
	}
	removed, err := trainer.Remove(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "training item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "training item removed", "id": id})
}
