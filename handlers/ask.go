package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"querypilot/models"
	"querypilot/pipeline"
	"querypilot/validation"
)

// AskHandler answers a question end to end
// @Summary      Ask a question
// @Description  Runs every stage for the question. Stage failures are reported in errors; outputs of earlier stages are still returned.
// @Tags         Ask
// @Accept       json
// @Produce      json
// @Param        request  body      models.AskRequest  true  "Question and optional stage switches"
// @Success      200      {object}  models.Answer
// @Failure      400      {object}  map[string]string  "Invalid question"
// @Router       /api/ask [post]
func (h *Handlers) AskHandler(c *gin.Context) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if err := validation.ValidateQuestion(req.Question); err != nil {
		badRequest(c, err.Error())
		return
	}

	answer := h.pipeline.Ask(c.Request.Context(), req.Question, askOptions(req), nil)
	h.recordHistory(answer)
	c.JSON(http.StatusOK, answer)
}

func askOptions(req models.AskRequest) pipeline.AskOptions {
	opts := pipeline.DefaultAskOptions()
	if req.IncludeChart != nil {
		opts.Chart = *req.IncludeChart
	}
	if req.IncludeFollowups != nil {
		opts.Followups = *req.IncludeFollowups
	}
	if req.IncludeSummary != nil {
		opts.Summary = *req.IncludeSummary
	}
	return opts
}

func (h *Handlers) recordHistory(answer models.Answer) {
	entry := models.HistoryEntry{Question: answer.Question, SQL: answer.SQL, AskedAt: time.Now().UTC()}
	if len(answer.Errors) > 0 {
		stages := make([]string, 0, len(answer.Errors))
		for stage := range answer.Errors {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		entry.Error = stages[0] + ": " + answer.Errors[stages[0]]
	}
	if err := h.db.StoreHistory(entry); err != nil {
		slog.Warn("failed to store history", "error", err)
	}
}

// streamMessage is one websocket frame: a stage event, the final answer or an error.
type streamMessage struct {
	Type   string             `json:"type"`
	Event  *models.StageEvent `json:"event,omitempty"`
	Answer *models.Answer     `json:"answer,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// AskStreamHandler streams stage events over a websocket
// @Summary      Ask a question and stream stage events
// @Description  Upgrades to a websocket, sends one {"type":"stage"} frame per finished stage and a final {"type":"answer"} frame.
// @Tags         Ask
// @Param        question           query  string  true   "Question"
// @Param        include_chart      query  bool    false  "Run the chart stages (default true)"
// @Param        include_followups  query  bool    false  "Generate follow-up questions (default true)"
// @Param        include_summary    query  bool    false  "Generate a summary (default true)"
// @Success      101
// @Failure      400  {object}  map[string]string  "Invalid question"
// @Router       /api/ask/stream [get]
func (h *Handlers) AskStreamHandler(c *gin.Context) {
	req := models.AskRequest{Question: c.Query("question")}
	if err := validation.ValidateQuestion(req.Question); err != nil {
		badRequest(c, err.Error())
		return
	}
	for key, target := range map[string]**bool{
		"include_chart":     &req.IncludeChart,
		"include_followups": &req.IncludeFollowups,
		"include_summary":   &req.IncludeSummary,
	} {
		if v, ok := c.GetQuery(key); ok {
			b := v != "false" && v != "0"
			*target = &b
		}
	}

	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "answer complete"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	// Reads are never expected; CloseRead cancels ctx when the client goes away.
	ctx := ws.CloseRead(c.Request.Context())

	answer := h.pipeline.Ask(ctx, req.Question, askOptions(req), func(event models.StageEvent) {
		if err := writeFrame(ctx, ws, streamMessage{Type: "stage", Event: &event}); err != nil {
			slog.Debug("failed to send stage event", "stage", event.Stage, "error", err)
		}
	})
	h.recordHistory(answer)

	if err := writeFrame(ctx, ws, streamMessage{Type: "answer", Answer: &answer}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("failed to send answer", "error", err)
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, msg streamMessage) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}

// QuestionsHandler suggests questions
// @Summary      Suggested questions
// @Description  Questions sampled from the trained question/SQL pairs.
// @Tags         Ask
// @Produce      json
// @Success      200  {object}  map[string][]string
// @Failure      503  {object}  map[string]string  "Vector store unavailable"
// @Router       /api/questions [get]
func (h *Handlers) QuestionsHandler(c *gin.Context) {
	questions, err := h.pipeline.GenerateQuestions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if questions == nil {
		questions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
