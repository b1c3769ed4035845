package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"querypilot/cache"
	"querypilot/db"
	"querypilot/errs"
	"querypilot/models"
	"querypilot/pipeline"
	"querypilot/service"
	"querypilot/storage"
	"querypilot/training"
)

type fakeCorpus struct {
	mu    sync.Mutex
	items map[string]models.TrainingItem
}

func (f *fakeCorpus) Add(_ context.Context, item models.TrainingItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := item.Kind + "-" + item.Content + item.Question
	f.items[id] = item
	return id, nil
}

func (f *fakeCorpus) Remove(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	delete(f.items, id)
	return ok, nil
}

type stubAssistant struct {
	corpus *fakeCorpus
	runErr error
}

func salesResult() models.QueryResult {
	return models.QueryResult{
		Columns: []string{"region", "total"},
		Rows:    [][]any{{"east", 30}, {"west", 40}},
	}
}

func (s *stubAssistant) GenerateQuestions(context.Context) ([]string, error) {
	return []string{"What are total sales by region?"}, nil
}

func (s *stubAssistant) GenerateSQL(_ context.Context, question string) (string, error) {
	return "SELECT region, SUM(amount) AS total FROM sales GROUP BY region", nil
}

func (s *stubAssistant) IsSQLValid(_ context.Context, sql string) bool {
	return strings.HasPrefix(sql, "SELECT")
}

func (s *stubAssistant) RunSQL(context.Context, string) (models.QueryResult, error) {
	if s.runErr != nil {
		return models.QueryResult{}, s.runErr
	}
	return salesResult(), nil
}

func (s *stubAssistant) ShouldGenerateChart(result models.QueryResult) bool {
	return result.RowCount() > 1
}

func (s *stubAssistant) GeneratePlotCode(context.Context, string, string, models.QueryResult) (string, error) {
	return `{"type":"bar","x":"region","y":["total"]}`, nil
}

func (s *stubAssistant) RenderPlot(code string, result models.QueryResult) (*models.Figure, error) {
	if !strings.HasPrefix(code, "{") {
		return nil, errs.Render("chart description is not JSON", nil)
	}
	return &models.Figure{Data: []models.Trace{{Type: "bar", X: []any{"east", "west"}, Y: []any{30, 40}}}}, nil
}

func (s *stubAssistant) GenerateFollowups(context.Context, string, string, models.QueryResult) ([]string, error) {
	return []string{"Which region grew fastest?"}, nil
}

func (s *stubAssistant) GenerateSummary(context.Context, string, models.QueryResult) (string, error) {
	return "West leads with 40.", nil
}

func (s *stubAssistant) Corpus() (training.VectorStore, bool) {
	return s.corpus, true
}

func (s *stubAssistant) TrainingPlan() []models.TrainingItem {
	return []models.TrainingItem{
		{Kind: models.TrainingKindDocumentation, Content: "The following columns are in the sales table"},
		{Kind: models.TrainingKindDocumentation, Content: "The following columns are in the regions table"},
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router    *gin.Engine
	assistant *stubAssistant
	corpus    *fakeCorpus
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	corpus := &fakeCorpus{items: map[string]models.TrainingItem{}}
	a := &stubAssistant{corpus: corpus}
	factory := func(context.Context) (pipeline.Assistant, error) { return a, nil }
	p := pipeline.New(factory, cache.New(), time.Hour, 5*time.Second)

	r := gin.New()
	New(p, database, service.NewResultsStorage(store), pinger).Register(r)
	return &testServer{router: r, assistant: a, corpus: corpus}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", w.Body.String(), err)
	}
	return out
}

func TestAskHandlerRunsEveryStage(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/ask", models.AskRequest{Question: "What are total sales by region?"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/ask status = %d, body %s", w.Code, w.Body.String())
	}
	answer := decode[models.Answer](t, w)
	if !answer.SQLValid || answer.Result == nil || answer.Result.RowCount() != 2 {
		t.Fatalf("answer = %+v, want valid SQL and two rows", answer)
	}
	if answer.Figure == nil || len(answer.Followups) != 1 || answer.Summary == "" {
		t.Fatalf("answer = %+v, want figure, followups and summary", answer)
	}
	if len(answer.Errors) != 0 {
		t.Fatalf("answer.Errors = %v, want none", answer.Errors)
	}

	w = s.do(t, http.MethodGet, "/api/history", nil)
	history := decode[map[string][]models.HistoryEntry](t, w)["history"]
	if len(history) != 1 || history[0].SQL != answer.SQL {
		t.Fatalf("history = %+v, want the asked question", history)
	}
}

func TestAskHandlerSkipsOptionalStages(t *testing.T) {
	s := newTestServer(t, nil)
	off := false

	w := s.do(t, http.MethodPost, "/api/ask", models.AskRequest{
		Question:         "What are total sales by region?",
		IncludeChart:     &off,
		IncludeFollowups: &off,
	})
	answer := decode[models.Answer](t, w)
	if answer.Figure != nil || answer.PlotCode != "" || len(answer.Followups) != 0 {
		t.Fatalf("answer = %+v, want no chart and no followups", answer)
	}
	if answer.Summary == "" {
		t.Fatal("answer.Summary is empty, want summary")
	}
}

func TestAskHandlerRejectsInvalidQuestion(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/ask", models.AskRequest{Question: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRunSQLHandlerMapsErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "query", err: errs.Query("no such table: orders", nil), want: http.StatusUnprocessableEntity},
		{name: "connection", err: errs.Connection("dial tcp: refused", nil), want: http.StatusServiceUnavailable},
		{name: "untyped", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.assistant.runErr = tt.err

			w := s.do(t, http.MethodPost, "/api/stages/run-sql", models.SQLRequest{SQL: "SELECT * FROM orders"})
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestStageHandlers(t *testing.T) {
	s := newTestServer(t, nil)
	data := models.StageDataRequest{
		Question: "What are total sales by region?",
		SQL:      "SELECT region, SUM(amount) AS total FROM sales GROUP BY region",
		Result:   salesResult(),
	}

	w := s.do(t, http.MethodPost, "/api/stages/should-chart", data)
	if got := decode[map[string]bool](t, w)["should_chart"]; !got {
		t.Fatalf("should-chart body = %s, want true", w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/stages/summary", data)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "West leads") {
		t.Fatalf("summary status = %d body %s", w.Code, w.Body.String())
	}

	data.Code = "not a chart"
	w = s.do(t, http.MethodPost, "/api/stages/render-plot", data)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("render-plot status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	w = s.do(t, http.MethodPost, "/api/stages/summary", models.StageDataRequest{Question: "q"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("summary without result status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestExecuteSQLSavesAndServesResult(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/sql/execute", models.ExecuteSQLRequest{
		SQL:    "SELECT region, SUM(amount) AS total FROM sales GROUP BY region",
		Save:   true,
		Format: "csv",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("execute status = %d body %s", w.Code, w.Body.String())
	}
	filename, _ := decode[map[string]any](t, w)["file"].(string)
	if !strings.HasSuffix(filename, ".csv") {
		t.Fatalf("file = %q, want a .csv name", filename)
	}

	w = s.do(t, http.MethodGet, "/api/results/files", nil)
	files := decode[map[string][]models.ResultFileInfo](t, w)["files"]
	if len(files) != 1 {
		t.Fatalf("files = %+v, want one", files)
	}

	w = s.do(t, http.MethodGet, "/api/results/file/"+filename, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get file status = %d body %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/results/file/missing.json", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d, want %d", w.Code, http.StatusNotFound)
	}
	w = s.do(t, http.MethodGet, "/api/results/file/notes.txt", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported file status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestExecuteSQLRejectsUnknownFormat(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/sql/execute", models.ExecuteSQLRequest{SQL: "SELECT 1", Save: true, Format: "xlsx"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFigureRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/results/figures", models.Figure{
		Data:   []models.Trace{{Type: "pie", Labels: []any{"east"}, Values: []any{1}}},
		Layout: models.Layout{Title: "Share"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d body %s", w.Code, w.Body.String())
	}
	filename := decode[map[string]string](t, w)["filename"]

	w = s.do(t, http.MethodGet, "/api/results/figures/"+filename, nil)
	figure := decode[models.Figure](t, w)
	if figure.Layout.Title != "Share" || len(figure.Data) != 1 {
		t.Fatalf("figure = %+v, want saved figure", figure)
	}

	w = s.do(t, http.MethodPost, "/api/results/figures", models.Figure{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty figure status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTrainingLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/train", models.TrainRequest{
		Question: "How many orders?",
		SQL:      "SELECT COUNT(*) FROM orders",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("train status = %d body %s", w.Code, w.Body.String())
	}
	item := decode[models.TrainingItem](t, w)
	if item.ID == "" || item.Kind != models.TrainingKindSQL {
		t.Fatalf("item = %+v, want sql item with id", item)
	}

	w = s.do(t, http.MethodGet, "/api/train", nil)
	if items := decode[map[string][]models.TrainingItem](t, w)["items"]; len(items) != 1 {
		t.Fatalf("items = %+v, want one", items)
	}

	w = s.do(t, http.MethodDelete, "/api/train/"+item.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d body %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodDelete, "/api/train/"+item.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestTrainRejectsMixedItem(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/train", models.TrainRequest{DDL: "CREATE TABLE t (id INT)", Documentation: "t holds ids"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(s.corpus.items) != 0 {
		t.Fatalf("corpus = %v, want nothing trained", s.corpus.items)
	}
}

func TestTrainPlanHandler(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/train/plan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	body := decode[map[string]any](t, w)
	if body["trained"] != float64(2) || body["planned"] != float64(2) {
		t.Fatalf("body = %v, want 2 of 2 trained", body)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, stubPinger{})
	w := s.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := decode[map[string]any](t, w)["assistant"]; got != "not_created" {
		t.Fatalf("assistant = %v, want not_created before first use", got)
	}

	s = newTestServer(t, stubPinger{err: errors.New("connection refused")})
	w = s.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestQuestionsHandler(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/questions", nil)
	questions := decode[map[string][]string](t, w)["questions"]
	if len(questions) != 1 {
		t.Fatalf("questions = %v, want one", questions)
	}
}
