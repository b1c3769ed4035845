package training

import (
	"context"
	"errors"
	"strings"
	"testing"

	"querypilot/db"
	"querypilot/models"
)

type fakeStore struct {
	added   []models.TrainingItem
	removed []string
	failAt  int
}

func (f *fakeStore) Add(_ context.Context, item models.TrainingItem) (string, error) {
	if f.failAt > 0 && len(f.added)+1 == f.failAt {
		return "", errors.New("qdrant down")
	}
	f.added = append(f.added, item)
	return item.Kind + "-" + string(rune('a'+len(f.added)-1)), nil
}

func (f *fakeStore) Remove(_ context.Context, id string) (bool, error) {
	f.removed = append(f.removed, id)
	return strings.HasPrefix(id, "ddl-"), nil
}

func newLedger(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.NewInMemory()
	if err != nil {
		t.Fatalf("db.NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestPlanGroupsColumnsByTable(t *testing.T) {
	items := Plan([]models.ColumnInfo{
		{Catalog: "shop", Schema: "public", Table: "sales", Column: "region", DataType: "text"},
		{Catalog: "shop", Schema: "public", Table: "customers", Column: "id", DataType: "integer"},
		{Catalog: "shop", Schema: "public", Table: "sales", Column: "amount", DataType: "numeric"},
	})
	if len(items) != 2 {
		t.Fatalf("Plan() = %d items, want 2", len(items))
	}
	if !strings.Contains(items[0].Content, "customers table in the public schema of the shop database") {
		t.Fatalf("Plan()[0] = %q", items[0].Content)
	}
	sales := items[1].Content
	if items[1].Kind != models.TrainingKindDocumentation || !strings.Contains(sales, "region") || !strings.Contains(sales, "numeric") {
		t.Fatalf("Plan()[1] = %+v", items[1])
	}
}

func TestParseFile(t *testing.T) {
	f, err := ParseFile([]byte(`
ddl:
  - CREATE TABLE sales (region TEXT, amount NUMERIC)
documentation:
  - Amounts are in euros.
  - "  "
examples:
  - question: What are total sales by region?
    sql: SELECT region, SUM(amount) FROM sales GROUP BY region
`))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	items := f.Items()
	if len(items) != 3 {
		t.Fatalf("Items() = %+v", items)
	}
	if items[0].Kind != models.TrainingKindDDL || items[2].Kind != models.TrainingKindSQL || items[2].Question == "" {
		t.Fatalf("Items() = %+v", items)
	}
}

func TestParseFileRejectsIncompleteExample(t *testing.T) {
	if _, err := ParseFile([]byte("examples:\n  - question: only a question\n")); err == nil {
		t.Fatalf("ParseFile() expected error")
	}
}

func TestFromRequest(t *testing.T) {
	item, err := FromRequest(models.TrainRequest{Question: "How many?", SQL: "SELECT COUNT(*) FROM t"})
	if err != nil || item.Kind != models.TrainingKindSQL {
		t.Fatalf("FromRequest() = %+v, %v", item, err)
	}
	if _, err := FromRequest(models.TrainRequest{}); err == nil {
		t.Fatalf("FromRequest(empty) expected error")
	}
	if _, err := FromRequest(models.TrainRequest{DDL: "CREATE TABLE t (id INT)", Documentation: "doc"}); err == nil {
		t.Fatalf("FromRequest(two kinds) expected error")
	}
	if _, err := FromRequest(models.TrainRequest{Question: "How many?"}); err == nil {
		t.Fatalf("FromRequest(question only) expected error")
	}
}

func TestTrainRecordsLedger(t *testing.T) {
	store := &fakeStore{}
	ledger := newLedger(t)
	trainer := NewTrainer(store, ledger)

	trained, err := trainer.TrainAll(context.Background(), []models.TrainingItem{
		{Kind: models.TrainingKindDDL, Content: "CREATE TABLE t (id INT)"},
		{Kind: models.TrainingKindDocumentation, Content: "t holds ids"},
	})
	if err != nil {
		t.Fatalf("TrainAll() error = %v", err)
	}
	if len(trained) != 2 || trained[0].ID != "ddl-a" || trained[0].CreatedAt.IsZero() {
		t.Fatalf("TrainAll() = %+v", trained)
	}

	listed, err := trainer.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("List() = %+v", listed)
	}
}

func TestTrainAllStopsAtFailure(t *testing.T) {
	store := &fakeStore{failAt: 2}
	trainer := NewTrainer(store, newLedger(t))

	trained, err := trainer.TrainAll(context.Background(), []models.TrainingItem{
		{Kind: models.TrainingKindDDL, Content: "a"},
		{Kind: models.TrainingKindDDL, Content: "b"},
		{Kind: models.TrainingKindDDL, Content: "c"},
	})
	if err == nil || len(trained) != 1 {
		t.Fatalf("TrainAll() = %d items, %v; want 1 item and an error", len(trained), err)
	}
}

func TestRemove(t *testing.T) {
	store := &fakeStore{}
	ledger := newLedger(t)
	trainer := NewTrainer(store, ledger)

	item, err := trainer.Train(context.Background(), models.TrainingItem{Kind: models.TrainingKindDocumentation, Content: "doc"})
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	removed, err := trainer.Remove(context.Background(), item.ID)
	if err != nil || !removed {
		t.Fatalf("Remove(%q) = %v, %v", item.ID, removed, err)
	}
	removed, err = trainer.Remove(context.Background(), "documentation-zz")
	if err != nil || removed {
		t.Fatalf("Remove(unknown) = %v, %v", removed, err)
	}
}
