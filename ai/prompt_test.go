package ai

import (
	"reflect"
	"strings"
	"testing"

	"querypilot/models"
)

func TestExtractSQL(t *testing.T) {
	cases := map[string]string{
		"Here you go:\n```sql\nSELECT region, SUM(amount) FROM sales GROUP BY region\n```": "SELECT region, SUM(amount) FROM sales GROUP BY region",
		"The answer is SELECT * FROM t WHERE x = 1; hope it helps":                         "SELECT * FROM t WHERE x = 1;",
		"WITH totals AS (SELECT 1 AS n) SELECT n FROM totals;":                              "WITH totals AS (SELECT 1 AS n) SELECT n FROM totals;",
		"CREATE TABLE tmp AS SELECT 1;":                                                     "CREATE TABLE tmp AS SELECT 1;",
		"```\nSELECT 2\n```":                                                                "SELECT 2",
		"  I cannot answer that from the given context.  ":                                  "I cannot answer that from the given context.",
	}
	for response, want := range cases {
		if got := ExtractSQL(response); got != want {
			t.Fatalf("ExtractSQL(%q) = %q, want %q", response, got, want)
		}
	}
}

func TestIsIntermediateSQL(t *testing.T) {
	if !IsIntermediateSQL("-- intermediate_sql\nSELECT DISTINCT region FROM sales") {
		t.Fatalf("IsIntermediateSQL() = false, want true")
	}
	if IsIntermediateSQL("SELECT 1") {
		t.Fatalf("IsIntermediateSQL() = true, want false")
	}
}

func TestParseFollowups(t *testing.T) {
	response := "1. What are sales by month?\n2) Which region grew fastest?\n\n- Top 5 products?\n* Average order size?"
	got := ParseFollowups(response, 3)
	want := []string{"What are sales by month?", "Which region grew fastest?", "Top 5 products?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFollowups() = %#v, want %#v", got, want)
	}
	if got := ParseFollowups("   \n", 5); len(got) != 0 {
		t.Fatalf("ParseFollowups(blank) = %#v, want empty", got)
	}
}

func TestBuildSQLPromptIncludesContext(t *testing.T) {
	messages := BuildSQLPrompt(SQLPromptInput{
		Dialect:       "PostgreSQL",
		Question:      "What are total sales by region?",
		Examples:      []QuestionSQL{{Question: "How many orders?", SQL: "SELECT COUNT(*) FROM orders"}},
		DDL:           []string{"CREATE TABLE sales (region TEXT, amount NUMERIC)"},
		Documentation: []string{"amount is in USD"},
	})

	if len(messages) != 4 {
		t.Fatalf("len(messages) = %d, want 4", len(messages))
	}
	system := messages[0].Content
	for _, want := range []string{"PostgreSQL expert", "CREATE TABLE sales", "amount is in USD", "intermediate_sql"} {
		if !strings.Contains(system, want) {
			t.Fatalf("system message missing %q:\n%s", want, system)
		}
	}
	if messages[2].Role != "assistant" || messages[3].Content != "What are total sales by region?" {
		t.Fatalf("messages = %#v", messages)
	}
}

func TestBuildSQLPromptRespectsBudget(t *testing.T) {
	huge := strings.Repeat("x", promptCharBudget)
	messages := BuildSQLPrompt(SQLPromptInput{Question: "q", DDL: []string{huge, "CREATE TABLE small (id INT)"}})
	if strings.Contains(messages[0].Content, huge) {
		t.Fatalf("oversized DDL was included")
	}
	if !strings.Contains(messages[0].Content, "CREATE TABLE small") {
		t.Fatalf("small DDL missing")
	}
}

func TestRenderPromptSkipsEmptyMessages(t *testing.T) {
	got := RenderPrompt([]Message{SystemMessage("context"), UserMessage("  "), UserMessage("question")})
	want := "system: context\n\nuser: question"
	if got != want {
		t.Fatalf("RenderPrompt() = %q, want %q", got, want)
	}
	if RenderPrompt(nil) != "" {
		t.Fatalf("RenderPrompt(nil) should be empty")
	}
}

func TestBuildFollowupPromptShowsResult(t *testing.T) {
	result := models.QueryResult{Columns: []string{"region", "total"}, Rows: [][]any{{"east", 10}, {"west", 20}}}
	messages := BuildFollowupPrompt("sales by region", "SELECT ...", result, 4)
	if !strings.Contains(messages[0].Content, "west") {
		t.Fatalf("result preview missing: %s", messages[0].Content)
	}
	if !strings.Contains(messages[1].Content, "4 follow-up questions") {
		t.Fatalf("count missing: %s", messages[1].Content)
	}
}
