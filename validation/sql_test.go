package validation

import (
	"context"
	"reflect"
	"testing"
)

func newTestValidator(t *testing.T, lenient bool) *SQLValidator {
	t.Helper()
	v, err := NewSQLValidator(lenient)
	if err != nil {
		t.Fatalf("NewSQLValidator() error = %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestIsSQLValid(t *testing.T) {
	v := newTestValidator(t, false)
	ctx := context.Background()

	valid := []string{
		"SELECT 1",
		"SELECT 1;",
		"SELECT region, SUM(amount) FROM sales GROUP BY region",
		"WITH t AS (SELECT 1 AS n) SELECT n FROM t",
		"-- intermediate_sql\nSELECT DISTINCT region FROM sales",
	}
	for _, sql := range valid {
		if !v.IsSQLValid(ctx, sql) {
			t.Fatalf("IsSQLValid(%q) = false, want true", sql)
		}
	}

	invalid := []string{
		"SELEC * FROM x",
		"",
		"   ",
		"DROP TABLE sales",
		"DELETE FROM sales",
		"SELECT 1; SELECT 2",
		"I could not answer that question.",
	}
	for _, sql := range invalid {
		if v.IsSQLValid(ctx, sql) {
			t.Fatalf("IsSQLValid(%q) = true, want false", sql)
		}
	}
}

func TestIsSQLValidLenientAcceptsTSQL(t *testing.T) {
	v := newTestValidator(t, true)
	ctx := context.Background()

	if !v.IsSQLValid(ctx, "SELECT TOP 10 [region] FROM [dbo].[sales]") {
		t.Fatalf("IsSQLValid(T-SQL) = false, want true")
	}
	if v.IsSQLValid(ctx, "UPDATE sales SET amount = 0") {
		t.Fatalf("IsSQLValid(UPDATE) = true, want false")
	}
	if v.IsSQLValid(ctx, "SELECT 1; SELECT 2") {
		t.Fatalf("IsSQLValid(two statements) = true, want false")
	}
	// Lenient mode does not parse: a malformed SELECT still passes.
	if !v.IsSQLValid(ctx, "SELECT FROM") {
		t.Fatalf("IsSQLValid(SELECT FROM) = false, want true in lenient mode")
	}
}

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("SELECT ';' AS s; -- trailing; comment\n/* a; b */ SELECT 2;")
	want := []string{"SELECT ';' AS s", "-- trailing; comment\n/* a; b */ SELECT 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitStatements() = %#v, want %#v", got, want)
	}
}
