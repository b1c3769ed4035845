package chart

import (
	"testing"

	"querypilot/errs"
	"querypilot/models"
)

func salesByRegion() models.QueryResult {
	return models.QueryResult{
		Columns: []string{"region", "total", "orders"},
		Rows: [][]any{
			{"north", int64(120), int64(4)},
			{"south", 80.5, int64(2)},
			{"west", "45", int64(0)},
		},
	}
}

func TestShouldGenerate(t *testing.T) {
	if !ShouldGenerate(salesByRegion()) {
		t.Fatalf("ShouldGenerate(multi-row numeric) = false")
	}

	single := models.QueryResult{Columns: []string{"total"}, Rows: [][]any{{int64(1)}}}
	if ShouldGenerate(single) {
		t.Fatalf("ShouldGenerate(single row) = true")
	}

	text := models.QueryResult{Columns: []string{"name"}, Rows: [][]any{{"a"}, {"b"}}}
	if ShouldGenerate(text) {
		t.Fatalf("ShouldGenerate(text only) = true")
	}
}

func TestParseToleratesFenceAndDefaultsType(t *testing.T) {
	spec, err := Parse("Here you go:\n```json\n{\"title\": \"Sales\", \"x\": \"region\", \"y\": [\"total\"]}\n```")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if spec.Type != TypeBar || spec.X != "region" || len(spec.Y) != 1 {
		t.Fatalf("Parse() = %+v", spec)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, code := range []string{"", "plt.show()", `{"type": "sankey", "x": "a"}`, `{"type": }`} {
		if _, err := Parse(code); !errs.IsKind(err, errs.KindRender) {
			t.Fatalf("Parse(%q) error = %v, want render error", code, err)
		}
	}
}

func TestRenderBar(t *testing.T) {
	fig, err := Render(Spec{Type: TypeBar, Title: "Sales", X: "region", Y: []string{"total"}}, salesByRegion())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(fig.Data) != 1 {
		t.Fatalf("Render() traces = %d, want 1", len(fig.Data))
	}
	trace := fig.Data[0]
	if trace.Type != "bar" || len(trace.X) != 3 || trace.Y[2] != 45.0 {
		t.Fatalf("Render() trace = %+v", trace)
	}
	if fig.Layout.Title != "Sales" || fig.Layout.XAxis.Title != "region" || fig.Layout.YAxis.Title != "total" {
		t.Fatalf("Render() layout = %+v", fig.Layout)
	}
}

func TestRenderLineUsesScatterLines(t *testing.T) {
	fig, err := Render(Spec{Type: TypeLine, X: "region", Y: []string{"total", "orders"}}, salesByRegion())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(fig.Data) != 2 || fig.Data[0].Type != "scatter" || fig.Data[0].Mode != "lines" || fig.Data[1].Name != "orders" {
		t.Fatalf("Render() data = %+v", fig.Data)
	}
}

func TestRenderPie(t *testing.T) {
	fig, err := Render(Spec{Type: TypePie, X: "region", Y: []string{"total"}}, salesByRegion())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if fig.Data[0].Type != "pie" || len(fig.Data[0].Labels) != 3 || fig.Data[0].Values[0] != 120.0 {
		t.Fatalf("Render() pie = %+v", fig.Data[0])
	}
	if fig.Layout.XAxis != nil {
		t.Fatalf("Render() pie layout has axes: %+v", fig.Layout)
	}
}

func TestRenderColorGroups(t *testing.T) {
	result := models.QueryResult{
		Columns: []string{"month", "region", "total"},
		Rows: [][]any{
			{"jan", "north", 1}, {"jan", "south", 2},
			{"feb", "north", 3}, {"feb", "south", 4},
		},
	}
	fig, err := Render(Spec{Type: TypeBar, X: "month", Y: []string{"total"}, Color: "region"}, result)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(fig.Data) != 2 || fig.Data[0].Name != "north" || fig.Data[1].Name != "south" || len(fig.Data[0].X) != 2 {
		t.Fatalf("Render() data = %+v", fig.Data)
	}
}

func TestRenderDerivedColumn(t *testing.T) {
	spec := Spec{
		Type:    TypeBar,
		X:       "region",
		Y:       []string{"per_order"},
		Derived: []Derived{{Name: "per_order", Expression: "round(total / orders)"}},
	}
	fig, err := Render(spec, salesByRegion())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	y := fig.Data[0].Y
	// 45 / 0 is +Inf and is rendered as a gap.
	if y[0] != 30.0 || y[1] != 40.0 || y[2] != nil {
		t.Fatalf("Render() derived = %v", y)
	}
}

func TestRenderDerivedUnknownColumn(t *testing.T) {
	spec := Spec{Type: TypeBar, X: "region", Y: []string{"x"}, Derived: []Derived{{Name: "x", Expression: "profit * 2"}}}
	if _, err := Render(spec, salesByRegion()); !errs.IsKind(err, errs.KindRender) {
		t.Fatalf("Render() error = %v, want render error", err)
	}
}

func TestRenderUnknownColumn(t *testing.T) {
	if _, err := Render(Spec{Type: TypeBar, X: "country", Y: []string{"total"}}, salesByRegion()); !errs.IsKind(err, errs.KindRender) {
		t.Fatalf("Render() error = %v, want render error", err)
	}
}

func TestRenderEmptyResultIsError(t *testing.T) {
	empty := models.QueryResult{Columns: []string{"region", "total"}}
	if _, err := Render(Spec{Type: TypeBar, X: "region", Y: []string{"total"}}, empty); !errs.IsKind(err, errs.KindRender) {
		t.Fatalf("Render() error = %v, want render error", err)
	}
}

func TestRenderFallsBackToFirstNumericY(t *testing.T) {
	fig, err := Render(Spec{Type: TypeScatter, X: "region"}, salesByRegion())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if fig.Data[0].Name != "total" || fig.Data[0].Mode != "markers" {
		t.Fatalf("Render() trace = %+v", fig.Data[0])
	}
}
