// Package chart decides whether a result is chartable and renders JSON chart
// specs into Plotly-compatible figures. Chart code never runs as a program:
// a spec is data, and derived fields are arithmetic expressions evaluated by
// govaluate over a single row's values.
package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"

	"querypilot/errs"
	"querypilot/models"
)

// Chart types.
const (
	TypeBar       = "bar"
	TypeLine      = "line"
	TypeScatter   = "scatter"
	TypePie       = "pie"
	TypeHistogram = "histogram"
)

var supportedTypes = map[string]bool{
	TypeBar: true, TypeLine: true, TypeScatter: true, TypePie: true, TypeHistogram: true,
}

type Spec struct {
	Type    string    `json:"type"`
	Title   string    `json:"title,omitempty"`
	X       string    `json:"x,omitempty"`
	Y       []string  `json:"y,omitempty"`
	Color   string    `json:"color,omitempty"`
	Derived []Derived `json:"derived,omitempty"`
}

// Derived adds a computed column, e.g. {"name": "avg", "expression": "total / orders"}.
type Derived struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// ShouldGenerate reports whether result is worth charting: more than one row
// and at least one numeric column.
func ShouldGenerate(result models.QueryResult) bool {
	if result.RowCount() <= 1 {
		return false
	}
	for i := range result.Columns {
		if result.IsNumericColumn(i) {
			return true
		}
	}
	return false
}

// Parse reads a spec from model output, tolerating code fences and prose
// around the JSON object.
func Parse(code string) (Spec, error) {
	text := strings.TrimSpace(code)
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Spec{}, errs.Render("chart code contains no JSON object", nil)
	}

	var spec Spec
	if err := json.Unmarshal([]byte(text[start:end+1]), &spec); err != nil {
		return Spec{}, errs.Render("chart code is not a valid chart spec", err)
	}
	spec.Type = strings.ToLower(strings.TrimSpace(spec.Type))
	if spec.Type == "" {
		spec.Type = TypeBar
	}
	if !supportedTypes[spec.Type] {
		return Spec{}, errs.Render(fmt.Sprintf("unsupported chart type %q", spec.Type), nil)
	}
	return spec, nil
}

// Render evaluates spec against result.
func Render(spec Spec, result models.QueryResult) (*models.Figure, error) {
	table, err := withDerived(result, spec.Derived)
	if err != nil {
		return nil, err
	}

	x, ys, err := resolveColumns(spec, table)
	if err != nil {
		return nil, err
	}

	var traces []models.Trace
	switch spec.Type {
	case TypePie:
		traces = []models.Trace{{
			Type:   "pie",
			Labels: column(table, x),
			Values: numericColumn(table, ys[0]),
		}}
	case TypeHistogram:
		traces = groupTraces(table, spec.Color, func(rows [][]any, name string) models.Trace {
			return models.Trace{Type: "histogram", Name: name, X: pick(rows, x, false)}
		})
	default:
		traceType, mode := "bar", ""
		switch spec.Type {
		case TypeLine:
			traceType, mode = "scatter", "lines"
		case TypeScatter:
			traceType, mode = "scatter", "markers"
		}
		for _, y := range ys {
			yName := table.Columns[y]
			traces = append(traces, groupTraces(table, spec.Color, func(rows [][]any, group string) models.Trace {
				name := yName
				if group != "" {
					name = group
					if len(ys) > 1 {
						name = yName + " - " + group
					}
				}
				return models.Trace{Type: traceType, Mode: mode, Name: name, X: pick(rows, x, false), Y: pick(rows, y, true)}
			})...)
		}
	}

	if !hasData(traces) {
		return nil, errs.Render("chart produced no figure", nil)
	}

	figure := &models.Figure{Data: traces, Layout: models.Layout{Title: spec.Title}}
	if spec.Type != TypePie {
		figure.Layout.XAxis = &models.Axis{Title: table.Columns[x]}
		if len(ys) > 0 && spec.Type != TypeHistogram {
			names := make([]string, len(ys))
			for i, y := range ys {
				names[i] = table.Columns[y]
			}
			figure.Layout.YAxis = &models.Axis{Title: strings.Join(names, ", ")}
		}
	}
	return figure, nil
}

func resolveColumns(spec Spec, table models.QueryResult) (x int, ys []int, err error) {
	lookup := func(name string) (int, error) {
		i := table.ColumnIndex(name)
		if i < 0 {
			return -1, errs.Render(fmt.Sprintf("unknown column %q", name), nil)
		}
		return i, nil
	}

	if spec.X == "" && spec.Type == TypeHistogram && len(spec.Y) > 0 {
		spec.X = spec.Y[0]
	}
	if spec.X == "" {
		return -1, nil, errs.Render("chart spec has no x column", nil)
	}
	if x, err = lookup(spec.X); err != nil {
		return -1, nil, err
	}
	if spec.Color != "" {
		if _, err := lookup(spec.Color); err != nil {
			return -1, nil, err
		}
	}
	if spec.Type == TypeHistogram {
		return x, nil, nil
	}

	for _, name := range spec.Y {
		y, err := lookup(name)
		if err != nil {
			return -1, nil, err
		}
		ys = append(ys, y)
	}
	if len(ys) == 0 {
		// Fall back to the first numeric column other than x.
		for i := range table.Columns {
			if i != x && table.IsNumericColumn(i) {
				ys = []int{i}
				break
			}
		}
	}
	if len(ys) == 0 {
		return -1, nil, errs.Render("chart spec has no y column", nil)
	}
	return x, ys, nil
}

func withDerived(result models.QueryResult, derived []Derived) (models.QueryResult, error) {
	if len(derived) == 0 {
		return result, nil
	}

	table := models.QueryResult{
		Columns: append([]string(nil), result.Columns...),
		Rows:    make([][]any, len(result.Rows)),
	}
	for i, row := range result.Rows {
		table.Rows[i] = append([]any(nil), row...)
	}

	for _, d := range derived {
		if strings.TrimSpace(d.Name) == "" {
			return models.QueryResult{}, errs.Render("derived column has no name", nil)
		}
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(d.Expression, functions)
		if err != nil {
			return models.QueryResult{}, errs.Render(fmt.Sprintf("invalid expression for %q", d.Name), err)
		}
		for _, v := range expr.Vars() {
			if table.ColumnIndex(v) < 0 {
				return models.QueryResult{}, errs.Render(fmt.Sprintf("expression for %q uses unknown column %q", d.Name, v), nil)
			}
		}

		for i, row := range table.Rows {
			value, err := expr.Evaluate(rowParameters(table.Columns, row))
			if err != nil {
				return models.QueryResult{}, errs.Render(fmt.Sprintf("evaluate %q on row %d", d.Name, i+1), err)
			}
			if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				value = nil
			}
			table.Rows[i] = append(row, value)
		}
		table.Columns = append(table.Columns, d.Name)
	}
	return table, nil
}

func rowParameters(columns []string, row []any) map[string]interface{} {
	params := make(map[string]interface{}, len(columns))
	for i, name := range columns {
		if i >= len(row) {
			params[name] = nil
			continue
		}
		if f, ok := models.NumericValue(row[i]); ok {
			params[name] = f
		} else {
			params[name] = row[i]
		}
	}
	return params
}

var functions = map[string]govaluate.ExpressionFunction{
	"abs":   unaryMath(math.Abs),
	"round": unaryMath(math.Round),
	"floor": unaryMath(math.Floor),
	"ceil":  unaryMath(math.Ceil),
	"sqrt":  unaryMath(math.Sqrt),
	"log":   unaryMath(math.Log),
}

func unaryMath(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		f, ok := models.NumericValue(args[0])
		if !ok {
			return nil, fmt.Errorf("argument %v is not numeric", args[0])
		}
		return fn(f), nil
	}
}

// groupTraces builds one trace per distinct color value, in first-seen order,
// or a single trace when color is empty.
func groupTraces(table models.QueryResult, color string, build func(rows [][]any, group string) models.Trace) []models.Trace {
	if color == "" {
		return []models.Trace{build(table.Rows, "")}
	}
	c := table.ColumnIndex(color)
	var order []string
	groups := map[string][][]any{}
	for _, row := range table.Rows {
		key := models.FormatValue(row[c])
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}
	traces := make([]models.Trace, 0, len(order))
	for _, key := range order {
		traces = append(traces, build(groups[key], key))
	}
	return traces
}

func pick(rows [][]any, i int, numeric bool) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		var v any
		if i < len(row) {
			v = row[i]
		}
		if numeric {
			if f, ok := models.NumericValue(v); ok {
				v = f
			}
		}
		out = append(out, v)
	}
	return out
}

func column(table models.QueryResult, i int) []any {
	return pick(table.Rows, i, false)
}

func numericColumn(table models.QueryResult, i int) []any {
	return pick(table.Rows, i, true)
}

func hasData(traces []models.Trace) bool {
	for _, t := range traces {
		if len(t.X) > 0 || len(t.Y) > 0 || len(t.Values) > 0 {
			return true
		}
	}
	return false
}
