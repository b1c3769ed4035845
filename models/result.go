package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// QueryResult is the tabular output of one executed statement.
// ColumnTypes holds the driver's type names and is informational only:
// two results are equal when their columns and rows are equal.
type QueryResult struct {
	Columns     []string `json:"columns"`
	ColumnTypes []string `json:"column_types,omitempty"`
	Rows        [][]any  `json:"rows"`
}

func (r QueryResult) RowCount() int {
	return len(r.Rows)
}

func (r QueryResult) ColumnIndex(name string) int {
	for i, column := range r.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Canonical returns an order-preserving encoding of the columns and rows.
func (r QueryResult) Canonical() []byte {
	payload := struct {
		Columns []string `json:"c"`
		Rows    [][]any  `json:"r"`
	}{Columns: r.Columns, Rows: r.Rows}
	if payload.Columns == nil {
		payload.Columns = []string{}
	}
	if payload.Rows == nil {
		payload.Rows = [][]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// NaN and Inf have no JSON form.
		return []byte(fmt.Sprintf("%q|%v", payload.Columns, payload.Rows))
	}
	return data
}

func (r QueryResult) Equal(other QueryResult) bool {
	return bytes.Equal(r.Canonical(), other.Canonical())
}

// Markdown renders at most limit rows as a markdown table for prompts.
// A limit <= 0 renders every row.
func (r QueryResult) Markdown(limit int) string {
	if len(r.Columns) == 0 {
		return "(no columns)"
	}
	rows := r.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(r.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	for _, row := range rows {
		record := make([]string, len(r.Columns))
		for i := range record {
			if i < len(row) {
				record[i] = FormatValue(row[i])
			}
		}
		table.Append(record)
	}
	table.Render()

	out := strings.TrimRight(buf.String(), "\n")
	if len(rows) < len(r.Rows) {
		out += fmt.Sprintf("\n(%d of %d rows shown)", len(rows), len(r.Rows))
	}
	return out
}

// FormatValue renders a cell the way CSV export and prompts show it.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NumericValue converts numbers and numeric strings to float64.
func NumericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// IsNumericColumn reports whether every non-null value in column i is numeric
// and at least one value is present.
func (r QueryResult) IsNumericColumn(i int) bool {
	seen := false
	for _, row := range r.Rows {
		if i >= len(row) || row[i] == nil {
			continue
		}
		if _, ok := NumericValue(row[i]); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Figure is a Plotly-compatible figure document.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type   string `json:"type"`
	Mode   string `json:"mode,omitempty"`
	Name   string `json:"name,omitempty"`
	X      []any  `json:"x,omitempty"`
	Y      []any  `json:"y,omitempty"`
	Labels []any  `json:"labels,omitempty"`
	Values []any  `json:"values,omitempty"`
}

type Layout struct {
	Title string `json:"title,omitempty"`
	XAxis *Axis  `json:"xaxis,omitempty"`
	YAxis *Axis  `json:"yaxis,omitempty"`
}

type Axis struct {
	Title string `json:"title,omitempty"`
}
