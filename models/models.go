package models

import "time"

type AskRequest struct {
	Question         string `json:"question" binding:"required" example:"What are total sales by region?"`
	IncludeChart     *bool  `json:"include_chart,omitempty"`
	IncludeFollowups *bool  `json:"include_followups,omitempty"`
	IncludeSummary   *bool  `json:"include_summary,omitempty"`
}

// Answer collects every stage output for one question. Errors is keyed by
// stage name; a failed stage never removes outputs of earlier stages.
type Answer struct {
	Question    string            `json:"question"`
	SQL         string            `json:"sql,omitempty"`
	SQLValid    bool              `json:"sql_valid"`
	Result      *QueryResult      `json:"result,omitempty"`
	ShouldChart bool              `json:"should_chart"`
	PlotCode    string            `json:"plot_code,omitempty"`
	Figure      *Figure           `json:"figure,omitempty"`
	Followups   []string          `json:"followups,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// StageEvent reports one finished stage to a streaming client.
type StageEvent struct {
	Stage    string        `json:"stage"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration_ns"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type ExecuteSQLRequest struct {
	SQL    string `json:"sql" binding:"required" example:"SELECT region, SUM(amount) FROM sales GROUP BY region"`
	Save   bool   `json:"save" example:"true"`
	Format string `json:"format" example:"json"` // json, csv or parquet
}

type SQLRequest struct {
	SQL string `json:"sql" binding:"required"`
}

type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// StageDataRequest carries the arguments of the stages that work on a query result.
type StageDataRequest struct {
	Question string      `json:"question"`
	SQL      string      `json:"sql"`
	Code     string      `json:"code"`
	Result   QueryResult `json:"result"`
}

// Training item kinds, matching the vector store collections.
const (
	TrainingKindSQL           = "sql"
	TrainingKindDDL           = "ddl"
	TrainingKindDocumentation = "documentation"
)

type TrainingItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Question  string    `json:"question,omitempty" yaml:"question"`
	SQL       string    `json:"sql,omitempty" yaml:"sql"`
	Content   string    `json:"content,omitempty" yaml:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type TrainRequest struct {
	Question      string `json:"question,omitempty"`
	SQL           string `json:"sql,omitempty"`
	DDL           string `json:"ddl,omitempty"`
	Documentation string `json:"documentation,omitempty"`
}

type HistoryEntry struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	SQL      string    `json:"sql,omitempty"`
	Error    string    `json:"error,omitempty"`
	AskedAt  time.Time `json:"asked_at"`
}

type ResultFile struct {
	Filename  string   `json:"filename"`
	Query     string   `json:"query,omitempty"`
	Timestamp string   `json:"timestamp"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Error     string   `json:"error,omitempty"`
}

type ResultFileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	Format   string `json:"format"`
}

// ColumnInfo is one row of the target database's columns catalog.
type ColumnInfo struct {
	Catalog  string `json:"catalog"`
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	DataType string `json:"data_type"`
}
