package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"querypilot/models"
	"querypilot/storage"
)

const (
	resultsPrefix = "results/"
	figuresPrefix = "figures/"
)

// Supported result formats.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

func IsSupportedFormat(format string) bool {
	switch format {
	case FormatJSON, FormatCSV, FormatParquet:
		return true
	}
	return false
}

// ResultsStorage saves query results and rendered figures to an object store.
type ResultsStorage struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewResultsStorage(store storage.ObjectStore) *ResultsStorage {
	return &ResultsStorage{store: store, now: time.Now}
}

// GenerateFileName creates a unique filename with timestamp and hash
func (r *ResultsStorage) GenerateFileName(prefix, format string) string {
	now := r.now()
	return fmt.Sprintf("%s_%s_%d.%s", prefix, now.Format("20060102_150405"), now.UnixNano(), format)
}

// SaveResult writes result in format (json when empty) and returns the filename.
func (r *ResultsStorage) SaveResult(ctx context.Context, result models.QueryResult, query, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatJSON
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case FormatJSON:
		data, err = r.encodeJSON(result, query)
		contentType = "application/json"
	case FormatCSV:
		data, err = encodeCSV(result)
		contentType = "text/csv"
	case FormatParquet:
		data, err = encodeParquet(result, query, r.now())
		contentType = "application/vnd.apache.parquet"
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", err
	}

	filename := r.GenerateFileName("result", format)
	if _, err := r.store.Put(ctx, resultsPrefix+filename, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}
	return filename, nil
}

// SaveFigure stores a rendered figure as JSON and returns the filename.
func (r *ResultsStorage) SaveFigure(ctx context.Context, figure *models.Figure) (string, error) {
	if figure == nil {
		return "", fmt.Errorf("no figure to save")
	}
	data, err := json.Marshal(figure)
	if err != nil {
		return "", fmt.Errorf("failed to marshal figure: %w", err)
	}
	filename := r.GenerateFileName("figure", FormatJSON)
	if _, err := r.store.Put(ctx, figuresPrefix+filename, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: "application/json"}); err != nil {
		return "", fmt.Errorf("failed to save figure: %w", err)
	}
	return filename, nil
}

// GetFigure reads a figure saved by SaveFigure.
func (r *ResultsStorage) GetFigure(ctx context.Context, filename string) (*models.Figure, error) {
	data, err := r.read(ctx, figuresPrefix+path.Base(filename))
	if err != nil {
		return nil, err
	}
	var figure models.Figure
	if err := json.Unmarshal(data, &figure); err != nil {
		return nil, fmt.Errorf("failed to unmarshal figure: %w", err)
	}
	return &figure, nil
}

// GetResultFile reads a result file
func (r *ResultsStorage) GetResultFile(ctx context.Context, filename string) (*models.ResultFile, error) {
	filename = path.Base(filename)
	format := strings.TrimPrefix(path.Ext(filename), ".")
	if !IsSupportedFormat(format) {
		return nil, ErrUnsupportedFormat
	}

	data, err := r.read(ctx, resultsPrefix+filename)
	if err != nil {
		return nil, err
	}

	var result *models.ResultFile
	switch format {
	case FormatJSON:
		result = &models.ResultFile{}
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
	case FormatCSV:
		result, err = decodeCSV(data)
	case FormatParquet:
		result, err = decodeParquet(data)
	}
	if err != nil {
		return nil, err
	}
	result.Filename = filename
	return result, nil
}

// ListResultFiles returns all result files
func (r *ResultsStorage) ListResultFiles(ctx context.Context) ([]models.ResultFileInfo, error) {
	objects, err := r.store.List(ctx, resultsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	resultFiles := []models.ResultFileInfo{}
	for _, object := range objects {
		name := path.Base(object.Key)
		ext := strings.TrimPrefix(path.Ext(name), ".")
		if !IsSupportedFormat(ext) {
			continue
		}
		resultFiles = append(resultFiles, models.ResultFileInfo{
			Filename: name,
			Size:     object.Size,
			Modified: object.LastModified.Format(time.RFC3339),
			Format:   ext,
		})
	}
	sort.Slice(resultFiles, func(i, j int) bool { return resultFiles[i].Filename > resultFiles[j].Filename })
	return resultFiles, nil
}

func (r *ResultsStorage) read(ctx context.Context, key string) ([]byte, error) {
	reader, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (r *ResultsStorage) encodeJSON(result models.QueryResult, query string) ([]byte, error) {
	// Create result metadata
	resultData := models.ResultFile{
		Query:     query,
		Timestamp: r.now().Format(time.RFC3339),
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount(),
	}

	data, err := json.MarshalIndent(resultData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

func encodeCSV(result models.QueryResult) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	// Write header
	if err := writer.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write rows
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, val := range row {
			record[i] = models.FormatValue(val)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeCSV(data []byte) (*models.ResultFile, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return &models.ResultFile{Columns: []string{}, Rows: [][]any{}}, nil
	}

	// First row is header
	columns := records[0]
	rows := make([][]any, len(records)-1)
	for i, record := range records[1:] {
		row := make([]any, len(record))
		for j, val := range record {
			row[j] = val
		}
		rows[i] = row
	}

	return &models.ResultFile{Columns: columns, Rows: rows, RowCount: len(rows)}, nil
}

// parquetCell stores a result in long form so any column set fits one schema.
// Header cells have Row -1 and carry the column name in Value.
type parquetCell struct {
	Row    int64  `parquet:"row"`
	Column int32  `parquet:"column"`
	Value  string `parquet:"value"`
	IsNull bool   `parquet:"is_null"`
}

func encodeParquet(result models.QueryResult, query string, savedAt time.Time) ([]byte, error) {
	cells := make([]parquetCell, 0, len(result.Columns)*(result.RowCount()+1))
	for i, column := range result.Columns {
		cells = append(cells, parquetCell{Row: -1, Column: int32(i), Value: column})
	}
	for r, row := range result.Rows {
		for c, val := range row {
			cells = append(cells, parquetCell{Row: int64(r), Column: int32(c), Value: models.FormatValue(val), IsNull: val == nil})
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetCell](buf,
		parquet.KeyValueMetadata("query", query),
		parquet.KeyValueMetadata("timestamp", savedAt.Format(time.RFC3339)),
	)
	if _, err := writer.Write(cells); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeParquet(data []byte) (*models.ResultFile, error) {
	reader := bytes.NewReader(data)
	file, err := parquet.OpenFile(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	cells, err := parquet.Read[parquetCell](reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	result := &models.ResultFile{Columns: []string{}, Rows: [][]any{}}
	result.Query, _ = file.Lookup("query")
	result.Timestamp, _ = file.Lookup("timestamp")

	for _, cell := range cells {
		if cell.Row < 0 {
			for len(result.Columns) <= int(cell.Column) {
				result.Columns = append(result.Columns, "")
			}
			result.Columns[cell.Column] = cell.Value
		}
	}
	for _, cell := range cells {
		if cell.Row < 0 {
			continue
		}
		for len(result.Rows) <= int(cell.Row) {
			result.Rows = append(result.Rows, make([]any, len(result.Columns)))
		}
		if int(cell.Column) >= len(result.Columns) {
			return nil, fmt.Errorf("parquet cell column %d out of range", cell.Column)
		}
		if !cell.IsNull {
			result.Rows[cell.Row][cell.Column] = cell.Value
		}
	}
	result.RowCount = len(result.Rows)
	return result, nil
}
