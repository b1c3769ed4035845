package training

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"querypilot/models"
)

// File is the YAML training document applied by querypilot-train:
//
//	ddl:
//	  - CREATE TABLE sales (region TEXT, amount NUMERIC)
//	documentation:
//	  - Amounts are in euros.
//	examples:
//	  - question: What are total sales by region?
//	    sql: SELECT region, SUM(amount) FROM sales GROUP BY region
type File struct {
	DDL           []string  `yaml:"ddl"`
	Documentation []string  `yaml:"documentation"`
	Examples      []Example `yaml:"examples"`
}

type Example struct {
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read training file: %w", err)
	}
	return ParseFile(data)
}

func ParseFile(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse training file: %w", err)
	}
	for i, ex := range f.Examples {
		if strings.TrimSpace(ex.Question) == "" || strings.TrimSpace(ex.SQL) == "" {
			return File{}, fmt.Errorf("example %d needs both question and sql", i+1)
		}
	}
	return f, nil
}

// Items flattens the file in DDL, documentation, examples order.
func (f File) Items() []models.TrainingItem {
	var items []models.TrainingItem
	for _, ddl := range f.DDL {
		if strings.TrimSpace(ddl) != "" {
			items = append(items, models.TrainingItem{Kind: models.TrainingKindDDL, Content: ddl})
		}
	}
	for _, doc := range f.Documentation {
		if strings.TrimSpace(doc) != "" {
			items = append(items, models.TrainingItem{Kind: models.TrainingKindDocumentation, Content: doc})
		}
	}
	for _, ex := range f.Examples {
		items = append(items, models.TrainingItem{Kind: models.TrainingKindSQL, Question: ex.Question, SQL: ex.SQL})
	}
	return items
}

// FromRequest converts an API training request. Exactly one of ddl,
// documentation or question+sql must be set.
func FromRequest(req models.TrainRequest) (models.TrainingItem, error) {
	set := 0
	var item models.TrainingItem
	if strings.TrimSpace(req.DDL) != "" {
		set++
		item = models.TrainingItem{Kind: models.TrainingKindDDL, Content: req.DDL}
	}
	if strings.TrimSpace(req.Documentation) != "" {
		set++
		item = models.TrainingItem{Kind: models.TrainingKindDocumentation, Content: req.Documentation}
	}
	if strings.TrimSpace(req.Question) != "" || strings.TrimSpace(req.SQL) != "" {
		if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.SQL) == "" {
			return models.TrainingItem{}, fmt.Errorf("question and sql must be given together")
		}
		set++
		item = models.TrainingItem{Kind: models.TrainingKindSQL, Question: req.Question, SQL: req.SQL}
	}
	switch set {
	case 0:
		return models.TrainingItem{}, fmt.Errorf("one of ddl, documentation or question+sql is required")
	case 1:
		return item, nil
	default:
		return models.TrainingItem{}, fmt.Errorf("only one of ddl, documentation or question+sql may be given")
	}
}
