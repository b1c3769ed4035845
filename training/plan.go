package training

import (
	"fmt"
	"sort"

	"querypilot/models"
)

// Plan builds one documentation item per table from the columns catalog,
// describing the table's columns and their types.
func Plan(columns []models.ColumnInfo) []models.TrainingItem {
	type tableKey struct{ catalog, schema, table string }

	byTable := map[tableKey][]models.ColumnInfo{}
	var keys []tableKey
	for _, c := range columns {
		if c.Table == "" || c.Column == "" {
			continue
		}
		k := tableKey{c.Catalog, c.Schema, c.Table}
		if _, ok := byTable[k]; !ok {
			keys = append(keys, k)
		}
		byTable[k] = append(byTable[k], c)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.catalog != b.catalog {
			return a.catalog < b.catalog
		}
		if a.schema != b.schema {
			return a.schema < b.schema
		}
		return a.table < b.table
	})

	items := make([]models.TrainingItem, 0, len(keys))
	for _, k := range keys {
		table := models.QueryResult{Columns: []string{"column", "data_type"}}
		for _, c := range byTable[k] {
			table.Rows = append(table.Rows, []any{c.Column, c.DataType})
		}
		items = append(items, models.TrainingItem{
			Kind:    models.TrainingKindDocumentation,
			Content: fmt.Sprintf("The following columns are in the %s table%s:\n\n%s", k.table, location(k.catalog, k.schema), table.Markdown(0)),
		})
	}
	return items
}

func location(catalog, schema string) string {
	switch {
	case catalog != "" && schema != "":
		return fmt.Sprintf(" in the %s schema of the %s database", schema, catalog)
	case schema != "":
		return fmt.Sprintf(" in the %s schema", schema)
	case catalog != "":
		return fmt.Sprintf(" in the %s database", catalog)
	default:
		return ""
	}
}
