package schema

import (
	"fmt"
	"sort"

	"vocab-loader/core/database"
	"vocab-loader/feature/cdm/models"

	"gorm.io/gorm"
)

// Report is the result of comparing the live schema with the CDM models.
type Report struct {
	Driver  string                 `json:"driver"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
}

// TableReport describes one table.
type TableReport struct {
	Missing        bool     `json:"missing"`
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "error"
}

// Create creates (or migrates) every table the loader manages.
func Create(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to create CDM tables: %w", err)
	}
	return nil
}

// Check verifies that every managed table exists with every model column.
func Check(db *gorm.DB) (*Report, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &Report{
		Driver:  db.Dialector.Name(),
		Matched: true,
		Tables:  make(map[string]TableReport),
	}

	for _, model := range models.All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		tbl := TableReport{MissingColumns: []string{}, Status: "ok"}

		if !database.HasTable(db, table) {
			tbl.Missing = true
			tbl.Status = "error"
			report.Matched = false
			report.Tables[table] = tbl
			continue
		}

		actual, err := database.GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}
		present := make(map[string]struct{}, len(actual))
		for _, col := range actual {
			present[col.Field] = struct{}{}
		}

		for _, name := range stmt.Schema.DBNames {
			if _, ok := present[name]; !ok {
				tbl.MissingColumns = append(tbl.MissingColumns, name)
			}
		}
		sort.Strings(tbl.MissingColumns)

		if len(tbl.MissingColumns) > 0 {
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[table] = tbl
	}

	return report, nil
}
