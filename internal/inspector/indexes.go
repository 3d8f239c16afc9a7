package inspector

import (
	"fmt"

	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// CreateIndexes creates a single-column index for every column of every
// table. Join-count queries hit the same columns repeatedly, so this pays
// for itself quickly on larger databases. Only supported on SQLite; MySQL
// has no IF NOT EXISTS for indexes.
func (si *SQLInspector) CreateIndexes() error {
	if si.DB.Driver != "sqlite3" {
		si.Logger.Debugf("Index creation skipped for driver %s", si.DB.Driver)
		return nil
	}

	for _, table := range si.Tables {
		for _, col := range si.Columns[table] {
			stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
				table, col.Name, table, col.Name)
			if _, err := si.DB.ExecuteStatement(stmt); err != nil {
				si.Logger.Warningf("Failed to create index on %s.%s: %v", table, col.Name, err)
				return err
			}
		}
	}

	si.Logger.Infof("Created single-column indexes for %d tables", len(si.Tables))
	return nil
}

// CreateComposedIndexes creates two-column indexes for same-table column
// pairs that appear together in join conditions
func (si *SQLInspector) CreateComposedIndexes(conditions []models.JoinCondition) error {
	if si.DB.Driver != "sqlite3" {
		si.Logger.Debugf("Composed index creation skipped for driver %s", si.DB.Driver)
		return nil
	}

	created := make(map[string]bool)
	for _, cond := range conditions {
		c := cond.Canonical()
		if c.Left.Table != c.Right.Table || c.Left.Column == c.Right.Column {
			continue
		}

		name := fmt.Sprintf("idx_%s_%s_%s", c.Left.Table, c.Left.Column, c.Right.Column)
		if created[name] {
			continue
		}
		created[name] = true

		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s, %s)",
			name, c.Left.Table, c.Left.Column, c.Right.Column)
		if _, err := si.DB.ExecuteStatement(stmt); err != nil {
			si.Logger.Warningf("Failed to create composed index %s: %v", name, err)
			return err
		}
	}

	return nil
}
