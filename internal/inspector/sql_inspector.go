package inspector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sql-tgd-miner/internal/connector"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// SQLInspector implements DataInspector on top of a live MySQL or SQLite
// database. Schema metadata is loaded once per run with LoadSchema and kept
// on the inspector instance; nothing is cached process-wide.
type SQLInspector struct {
	DB          *connector.DatabaseConnector
	Tables      []string
	Columns     map[string][]models.Column
	ForeignKeys map[string][]models.ForeignKey
	PrimaryKeys map[string][]string
	Logger      *logrus.Logger
}

// NewSQLInspector creates a SQL-backed inspector
func NewSQLInspector(db *connector.DatabaseConnector, logger *logrus.Logger) *SQLInspector {
	return &SQLInspector{
		DB:          db,
		Columns:     make(map[string][]models.Column),
		ForeignKeys: make(map[string][]models.ForeignKey),
		PrimaryKeys: make(map[string][]string),
		Logger:      logger,
	}
}

// LoadSchema loads tables, columns, primary keys and foreign keys into the
// inspector. It must be called before any other method.
func (si *SQLInspector) LoadSchema() error {
	switch si.DB.Driver {
	case "mysql":
		return si.loadMySQLSchema()
	case "sqlite3":
		return si.loadSQLiteSchema()
	}
	return fmt.Errorf("unsupported database driver: %s", si.DB.Driver)
}

func (si *SQLInspector) loadMySQLSchema() error {
	tablesQuery := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	tablesResult, err := si.DB.ExecuteQuery(tablesQuery, si.DB.Database)
	if err != nil {
		si.Logger.Errorf("Error getting tables: %v", err)
		return err
	}

	for _, row := range tablesResult {
		si.Tables = append(si.Tables, row["table_name"].(string))
	}

	for _, table := range si.Tables {
		columnsQuery := `
			SELECT column_name, data_type, is_nullable, column_key
			FROM information_schema.columns
			WHERE table_schema = ?
			AND table_name = ?
			ORDER BY ordinal_position
		`
		columnsResult, err := si.DB.ExecuteQuery(columnsQuery, si.DB.Database, table)
		if err != nil {
			si.Logger.Errorf("Error getting columns for table %s: %v", table, err)
			return err
		}

		var columns []models.Column
		for _, row := range columnsResult {
			isPK := row["column_key"].(string) == "PRI"
			column := models.Column{
				Name:         row["column_name"].(string),
				DataType:     row["data_type"].(string),
				Domain:       models.NormalizeDomain(row["data_type"].(string)),
				IsNullable:   row["is_nullable"].(string) == "YES",
				IsPrimaryKey: isPK,
			}
			columns = append(columns, column)
			if isPK {
				si.PrimaryKeys[table] = append(si.PrimaryKeys[table], column.Name)
			}
		}

		si.Columns[table] = columns
	}

	fkQuery := `
		SELECT table_name, column_name, referenced_table_name, referenced_column_name, constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND referenced_table_name IS NOT NULL
		ORDER BY table_name, column_name
	`
	fkResult, err := si.DB.ExecuteQuery(fkQuery, si.DB.Database)
	if err != nil {
		si.Logger.Errorf("Error getting foreign keys: %v", err)
		return err
	}

	for _, row := range fkResult {
		fk := models.ForeignKey{
			Table:            row["table_name"].(string),
			Column:           row["column_name"].(string),
			ReferencedTable:  row["referenced_table_name"].(string),
			ReferencedColumn: row["referenced_column_name"].(string),
			ConstraintName:   row["constraint_name"].(string),
		}
		si.ForeignKeys[fk.Table] = append(si.ForeignKeys[fk.Table], fk)
	}

	return nil
}

func (si *SQLInspector) loadSQLiteSchema() error {
	tablesQuery := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	tablesResult, err := si.DB.ExecuteQuery(tablesQuery)
	if err != nil {
		si.Logger.Errorf("Error getting tables: %v", err)
		return err
	}

	for _, row := range tablesResult {
		si.Tables = append(si.Tables, row["name"].(string))
	}

	for _, table := range si.Tables {
		columnsResult, err := si.DB.ExecuteQuery(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			si.Logger.Errorf("Error getting columns for table %s: %v", table, err)
			return err
		}

		var columns []models.Column
		for _, row := range columnsResult {
			dataType := fmt.Sprintf("%v", row["type"])
			isPK := fmt.Sprintf("%v", row["pk"]) != "0"
			notNull := fmt.Sprintf("%v", row["notnull"]) != "0"
			column := models.Column{
				Name:         row["name"].(string),
				DataType:     dataType,
				Domain:       models.NormalizeDomain(dataType),
				IsNullable:   !notNull,
				IsPrimaryKey: isPK,
			}
			columns = append(columns, column)
			if isPK {
				si.PrimaryKeys[table] = append(si.PrimaryKeys[table], column.Name)
			}
		}

		si.Columns[table] = columns

		fkResult, err := si.DB.ExecuteQuery(fmt.Sprintf("PRAGMA foreign_key_list(%s)", table))
		if err != nil {
			si.Logger.Errorf("Error getting foreign keys for table %s: %v", table, err)
			return err
		}

		for _, row := range fkResult {
			referencedColumn := ""
			if row["to"] != nil {
				referencedColumn = fmt.Sprintf("%v", row["to"])
			}
			fk := models.ForeignKey{
				Table:            table,
				Column:           fmt.Sprintf("%v", row["from"]),
				ReferencedTable:  fmt.Sprintf("%v", row["table"]),
				ReferencedColumn: referencedColumn,
			}
			si.ForeignKeys[table] = append(si.ForeignKeys[table], fk)
		}
	}

	return nil
}

// ListTables returns the base table names of the schema
func (si *SQLInspector) ListTables() ([]string, error) {
	return si.Tables, nil
}

// ListColumns returns the column names of a table in schema order
func (si *SQLInspector) ListColumns(table string) ([]string, error) {
	columns, ok := si.Columns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", table)
	}

	var names []string
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names, nil
}

// ColumnDomain returns the normalized type class of a column
func (si *SQLInspector) ColumnDomain(table, column string) (models.DomainTag, error) {
	for _, col := range si.Columns[table] {
		if col.Name == column {
			return col.Domain, nil
		}
	}
	return models.DomainUnknown, fmt.Errorf("unknown column: %s.%s", table, column)
}

// IsKey reports whether a column is part of the table's primary key
func (si *SQLInspector) IsKey(table, column string) (bool, error) {
	for _, key := range si.PrimaryKeys[table] {
		if key == column {
			return true, nil
		}
	}
	return false, nil
}

// IsForeignKey reports whether a declared foreign key links the two columns
func (si *SQLInspector) IsForeignKey(table1, col1, table2, col2 string) (bool, error) {
	for _, fk := range si.ForeignKeys[table1] {
		if fk.Column == col1 && fk.ReferencedTable == table2 && fk.ReferencedColumn == col2 {
			return true, nil
		}
	}
	for _, fk := range si.ForeignKeys[table2] {
		if fk.Column == col2 && fk.ReferencedTable == table1 && fk.ReferencedColumn == col1 {
			return true, nil
		}
	}
	return false, nil
}

// JoinRowCount counts tuple combinations satisfying the join conditions
func (si *SQLInspector) JoinRowCount(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool) (int64, error) {
	query, err := si.buildJoinCountQuery(occurrences, conditions, disjoint, distinct, 0)
	if err != nil {
		return 0, err
	}
	return si.DB.QueryCount(query)
}

// ThresholdCheck counts tuple combinations, stopping at threshold
func (si *SQLInspector) ThresholdCheck(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool, threshold int64) (int64, error) {
	if threshold <= 0 {
		return 0, fmt.Errorf("threshold must be positive, got %d", threshold)
	}
	query, err := si.buildJoinCountQuery(occurrences, conditions, disjoint, distinct, threshold)
	if err != nil {
		return 0, err
	}
	return si.DB.QueryCount(query)
}

// occurrenceAlias returns the SQL alias of a table occurrence
func occurrenceAlias(occ models.TableOccurrence) string {
	return fmt.Sprintf("%s_%d", occ.Table, occ.Occurrence)
}

// buildJoinCountQuery renders the COUNT query for a set of counted table
// occurrences and equality join conditions. Occurrences referenced only by
// conditions join the FROM clause but are existentially quantified: the
// selection projects DISTINCT row identities of the counted occurrences,
// so a counted combination appears once however many extra rows match.
// With the distinct flag the existential selection projects the counted
// occurrences' join columns instead, keeping its units identical to the
// non-existential distinct count. A positive limit wraps the selection in
// a LIMIT subquery so the count is capped early.
func (si *SQLInspector) buildJoinCountQuery(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool, limit int64) (string, error) {
	if len(occurrences) == 0 {
		return "", fmt.Errorf("join count requires at least one table occurrence")
	}

	counted := sortOccurrences(occurrences)
	fromOccs := mergeConditionOccurrences(counted, conditions)
	existential := len(fromOccs) > len(counted)

	var fromParts []string
	for _, occ := range fromOccs {
		fromParts = append(fromParts, fmt.Sprintf("%s AS %s", occ.Table, occurrenceAlias(occ)))
	}

	var whereParts []string
	for _, cond := range conditions {
		c := cond.Canonical()
		whereParts = append(whereParts, fmt.Sprintf("%s.%s = %s.%s",
			occurrenceAlias(c.Left.TableOccurrence()), c.Left.Column,
			occurrenceAlias(c.Right.TableOccurrence()), c.Right.Column))
	}

	if disjoint {
		whereParts = append(whereParts, si.disjointPredicates(fromOccs)...)
	}

	where := ""
	if len(whereParts) > 0 {
		where = " WHERE " + strings.Join(whereParts, " AND ")
	}

	selection := "SELECT 1"
	switch {
	case existential:
		var cols []string
		if distinct {
			cols = conditionColumns(countedConditions(counted, conditions))
		}
		if len(cols) == 0 {
			for _, occ := range counted {
				for _, key := range si.rowIdentity(occ.Table) {
					cols = append(cols, fmt.Sprintf("%s.%s", occurrenceAlias(occ), key))
				}
			}
		}
		selection = "SELECT DISTINCT " + strings.Join(cols, ", ")
	case distinct && len(conditions) > 0:
		// The distinct flag counts distinct combinations of the joined
		// columns; with no conditions it degenerates to a plain tuple count
		selection = "SELECT DISTINCT " + strings.Join(conditionColumns(conditions), ", ")
	}

	inner := fmt.Sprintf("%s FROM %s%s", selection, strings.Join(fromParts, ", "), where)
	if limit > 0 {
		inner = fmt.Sprintf("%s LIMIT %d", inner, limit)
	}

	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS joined", inner), nil
}

// rowIdentity returns the columns identifying one row of a table: the
// primary key when declared, every column otherwise
func (si *SQLInspector) rowIdentity(table string) []string {
	if keys := si.PrimaryKeys[table]; len(keys) > 0 {
		return keys
	}

	var cols []string
	for _, col := range si.Columns[table] {
		cols = append(cols, col.Name)
	}
	return cols
}

// sortOccurrences returns a stably sorted copy of the occurrence list
func sortOccurrences(occurrences []models.TableOccurrence) []models.TableOccurrence {
	sorted := make([]models.TableOccurrence, len(occurrences))
	copy(sorted, occurrences)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Table != sorted[j].Table {
			return sorted[i].Table < sorted[j].Table
		}
		return sorted[i].Occurrence < sorted[j].Occurrence
	})
	return sorted
}

// mergeConditionOccurrences appends occurrences referenced by conditions
// but missing from the counted list
func mergeConditionOccurrences(counted []models.TableOccurrence, conditions []models.JoinCondition) []models.TableOccurrence {
	present := make(map[models.TableOccurrence]bool, len(counted))
	merged := make([]models.TableOccurrence, len(counted))
	copy(merged, counted)
	for _, occ := range counted {
		present[occ] = true
	}

	var extra []models.TableOccurrence
	for _, cond := range conditions {
		for _, occ := range []models.TableOccurrence{cond.Left.TableOccurrence(), cond.Right.TableOccurrence()} {
			if !present[occ] {
				present[occ] = true
				extra = append(extra, occ)
			}
		}
	}

	sort.Slice(extra, func(i, j int) bool {
		if extra[i].Table != extra[j].Table {
			return extra[i].Table < extra[j].Table
		}
		return extra[i].Occurrence < extra[j].Occurrence
	})

	return append(merged, extra...)
}

// countedConditions filters conditions to those joining counted
// occurrences on both sides
func countedConditions(counted []models.TableOccurrence, conditions []models.JoinCondition) []models.JoinCondition {
	present := make(map[models.TableOccurrence]bool, len(counted))
	for _, occ := range counted {
		present[occ] = true
	}

	var kept []models.JoinCondition
	for _, cond := range conditions {
		if present[cond.Left.TableOccurrence()] && present[cond.Right.TableOccurrence()] {
			kept = append(kept, cond)
		}
	}
	return kept
}

// conditionColumns returns the deduplicated canonical join columns of the
// conditions as qualified SQL expressions
func conditionColumns(conditions []models.JoinCondition) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, cond := range conditions {
		c := cond.Canonical()
		expr := fmt.Sprintf("%s.%s", occurrenceAlias(c.Left.TableOccurrence()), c.Left.Column)
		if !seen[expr] {
			seen[expr] = true
			cols = append(cols, expr)
		}
	}
	return cols
}

// disjointPredicates builds primary-key inequality predicates between
// distinct occurrences of the same table
func (si *SQLInspector) disjointPredicates(occurrences []models.TableOccurrence) []string {
	var parts []string

	for i := 0; i < len(occurrences); i++ {
		for j := i + 1; j < len(occurrences); j++ {
			if occurrences[i].Table != occurrences[j].Table {
				continue
			}

			keys := si.PrimaryKeys[occurrences[i].Table]
			if len(keys) == 0 {
				// Without a declared key there is no cheap row identity to
				// compare; the pair is left unconstrained
				continue
			}

			var eq []string
			for _, key := range keys {
				eq = append(eq, fmt.Sprintf("%s.%s = %s.%s",
					occurrenceAlias(occurrences[i]), key,
					occurrenceAlias(occurrences[j]), key))
			}
			parts = append(parts, fmt.Sprintf("NOT (%s)", strings.Join(eq, " AND ")))
		}
	}

	return parts
}
