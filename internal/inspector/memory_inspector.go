package inspector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// MemoryTable holds a table's schema and literal rows
type MemoryTable struct {
	Columns []models.Column
	Rows    []map[string]interface{}
}

// MemoryInspector implements DataInspector over in-memory rows. Join counts
// are computed by scanning tuple combinations, which is fine for the small
// databases it is meant for (tests, demos, schema exploration).
type MemoryInspector struct {
	TableData   map[string]*MemoryTable
	ForeignKeys []models.ForeignKey
	tableNames  []string
}

// NewMemoryInspector creates an empty in-memory inspector
func NewMemoryInspector() *MemoryInspector {
	return &MemoryInspector{
		TableData: make(map[string]*MemoryTable),
	}
}

// AddTable registers a table with its columns and rows
func (mi *MemoryInspector) AddTable(name string, columns []models.Column, rows []map[string]interface{}) {
	for i := range columns {
		if columns[i].Domain == "" {
			columns[i].Domain = models.NormalizeDomain(columns[i].DataType)
		}
	}
	mi.TableData[name] = &MemoryTable{Columns: columns, Rows: rows}
	mi.tableNames = append(mi.tableNames, name)
	sort.Strings(mi.tableNames)
}

// AddForeignKey declares a foreign key between two columns
func (mi *MemoryInspector) AddForeignKey(table, column, referencedTable, referencedColumn string) {
	mi.ForeignKeys = append(mi.ForeignKeys, models.ForeignKey{
		Table:            table,
		Column:           column,
		ReferencedTable:  referencedTable,
		ReferencedColumn: referencedColumn,
	})
}

// ListTables returns the registered table names in sorted order
func (mi *MemoryInspector) ListTables() ([]string, error) {
	return mi.tableNames, nil
}

// ListColumns returns the column names of a table
func (mi *MemoryInspector) ListColumns(table string) ([]string, error) {
	t, ok := mi.TableData[table]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", table)
	}

	var names []string
	for _, col := range t.Columns {
		names = append(names, col.Name)
	}
	return names, nil
}

// ColumnDomain returns the normalized type class of a column
func (mi *MemoryInspector) ColumnDomain(table, column string) (models.DomainTag, error) {
	t, ok := mi.TableData[table]
	if !ok {
		return models.DomainUnknown, fmt.Errorf("unknown table: %s", table)
	}

	for _, col := range t.Columns {
		if col.Name == column {
			return col.Domain, nil
		}
	}
	return models.DomainUnknown, fmt.Errorf("unknown column: %s.%s", table, column)
}

// IsKey reports whether a column is part of the table's primary key
func (mi *MemoryInspector) IsKey(table, column string) (bool, error) {
	t, ok := mi.TableData[table]
	if !ok {
		return false, fmt.Errorf("unknown table: %s", table)
	}

	for _, col := range t.Columns {
		if col.Name == column {
			return col.IsPrimaryKey, nil
		}
	}
	return false, nil
}

// IsForeignKey reports whether a declared foreign key links the two columns
func (mi *MemoryInspector) IsForeignKey(table1, col1, table2, col2 string) (bool, error) {
	for _, fk := range mi.ForeignKeys {
		if fk.Table == table1 && fk.Column == col1 && fk.ReferencedTable == table2 && fk.ReferencedColumn == col2 {
			return true, nil
		}
		if fk.Table == table2 && fk.Column == col2 && fk.ReferencedTable == table1 && fk.ReferencedColumn == col1 {
			return true, nil
		}
	}
	return false, nil
}

// JoinRowCount counts tuple combinations satisfying the join conditions
func (mi *MemoryInspector) JoinRowCount(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool) (int64, error) {
	return mi.countJoin(occurrences, conditions, disjoint, distinct, 0)
}

// ThresholdCheck counts tuple combinations, stopping at threshold
func (mi *MemoryInspector) ThresholdCheck(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool, threshold int64) (int64, error) {
	if threshold <= 0 {
		return 0, fmt.Errorf("threshold must be positive, got %d", threshold)
	}
	return mi.countJoin(occurrences, conditions, disjoint, distinct, threshold)
}

func (mi *MemoryInspector) countJoin(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool, limit int64) (int64, error) {
	if len(occurrences) == 0 {
		return 0, fmt.Errorf("join count requires at least one table occurrence")
	}

	counted := sortOccurrencesMem(occurrences)
	fromOccs := counted
	for _, cond := range conditions {
		for _, occ := range []models.TableOccurrence{cond.Left.TableOccurrence(), cond.Right.TableOccurrence()} {
			if !containsOccurrence(fromOccs, occ) {
				fromOccs = append(fromOccs, occ)
			}
		}
	}
	// Occurrences referenced only by conditions are existentially
	// quantified: a counted combination appears once however many rows of
	// the extra occurrences match it
	existential := len(fromOccs) > len(counted)

	// With distinct set, an existential count dedups on the counted
	// occurrences' join-column values, the same units the non-existential
	// distinct count uses; a support/confidence ratio built from the two
	// stays within [0,1]
	var distinctConds []models.JoinCondition
	if distinct && existential {
		distinctConds = countedConditions(counted, conditions)
	}

	occIndex := make(map[models.TableOccurrence]int, len(fromOccs))
	tables := make([]*MemoryTable, len(fromOccs))
	for i, occ := range fromOccs {
		t, ok := mi.TableData[occ.Table]
		if !ok {
			return 0, fmt.Errorf("unknown table: %s", occ.Table)
		}
		occIndex[occ] = i
		tables[i] = t
	}

	var count int64
	seen := make(map[string]bool)
	rowChoice := make([]int, len(fromOccs))

	var recurse func(pos int) bool
	recurse = func(pos int) bool {
		if pos == len(fromOccs) {
			if disjoint && !disjointRows(fromOccs, rowChoice) {
				return true
			}
			if !conditionsHold(fromOccs, tables, occIndex, rowChoice, conditions) {
				return true
			}

			if existential {
				var key string
				if len(distinctConds) > 0 {
					key = conditionValueKey(tables, occIndex, rowChoice, distinctConds)
				} else {
					key = countedRowKey(len(counted), rowChoice)
				}
				if seen[key] {
					return true
				}
				seen[key] = true
			} else if distinct && len(conditions) > 0 {
				key := conditionValueKey(tables, occIndex, rowChoice, conditions)
				if seen[key] {
					return true
				}
				seen[key] = true
			}

			count++
			return limit == 0 || count < limit
		}

		for i := range tables[pos].Rows {
			rowChoice[pos] = i
			if !recurse(pos + 1) {
				return false
			}
		}
		return true
	}

	recurse(0)
	return count, nil
}

func sortOccurrencesMem(occurrences []models.TableOccurrence) []models.TableOccurrence {
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

func containsOccurrence(occurrences []models.TableOccurrence, occ models.TableOccurrence) bool {
	for _, o := range occurrences {
		if o == occ {
			return true
		}
	}
	return false
}

// countedRowKey identifies one combination of the counted occurrences'
// rows; the counted occurrences always sit at the front of the choice slice
func countedRowKey(countedLen int, rowChoice []int) string {
	var parts []string
	for i := 0; i < countedLen; i++ {
		parts = append(parts, fmt.Sprintf("%d", rowChoice[i]))
	}
	return strings.Join(parts, ",")
}

// disjointRows rejects combinations binding two occurrences of the same
// table to the same row
func disjointRows(occurrences []models.TableOccurrence, rowChoice []int) bool {
	for i := 0; i < len(occurrences); i++ {
		for j := i + 1; j < len(occurrences); j++ {
			if occurrences[i].Table == occurrences[j].Table && rowChoice[i] == rowChoice[j] {
				return false
			}
		}
	}
	return true
}

func conditionsHold(occurrences []models.TableOccurrence, tables []*MemoryTable, occIndex map[models.TableOccurrence]int, rowChoice []int, conditions []models.JoinCondition) bool {
	for _, cond := range conditions {
		li, ok := occIndex[cond.Left.TableOccurrence()]
		if !ok {
			return false
		}
		ri, ok := occIndex[cond.Right.TableOccurrence()]
		if !ok {
			return false
		}

		lv := tables[li].Rows[rowChoice[li]][cond.Left.Column]
		rv := tables[ri].Rows[rowChoice[ri]][cond.Right.Column]
		// NULL compares equal to nothing, matching SQL equality
		if lv == nil || rv == nil {
			return false
		}
		if fmt.Sprintf("%v", lv) != fmt.Sprintf("%v", rv) {
			return false
		}
	}
	return true
}

func conditionValueKey(tables []*MemoryTable, occIndex map[models.TableOccurrence]int, rowChoice []int, conditions []models.JoinCondition) string {
	var parts []string
	for _, cond := range conditions {
		c := cond.Canonical()
		li := occIndex[c.Left.TableOccurrence()]
		parts = append(parts, fmt.Sprintf("%v", tables[li].Rows[rowChoice[li]][c.Left.Column]))
	}
	return strings.Join(parts, "\x1f")
}
