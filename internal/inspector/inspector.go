package inspector

import (
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// DataInspector is the data-access oracle consumed by the discovery engine.
// Implementations provide schema metadata plus join-cardinality queries over
// the actual data. All methods are called from a single goroutine; an
// implementation does not need to be safe for concurrent use.
type DataInspector interface {
	// ListTables returns the base table names of the schema
	ListTables() ([]string, error)

	// ListColumns returns the column names of a table in schema order
	ListColumns(table string) ([]string, error)

	// ColumnDomain returns the normalized type class of a column
	ColumnDomain(table, column string) (models.DomainTag, error)

	// IsKey reports whether a column is part of the table's primary key
	IsKey(table, column string) (bool, error)

	// IsForeignKey reports whether a declared foreign key links the two columns
	IsForeignKey(table1, col1, table2, col2 string) (bool, error)

	// JoinRowCount counts the tuple combinations over the given table
	// occurrences that satisfy every join condition. With no conditions the
	// count is the full cross product. Conditions may reference occurrences
	// beyond the counted list; those are existentially quantified, so a
	// counted combination appears once no matter how many rows of the extra
	// occurrences match it. The disjoint flag requires distinct rows for
	// distinct occurrences of the same table; the distinct flag counts
	// distinct combinations of the condition columns instead of raw tuple
	// combinations.
	JoinRowCount(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool) (int64, error)

	// ThresholdCheck is JoinRowCount with an early exit: the result is
	// capped at threshold, letting the backend stop counting as soon as the
	// threshold is reached
	ThresholdCheck(occurrences []models.TableOccurrence, conditions []models.JoinCondition, disjoint, distinct bool, threshold int64) (int64, error)
}
