package models

import (
	"fmt"
	"strings"
)

// DomainTag is a normalized type class used to decide whether two columns
// are joinable on equality
type DomainTag string

const (
	DomainInteger DomainTag = "integer"
	DomainReal    DomainTag = "real"
	DomainText    DomainTag = "text"
	DomainDate    DomainTag = "date"
	DomainBlob    DomainTag = "blob"
	DomainUnknown DomainTag = "unknown"
)

// NormalizeDomain maps a raw SQL data type to a DomainTag
func NormalizeDomain(dataType string) DomainTag {
	dt := strings.ToLower(strings.TrimSpace(dataType))

	// Strip length/precision suffixes like varchar(255)
	if idx := strings.Index(dt, "("); idx > 0 {
		dt = dt[:idx]
	}

	switch dt {
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint", "serial", "bool", "boolean":
		return DomainInteger
	case "float", "double", "real", "decimal", "numeric":
		return DomainReal
	case "char", "varchar", "text", "tinytext", "mediumtext", "longtext", "enum", "set":
		return DomainText
	case "date", "datetime", "timestamp", "time", "year":
		return DomainDate
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return DomainBlob
	}

	return DomainUnknown
}

// Attribute identifies a column by its table and column name
type Attribute struct {
	Table  string
	Column string
}

func (a Attribute) String() string {
	return a.Table + "." + a.Column
}

// TableOccurrence is one use of a table within a candidate chain,
// distinguishing self-joins
type TableOccurrence struct {
	Table      string
	Occurrence int
}

func (o TableOccurrence) String() string {
	return fmt.Sprintf("%s@%d", o.Table, o.Occurrence)
}

// IndexedAttribute is an Attribute plus an occurrence index
type IndexedAttribute struct {
	Table      string
	Occurrence int
	Column     string
}

// Attribute returns the schema-level identity of the indexed attribute
func (ia IndexedAttribute) Attribute() Attribute {
	return Attribute{Table: ia.Table, Column: ia.Column}
}

// TableOccurrence returns the table occurrence this attribute belongs to
func (ia IndexedAttribute) TableOccurrence() TableOccurrence {
	return TableOccurrence{Table: ia.Table, Occurrence: ia.Occurrence}
}

func (ia IndexedAttribute) String() string {
	return fmt.Sprintf("%s@%d.%s", ia.Table, ia.Occurrence, ia.Column)
}

// Less gives a stable total order over indexed attributes
func (ia IndexedAttribute) Less(other IndexedAttribute) bool {
	if ia.Table != other.Table {
		return ia.Table < other.Table
	}
	if ia.Occurrence != other.Occurrence {
		return ia.Occurrence < other.Occurrence
	}
	return ia.Column < other.Column
}

// Column represents a database column with its schema properties
type Column struct {
	Name         string
	DataType     string
	Domain       DomainTag
	IsNullable   bool
	IsPrimaryKey bool
}

// ForeignKey represents a declared foreign key relationship
type ForeignKey struct {
	Table            string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	ConstraintName   string
}

// JoinCondition is an equality predicate between two indexed attributes
type JoinCondition struct {
	Left  IndexedAttribute
	Right IndexedAttribute
}

// Canonical returns the condition with its smaller endpoint on the left
func (jc JoinCondition) Canonical() JoinCondition {
	if jc.Right.Less(jc.Left) {
		return JoinCondition{Left: jc.Right, Right: jc.Left}
	}
	return jc
}

// Key returns a stable string identity for the condition
func (jc JoinCondition) Key() string {
	c := jc.Canonical()
	return c.Left.String() + "=" + c.Right.String()
}

// TGDRule is a validated tuple-generating dependency ready for display
// or serialization
type TGDRule struct {
	Display    string  `json:"display"`
	Body       string  `json:"body"`
	Head       string  `json:"head"`
	Support    int64   `json:"support"`
	Confidence float64 `json:"confidence"`
}

// DiscoveryResult summarizes one discovery run for reporting
type DiscoveryResult struct {
	RunID        string    `json:"run_id"`
	Database     string    `json:"database"`
	NbOccurrence int       `json:"nb_occurrence"`
	MaxTable     int       `json:"max_table"`
	MaxVars      int       `json:"max_vars"`
	Rules        []TGDRule `json:"rules"`
}
