package inspector

import (
	"testing"

	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// newStudentEnrollmentInspector builds a small two-table database: three
// students and five enrollments, two of which reference a missing student
func newStudentEnrollmentInspector() *MemoryInspector {
	mi := NewMemoryInspector()

	mi.AddTable("student", []models.Column{
		{Name: "id", DataType: "int", IsPrimaryKey: true},
		{Name: "name", DataType: "varchar(100)"},
	}, []map[string]interface{}{
		{"id": 1, "name": "Ada"},
		{"id": 2, "name": "Ben"},
		{"id": 3, "name": "Eva"},
	})

	mi.AddTable("enrollment", []models.Column{
		{Name: "id", DataType: "int", IsPrimaryKey: true},
		{Name: "student_id", DataType: "int"},
	}, []map[string]interface{}{
		{"id": 1, "student_id": 1},
		{"id": 2, "student_id": 1},
		{"id": 3, "student_id": 2},
		{"id": 4, "student_id": 9},
		{"id": 5, "student_id": 9},
	})

	mi.AddForeignKey("enrollment", "student_id", "student", "id")
	return mi
}

func studentEnrollmentCondition() models.JoinCondition {
	return models.JoinCondition{
		Left:  models.IndexedAttribute{Table: "enrollment", Occurrence: 0, Column: "student_id"},
		Right: models.IndexedAttribute{Table: "student", Occurrence: 0, Column: "id"},
	}
}

func TestMemoryInspectorMetadata(t *testing.T) {
	mi := newStudentEnrollmentInspector()

	tables, err := mi.ListTables()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tables) != 2 || tables[0] != "enrollment" || tables[1] != "student" {
		t.Errorf("Expected sorted tables [enrollment student], got %v", tables)
	}

	columns, err := mi.ListColumns("student")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(columns) != 2 {
		t.Errorf("Expected 2 columns, got %d", len(columns))
	}

	domain, err := mi.ColumnDomain("student", "name")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if domain != models.DomainText {
		t.Errorf("Expected text domain, got %s", domain)
	}

	isKey, err := mi.IsKey("student", "id")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !isKey {
		t.Error("Expected student.id to be a key")
	}

	// Foreign keys match in both argument orders
	fk, err := mi.IsForeignKey("enrollment", "student_id", "student", "id")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !fk {
		t.Error("Expected enrollment.student_id -> student.id to be a foreign key")
	}
	fk, err = mi.IsForeignKey("student", "id", "enrollment", "student_id")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !fk {
		t.Error("Expected foreign key check to be symmetric")
	}

	if _, err := mi.ListColumns("missing"); err == nil {
		t.Error("Expected an error for an unknown table")
	}
}

func TestJoinRowCountSimpleJoin(t *testing.T) {
	mi := newStudentEnrollmentInspector()

	occurrences := []models.TableOccurrence{
		{Table: "enrollment", Occurrence: 0},
		{Table: "student", Occurrence: 0},
	}
	conditions := []models.JoinCondition{studentEnrollmentCondition()}

	// Enrollments 1, 2 and 3 reference existing students; 4 and 5 dangle
	count, err := mi.JoinRowCount(occurrences, conditions, false, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected join count 3, got %d", count)
	}
}

func TestJoinRowCountExistential(t *testing.T) {
	mi := newStudentEnrollmentInspector()

	// Counting only enrollment rows while the condition references student
	// makes the student occurrence existential: each enrollment counts once
	// no matter how many students match it
	occurrences := []models.TableOccurrence{{Table: "enrollment", Occurrence: 0}}
	conditions := []models.JoinCondition{studentEnrollmentCondition()}

	count, err := mi.JoinRowCount(occurrences, conditions, false, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 enrollments with a matching student, got %d", count)
	}
}

func TestJoinRowCountNoConditions(t *testing.T) {
	mi := newStudentEnrollmentInspector()

	// A single occurrence with no conditions is a plain row count
	count, err := mi.JoinRowCount([]models.TableOccurrence{{Table: "enrollment", Occurrence: 0}}, nil, false, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 rows, got %d", count)
	}

	if _, err := mi.JoinRowCount(nil, nil, false, false); err == nil {
		t.Error("Expected an error for an empty occurrence list")
	}
}

func TestJoinRowCountDisjointSelfJoin(t *testing.T) {
	mi := NewMemoryInspector()
	mi.AddTable("person", []models.Column{
		{Name: "id", DataType: "int", IsPrimaryKey: true},
		{Name: "city", DataType: "varchar(50)"},
	}, []map[string]interface{}{
		{"id": 1, "city": "Lyon"},
		{"id": 2, "city": "Lyon"},
		{"id": 3, "city": "Nice"},
	})

	occurrences := []models.TableOccurrence{
		{Table: "person", Occurrence: 0},
		{Table: "person", Occurrence: 1},
	}
	conditions := []models.JoinCondition{{
		Left:  models.IndexedAttribute{Table: "person", Occurrence: 0, Column: "city"},
		Right: models.IndexedAttribute{Table: "person", Occurrence: 1, Column: "city"},
	}}

	// Without disjoint semantics every row also pairs with itself
	count, err := mi.JoinRowCount(occurrences, conditions, false, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 same-city pairs, got %d", count)
	}

	count, err = mi.JoinRowCount(occurrences, conditions, true, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 disjoint same-city pairs, got %d", count)
	}
}

func TestJoinRowCountDistinct(t *testing.T) {
	mi := newStudentEnrollmentInspector()

	occurrences := []models.TableOccurrence{
		{Table: "enrollment", Occurrence: 0},
		{Table: "student", Occurrence: 0},
	}
	conditions := []models.JoinCondition{studentEnrollmentCondition()}

	// Distinct counting collapses the two enrollments of student 1
	count, err := mi.JoinRowCount(occurrences, conditions, false, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 distinct joined values, got %d", count)
	}
}

func TestJoinRowCountDistinctExistential(t *testing.T) {
	mi := NewMemoryInspector()
	mi.AddTable("a", []models.Column{{Name: "x", DataType: "int"}}, []map[string]interface{}{
		{"x": 1}, {"x": 1},
	})
	mi.AddTable("b", []models.Column{
		{Name: "y", DataType: "int"},
		{Name: "w", DataType: "int"},
	}, []map[string]interface{}{
		{"y": 1, "w": 5},
	})
	mi.AddTable("c", []models.Column{{Name: "z", DataType: "int"}}, []map[string]interface{}{
		{"z": 5},
	})

	counted := []models.TableOccurrence{
		{Table: "a", Occurrence: 0},
		{Table: "b", Occurrence: 0},
	}
	countedCondition := models.JoinCondition{
		Left:  models.IndexedAttribute{Table: "a", Occurrence: 0, Column: "x"},
		Right: models.IndexedAttribute{Table: "b", Occurrence: 0, Column: "y"},
	}
	extraCondition := models.JoinCondition{
		Left:  models.IndexedAttribute{Table: "b", Occurrence: 0, Column: "w"},
		Right: models.IndexedAttribute{Table: "c", Occurrence: 0, Column: "z"},
	}

	// Both a rows share x=1, so the distinct count over the counted join
	// column is 1
	count, err := mi.JoinRowCount(counted, []models.JoinCondition{countedCondition}, false, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 distinct joined value, got %d", count)
	}

	// Adding a condition on c makes the count existential; it must keep
	// deduplicating on the counted join column, not switch to row
	// identities
	count, err = mi.JoinRowCount(counted, []models.JoinCondition{countedCondition, extraCondition}, false, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 distinct joined value with an existential occurrence, got %d", count)
	}

	// With no condition between counted occurrences the distinct
	// existential count falls back to row identities
	count, err = mi.JoinRowCount([]models.TableOccurrence{{Table: "a", Occurrence: 0}}, []models.JoinCondition{countedCondition}, false, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows with a match, got %d", count)
	}
}

func TestThresholdCheckCapsTheCount(t *testing.T) {
	mi := newStudentEnrollmentInspector()

	occurrences := []models.TableOccurrence{{Table: "enrollment", Occurrence: 0}}

	count, err := mi.ThresholdCheck(occurrences, nil, false, false, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected the count to stop at the threshold 2, got %d", count)
	}

	// A threshold above the true count returns the true count
	count, err = mi.ThresholdCheck(occurrences, nil, false, false, 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5, got %d", count)
	}

	if _, err := mi.ThresholdCheck(occurrences, nil, false, false, 0); err == nil {
		t.Error("Expected an error for a non-positive threshold")
	}
}

func TestJoinRowCountNullNeverMatches(t *testing.T) {
	mi := NewMemoryInspector()
	mi.AddTable("a", []models.Column{{Name: "x", DataType: "int"}}, []map[string]interface{}{
		{"x": 1},
		{"x": nil},
	})
	mi.AddTable("b", []models.Column{{Name: "x", DataType: "int"}}, []map[string]interface{}{
		{"x": 1},
		{"x": nil},
	})

	occurrences := []models.TableOccurrence{
		{Table: "a", Occurrence: 0},
		{Table: "b", Occurrence: 0},
	}
	conditions := []models.JoinCondition{{
		Left:  models.IndexedAttribute{Table: "a", Occurrence: 0, Column: "x"},
		Right: models.IndexedAttribute{Table: "b", Occurrence: 0, Column: "x"},
	}}

	count, err := mi.JoinRowCount(occurrences, conditions, false, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected NULL to match nothing, got count %d", count)
	}
}
