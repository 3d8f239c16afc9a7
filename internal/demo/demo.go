package demo

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/jaswdr/faker"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// BuildUniversityDatabase creates the bundled university demo database on
// SQLite. With violations enabled, a handful of enrollment rows reference
// student ids that do not exist, so discovered referential rules show a
// confidence strictly below 1.
func BuildUniversityDatabase(path string, withViolations bool, logger *logrus.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	// Violations require the engine to accept dangling references
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return err
	}

	schema := []string{
		`CREATE TABLE department (
			dept_id INTEGER PRIMARY KEY,
			dept_name TEXT NOT NULL
		)`,
		`CREATE TABLE professor (
			prof_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			dept_id INTEGER,
			FOREIGN KEY(dept_id) REFERENCES department(dept_id)
		)`,
		`CREATE TABLE student (
			student_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			year INTEGER,
			dept_id INTEGER,
			FOREIGN KEY(dept_id) REFERENCES department(dept_id)
		)`,
		`CREATE TABLE course (
			course_id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			dept_id INTEGER,
			FOREIGN KEY(dept_id) REFERENCES department(dept_id)
		)`,
		`CREATE TABLE enrollment (
			enrollment_id INTEGER PRIMARY KEY,
			student_id INTEGER,
			course_id INTEGER,
			FOREIGN KEY(student_id) REFERENCES student(student_id),
			FOREIGN KEY(course_id) REFERENCES course(course_id)
		)`,
		`CREATE TABLE advisor (
			advisor_id INTEGER PRIMARY KEY,
			prof_id INTEGER,
			student_id INTEGER,
			FOREIGN KEY(prof_id) REFERENCES professor(prof_id),
			FOREIGN KEY(student_id) REFERENCES student(student_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Seeded generator keeps the demo database reproducible
	fake := faker.NewWithSeed(rand.NewSource(42))

	departments := []string{"Computer Science", "Mathematics"}
	for i, name := range departments {
		if _, err := db.Exec("INSERT INTO department VALUES (?, ?)", i+1, name); err != nil {
			return err
		}
	}

	const professors = 10
	for id := 1; id <= professors; id++ {
		dept := (id-1)/5 + 1
		if _, err := db.Exec("INSERT INTO professor VALUES (?, ?, ?)", id, fake.Person().Name(), dept); err != nil {
			return err
		}
	}

	const students = 20
	for id := 1; id <= students; id++ {
		year := 1 + (id % 4)
		dept := 1 + (id % 2)
		if _, err := db.Exec("INSERT INTO student VALUES (?, ?, ?, ?)", id, fake.Person().Name(), year, dept); err != nil {
			return err
		}
	}

	const courses = 8
	for id := 1; id <= courses; id++ {
		dept := 1 + (id % 2)
		title := fmt.Sprintf("%s %d", fake.Lorem().Sentence(2), 100+id)
		if _, err := db.Exec("INSERT INTO course VALUES (?, ?, ?)", id, title, dept); err != nil {
			return err
		}
	}

	const enrollments = 51
	const danglingEnrollments = 5
	for id := 1; id <= enrollments; id++ {
		studentID := 1 + (id-1)%students
		if withViolations && id > enrollments-danglingEnrollments {
			// References a student id absent from the student table
			studentID = 900 + id
		}
		courseID := 1 + (id-1)%courses
		if _, err := db.Exec("INSERT INTO enrollment VALUES (?, ?, ?)", id, studentID, courseID); err != nil {
			return err
		}
	}

	const advisors = 15
	for id := 1; id <= advisors; id++ {
		profID := 1 + (id-1)%professors
		studentID := 1 + (id-1)%students
		if _, err := db.Exec("INSERT INTO advisor VALUES (?, ?, ?)", id, profID, studentID); err != nil {
			return err
		}
	}

	logger.Infof("Demo university database created at %s (violations=%t)", path, withViolations)
	return nil
}
