package connector

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func TestNewMySQLConnector(t *testing.T) {
	// Set environment variables for testing
	os.Setenv("TGD_DB_HOST", "test-host")
	os.Setenv("TGD_DB_USER", "test-user")
	os.Setenv("TGD_DB_PASSWORD", "test-password")
	os.Setenv("TGD_DB_DATABASE", "test-database")
	os.Setenv("TGD_DB_PORT", "3307")
	defer func() {
		os.Unsetenv("TGD_DB_HOST")
		os.Unsetenv("TGD_DB_USER")
		os.Unsetenv("TGD_DB_PASSWORD")
		os.Unsetenv("TGD_DB_DATABASE")
		os.Unsetenv("TGD_DB_PORT")
	}()

	logger := testLogger()

	// Create a new database connector
	db := NewMySQLConnector("", "", "", "", "", logger)

	// Check that environment variables were used
	if db.Driver != "mysql" {
		t.Errorf("Expected driver to be 'mysql', got '%s'", db.Driver)
	}
	if db.Host != "test-host" {
		t.Errorf("Expected host to be 'test-host', got '%s'", db.Host)
	}
	if db.User != "test-user" {
		t.Errorf("Expected user to be 'test-user', got '%s'", db.User)
	}
	if db.Password != "test-password" {
		t.Errorf("Expected password to be 'test-password', got '%s'", db.Password)
	}
	if db.Database != "test-database" {
		t.Errorf("Expected database to be 'test-database', got '%s'", db.Database)
	}
	if db.Port != "3307" {
		t.Errorf("Expected port to be '3307', got '%s'", db.Port)
	}

	// Test with explicit parameters
	db = NewMySQLConnector("explicit-host", "explicit-user", "explicit-password", "explicit-database", "3308", logger)

	// Check that explicit parameters were used
	if db.Host != "explicit-host" {
		t.Errorf("Expected host to be 'explicit-host', got '%s'", db.Host)
	}
	if db.User != "explicit-user" {
		t.Errorf("Expected user to be 'explicit-user', got '%s'", db.User)
	}
	if db.Password != "explicit-password" {
		t.Errorf("Expected password to be 'explicit-password', got '%s'", db.Password)
	}
	if db.Database != "explicit-database" {
		t.Errorf("Expected database to be 'explicit-database', got '%s'", db.Database)
	}
	if db.Port != "3308" {
		t.Errorf("Expected port to be '3308', got '%s'", db.Port)
	}
}

func TestNewSQLiteConnector(t *testing.T) {
	logger := testLogger()

	db := NewSQLiteConnector("data/test.db", logger)

	if db.Driver != "sqlite3" {
		t.Errorf("Expected driver to be 'sqlite3', got '%s'", db.Driver)
	}
	if db.Path != "data/test.db" {
		t.Errorf("Expected path to be 'data/test.db', got '%s'", db.Path)
	}
	if db.Database != "data/test.db" {
		t.Errorf("Expected database to mirror the path, got '%s'", db.Database)
	}

	// The path falls back to the environment
	os.Setenv("TGD_DB_PATH", "env/path.db")
	defer os.Unsetenv("TGD_DB_PATH")

	db = NewSQLiteConnector("", logger)
	if db.Path != "env/path.db" {
		t.Errorf("Expected path to be 'env/path.db', got '%s'", db.Path)
	}
}

func TestConnectValidatesParameters(t *testing.T) {
	logger := testLogger()

	// MySQL without a database name must fail before dialing
	db := &DatabaseConnector{Driver: "mysql", Logger: logger}
	if err := db.Connect(); err == nil {
		t.Error("Expected an error for a missing database name")
	}

	// SQLite without a path must fail before opening
	db = &DatabaseConnector{Driver: "sqlite3", Logger: logger}
	if err := db.Connect(); err == nil {
		t.Error("Expected an error for a missing database path")
	}

	// Unknown drivers are rejected
	db = &DatabaseConnector{Driver: "oracle", Logger: logger}
	if err := db.Connect(); err == nil {
		t.Error("Expected an error for an unsupported driver")
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TGD_TEST_INT", "42")
	defer os.Unsetenv("TGD_TEST_INT")

	if v := GetEnvInt("TGD_TEST_INT", 7); v != 42 {
		t.Errorf("Expected 42, got %d", v)
	}
	if v := GetEnvInt("TGD_TEST_MISSING", 7); v != 7 {
		t.Errorf("Expected the default 7, got %d", v)
	}

	os.Setenv("TGD_TEST_INT", "not-a-number")
	if v := GetEnvInt("TGD_TEST_INT", 7); v != 7 {
		t.Errorf("Expected the default for a malformed value, got %d", v)
	}
}
