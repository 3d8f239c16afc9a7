package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupLogging(t *testing.T) {
	// Test with default log level
	logger := SetupLogging("")
	if logger == nil {
		t.Error("Expected logger to be created, got nil")
	}

	// Test with specific log level
	logger = SetupLogging("debug")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("warn")
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level to be warn, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}

	// Test with environment variable fallback
	os.Setenv("TGD_LOG_LEVEL", "error")
	defer os.Unsetenv("TGD_LOG_LEVEL")
	logger = SetupLogging("")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level to be error from the environment, got %s", logger.Level)
	}
}

func TestGetEnvInt(t *testing.T) {
	// Test with environment variable set
	os.Setenv("TEST_ENV_INT", "42")
	value := GetEnvInt("TEST_ENV_INT", 10)
	if value != 42 {
		t.Errorf("Expected value to be 42, got %d", value)
	}

	// Test with environment variable not set
	os.Unsetenv("TEST_ENV_INT")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default), got %d", value)
	}

	// Test with invalid integer
	os.Setenv("TEST_ENV_INT", "not-an-int")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default) for invalid input, got %d", value)
	}
}

func TestValidateConnectionParams(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	// Test with valid parameters
	valid := ValidateConnectionParams("localhost", "user", "password", "database", "3306", logger)
	if !valid {
		t.Error("Expected validation to pass with valid parameters")
	}

	// Test with missing host
	valid = ValidateConnectionParams("", "user", "password", "database", "3306", logger)
	if valid {
		t.Error("Expected validation to fail with missing host")
	}

	// Test with missing user
	valid = ValidateConnectionParams("localhost", "", "password", "database", "3306", logger)
	if valid {
		t.Error("Expected validation to fail with missing user")
	}

	// Test with missing database
	valid = ValidateConnectionParams("localhost", "user", "password", "", "3306", logger)
	if valid {
		t.Error("Expected validation to fail with missing database")
	}

	// Test with invalid port
	valid = ValidateConnectionParams("localhost", "user", "password", "database", "not-a-port", logger)
	if valid {
		t.Error("Expected validation to fail with invalid port")
	}

	// Empty password is allowed
	valid = ValidateConnectionParams("localhost", "user", "", "database", "3306", logger)
	if !valid {
		t.Error("Expected validation to pass with empty password")
	}
}

func TestLoadConfigFile(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	// A missing file is not an error
	config, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), logger)
	if err != nil {
		t.Fatalf("Unexpected error for a missing file: %v", err)
	}
	if config.Database.Driver != "" {
		t.Errorf("Expected a zero config for a missing file, got %+v", config)
	}

	// An empty path is not an error either
	if _, err := LoadConfigFile("", logger); err != nil {
		t.Fatalf("Unexpected error for an empty path: %v", err)
	}

	// A real file is parsed
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `database:
  driver: sqlite3
  path: data/test.db
algorithm:
  nb_occurrence: 5
  max_table: 2
results:
  output_dir: out
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err = LoadConfigFile(path, logger)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Database.Driver != "sqlite3" {
		t.Errorf("Expected driver 'sqlite3', got '%s'", config.Database.Driver)
	}
	if config.Database.Path != "data/test.db" {
		t.Errorf("Expected path 'data/test.db', got '%s'", config.Database.Path)
	}
	if config.Algorithm.NbOccurrence != 5 {
		t.Errorf("Expected nb_occurrence 5, got %d", config.Algorithm.NbOccurrence)
	}
	if config.Algorithm.MaxTable != 2 {
		t.Errorf("Expected max_table 2, got %d", config.Algorithm.MaxTable)
	}
	if config.Results.OutputDir != "out" {
		t.Errorf("Expected output_dir 'out', got '%s'", config.Results.OutputDir)
	}

	// Malformed YAML is an error
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("database: [not a map"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if _, err := LoadConfigFile(bad, logger); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TGD_TEST_FROM_ENV_FILE=loaded\n"), 0o644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	defer os.Unsetenv("TGD_TEST_FROM_ENV_FILE")

	LoadEnvironmentVariables(path, logger)

	if os.Getenv("TGD_TEST_FROM_ENV_FILE") != "loaded" {
		t.Error("Expected the env file variable to be loaded")
	}

	// A missing env file is not an error
	LoadEnvironmentVariables(filepath.Join(t.TempDir(), ".env"), logger)
}
